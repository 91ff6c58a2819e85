package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wrenlabs/popsign/core"
)

// rejectionPatterns are the free-text fragments a signer reply may carry when
// the user refused the request. The peer does not emit a structured error
// kind, so text matching has to stay; it lives here and nowhere else.
var rejectionPatterns = []string{"reject", "denied", "cancel", "blocked", "user closed"}

// classifyPeerError maps an error reply's reason text onto the internal
// taxonomy: rejection-shaped reasons become ErrUserRejected, everything else
// a transport failure.
func classifyPeerError(reason string) error {
	lower := strings.ToLower(reason)
	for _, p := range rejectionPatterns {
		if strings.Contains(lower, p) {
			return fmt.Errorf("%w: %s", core.ErrUserRejected, reason)
		}
	}
	if reason == "" {
		reason = "signer reported an unspecified error"
	}
	return fmt.Errorf("%w: %s", core.ErrMalformedReply, reason)
}

// toProviderError re-maps the internal failure taxonomy into the fixed
// outward code vocabulary of the provider surface.
func toProviderError(err error) *core.ProviderError {
	var pe *core.ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	switch {
	case errors.Is(err, core.ErrUserRejected),
		errors.Is(err, core.ErrPopupBlocked):
		return core.NewProviderError(core.CodeUserRejected, err.Error())
	case errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, core.ErrSignatureMismatch),
		errors.Is(err, core.ErrNonceMismatch):
		return core.NewProviderError(core.CodeUnauthorized, err.Error())
	case errors.Is(err, core.ErrChainMismatch):
		return core.NewProviderError(core.CodeChainMismatch, err.Error())
	case errors.Is(err, core.ErrUnsupportedChain):
		return core.NewProviderError(core.CodeUnrecognizedChain, err.Error())
	case errors.Is(err, core.ErrUnsupportedMethod):
		return core.NewProviderError(core.CodeUnsupportedMethod, err.Error())
	case errors.Is(err, core.ErrExchangeInFlight):
		return core.NewProviderError(core.CodeRequestPending, err.Error())
	default:
		return core.NewProviderError(core.CodeInternal, err.Error())
	}
}
