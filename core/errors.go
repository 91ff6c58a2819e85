package core

import (
	"errors"
	"fmt"
)

var (
	ErrPopupBlocked      = errors.New("popup window creation was blocked")
	ErrTimeout           = errors.New("exchange deadline elapsed")
	ErrUserRejected      = errors.New("request rejected by user")
	ErrSignatureMismatch = errors.New("recovered signer does not match claimed address")
	ErrNonceMismatch     = errors.New("reply nonce does not match request nonce")
	ErrChainMismatch     = errors.New("reply chain id does not match configured chain")
	ErrMalformedReply    = errors.New("malformed reply")
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrUnsupportedChain  = errors.New("unsupported chain")
	ErrUnauthorized      = errors.New("no valid session")
	ErrExchangeInFlight  = errors.New("another exchange is already in flight")
	ErrSessionInvalid    = errors.New("session is invalid")
)

// Provider error codes exposed on the standardized method surface.
// The 4xxx codes follow EIP-1193, the negative ones JSON-RPC 2.0.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeChainMismatch     = 4901
	CodeUnrecognizedChain = 4902
	CodeRequestPending    = -32002
	CodeInvalidParams     = -32602
	CodeInternal          = -32603
)

// ProviderError is the outward error shape returned by the provider surface.
type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// NewProviderError wraps an internal failure into the fixed code vocabulary.
func NewProviderError(code int, msg string) *ProviderError {
	return &ProviderError{Code: code, Message: msg}
}
