package service

import (
	"fmt"
	"strings"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/internal/eth"
)

// Verifier validates an authentication reply against the request that
// produced it. Checks run in a fixed order and each failure reports the
// specific check that broke, never a generic reason.
type Verifier struct{}

// Verify recovers the signer from the reply and checks it against the claimed
// address, then the nonce, then the chain id. It returns the verified address
// in its original form.
//
// The message the signer echoes back is preferred; the message the client
// originally sent is used only when the echo is absent or blank.
func (Verifier) Verify(reply *core.Reply, sentMessage, expectedNonce string, expectedChainID uint64) (string, error) {
	if reply == nil || reply.Type != core.ReplyAuth {
		return "", core.ErrMalformedReply
	}
	if reply.Address == "" || reply.Signature == "" {
		return "", fmt.Errorf("%w: auth reply missing address or signature", core.ErrMalformedReply)
	}

	message := reply.Message
	if strings.TrimSpace(message) == "" {
		message = sentMessage
	}

	recovered, err := eth.RecoverAddress(message, reply.Signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrSignatureMismatch, err)
	}
	if !strings.EqualFold(recovered.Hex(), reply.Address) {
		return "", fmt.Errorf("%w: recovered %s, claimed %s", core.ErrSignatureMismatch, recovered.Hex(), reply.Address)
	}

	if reply.Nonce != expectedNonce {
		return "", fmt.Errorf("%w: got %q", core.ErrNonceMismatch, reply.Nonce)
	}

	if reply.ChainID != expectedChainID {
		return "", fmt.Errorf("%w: got %d, configured %d", core.ErrChainMismatch, reply.ChainID, expectedChainID)
	}

	return reply.Address, nil
}
