package core

import (
	"time"

	"github.com/google/uuid"
)

// DefaultExchangeTimeout bounds a popup exchange when the caller does not
// configure a deadline of its own.
const DefaultExchangeTimeout = 2 * time.Minute

// Request is one outbound popup request. A Request and its correlation state
// live for exactly one exchange.
type Request struct {
	Method  Method        // semantic method; TransportTag() is what goes on the wire
	AppName string        // requesting application display name
	ChainID uint64        // target chain id
	Origin  string        // requesting origin
	Nonce   string        // correlation token, unique per request
	Payload any           // optional body, serialized as compact JSON
	Timeout time.Duration // deadline for the exchange
}

// NewNonce generates a fresh correlation token.
func NewNonce() string {
	return uuid.NewString()
}

// Normalize fills the nonce and deadline if the caller left them unset.
func (r *Request) Normalize() {
	if r.Nonce == "" {
		r.Nonce = NewNonce()
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultExchangeTimeout
	}
}
