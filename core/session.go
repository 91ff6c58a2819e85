package core

import (
	"strings"
	"time"
)

// Session represents a signed-in session
type Session struct {
	UID       string    // Application-level identity handle resolved for the address
	Address   string    // Ethereum address of the user
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session expires
}

// Valid reports whether the session is usable at the given instant. A session
// is valid only strictly before its expiry.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// Account returns the session address in the lower-cased form the account
// query surface exposes.
func (s *Session) Account() string {
	return strings.ToLower(s.Address)
}
