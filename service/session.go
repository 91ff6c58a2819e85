package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/ports"
)

// Sessions persists and reads the single signed-in session record.
type Sessions struct {
	store ports.Store
	codec ports.SessionCodec
	ttl   time.Duration
}

// DefaultSessionTTL is the session time-to-live when none is configured.
const DefaultSessionTTL = 24 * time.Hour

// NewSessions creates a session manager over a store and codec.
func NewSessions(store ports.Store, codec ports.SessionCodec, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{store: store, codec: codec, ttl: ttl}
}

// TTL returns the configured session time-to-live.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Load returns the current session, or nil when there is none. An expired or
// unparseable record is evicted on read and reported as absent.
func (s *Sessions) Load(ctx context.Context) *core.Session {
	record, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			_ = s.store.Clear(ctx)
		}
		return nil
	}

	session, err := s.codec.Decode(record)
	if err != nil || !session.Valid(time.Now()) {
		_ = s.store.Clear(ctx)
		return nil
	}
	return session
}

// Create persists a fresh session for the verified address. Re-authentication
// replaces any previous record.
func (s *Sessions) Create(ctx context.Context, uid, address string) (*core.Session, error) {
	now := time.Now()
	session := &core.Session{
		UID:       uid,
		Address:   address,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	record, err := s.codec.Encode(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.store.Save(ctx, record, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Clear removes the session record.
func (s *Sessions) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
