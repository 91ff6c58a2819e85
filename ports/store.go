package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Load when no record exists.
var ErrNotFound = errors.New("no record in store")

// Store persists the single session record of one provider instance. Records
// are opaque strings; encoding and expiry semantics live one layer up.
// Implementations scope their keys by a namespace prefix so independently
// configured instances can share a backend.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, record string, ttl time.Duration) error
	Clear(ctx context.Context) error
}
