package ports

import "context"

// IdentityRegistry resolves an application-level identity handle for an
// address. Optional: when absent, a deterministic handle is derived from the
// address itself.
type IdentityRegistry interface {
	Lookup(ctx context.Context, address string) (string, error)
}
