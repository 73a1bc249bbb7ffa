package registry

import "context"

// Store is the persistent key-value region owned by the registry.
type Store interface {
	// Get returns nil, nil when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Commit writes every entry and keeps the region alive as one unit: when
	// its remaining lifetime is below threshold it is extended to extendTo
	// units from now. On error none of the entries are persisted.
	Commit(ctx context.Context, entries map[string][]byte, threshold, extendTo uint64) error
}

// Authenticator fails unless the current caller authenticated as identity.
// Implementations return an error wrapping ErrUnauthorized on mismatch.
type Authenticator interface {
	RequireAuth(ctx context.Context, identity string) error
}

// Clock supplies the timestamp recorded as a certificate's issue date.
type Clock interface {
	Now(ctx context.Context) (uint64, error)
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func(ctx context.Context) (uint64, error)

func (f ClockFunc) Now(ctx context.Context) (uint64, error) { return f(ctx) }
