package directory

import "context"

// Store is the read-side contract the workflow depends on. Implementations
// return sentinel.ErrNotFound for unknown ids.
type Store interface {
	Actor(ctx context.Context, id string) (*Actor, error)
	Person(ctx context.Context, id string) (*Person, error)
	Place(ctx context.Context, id string) (*Place, error)
	// Places resolves a batch of ids; the result omits unknown ids rather
	// than failing, so callers can detect which ids are missing.
	Places(ctx context.Context, ids []string) ([]*Place, error)
	CountPersons(ctx context.Context) (int, error)
	CountPlaces(ctx context.Context) (int, error)
}
