package capture

import "context"

// Store keeps live capture sessions. Sessions hold device handles, so
// implementations keep them in process.
type Store interface {
	Create(ctx context.Context, sess *Session) error
	// Get returns ErrSessionNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, id string) error
}
