package port

import "context"

// Syncer is durable storage for named artifacts.
type Syncer interface {
	// Pull returns the artifact bytes, or domain.ErrNotFound.
	Pull(ctx context.Context, name string) ([]byte, error)

	// Push stores the artifact, replacing any previous version.
	Push(ctx context.Context, name string, data []byte) error

	Close() error
}

// Remover is implemented by syncers that can drop artifacts.
type Remover interface {
	Remove(ctx context.Context, name string) error
}
