package port

import (
	"context"

	"ragcloud/internal/domain"
)

// Retriever returns the chunk texts most similar to the query, best first.
// Neither method returns an empty slice.
type Retriever interface {
	// Retrieve searches the current library.
	Retrieve(ctx context.Context, query string, k int) []string

	// Search searches docs, which the caller has already loaded.
	Search(ctx context.Context, query string, docs []domain.Document, k int) []string
}
