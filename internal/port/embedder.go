package port

import (
	"context"

	"ragcloud/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed embeds the non-blank texts in a single remote call.
	// Blank inputs are dropped, so the result may have fewer rows than texts.
	Embed(ctx context.Context, texts []string, intent domain.Intent) ([][]float32, error)

	// Dimension returns the vector dimension, or 0 before the first call.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
