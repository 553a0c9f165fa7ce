package port

import "context"

// Generator turns a question and its retrieved context into an answer.
type Generator interface {
	Generate(ctx context.Context, query string, contextChunks []string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
