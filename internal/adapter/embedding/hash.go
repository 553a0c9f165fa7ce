package embedding

import (
	"context"
	"hash/fnv"

	"ragcloud/internal/adapter/analyzer"
	"ragcloud/internal/domain"
)

// HashEmbedder is a deterministic offline embedder. Each stemmed token is
// hashed into one of dimension buckets, so texts sharing words score high.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{dimension: dimension, tokenizer: analyzer.NewTokenizer(true)}
}

func (e *HashEmbedder) Embed(_ context.Context, texts []string, _ domain.Intent) ([][]float32, error) {
	texts = FilterBlank(texts)
	embeddings := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, e.dimension)
		for _, word := range e.tokenizer.Tokenize(t) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%uint32(e.dimension)]++
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return "hash"
}
