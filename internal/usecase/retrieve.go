package usecase

import (
	"context"
	"log/slog"

	"ragcloud/internal/adapter/cache"
	"ragcloud/internal/adapter/index"
	"ragcloud/internal/adapter/store"
	"ragcloud/internal/domain"
	"ragcloud/internal/port"
)

// RetrieveUseCase answers top-k queries against the current store.
type RetrieveUseCase struct {
	store    *store.DocumentStore
	index    *IndexUseCase
	embedder port.Embedder
	cache    *cache.QueryCache
	topK     int
	logger   *slog.Logger
}

// NewRetrieveUseCase creates a new retrieve use case. queryCache may be nil.
func NewRetrieveUseCase(
	docs *store.DocumentStore,
	idx *IndexUseCase,
	embedder port.Embedder,
	queryCache *cache.QueryCache,
	topK int,
	logger *slog.Logger,
) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = 8
	}
	return &RetrieveUseCase{
		store:    docs,
		index:    idx,
		embedder: embedder,
		cache:    queryCache,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve loads the store and searches it.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, k int) []string {
	return u.Search(ctx, query, u.store.LoadOrEmpty(ctx), k)
}

// Search returns up to k chunk texts of docs, most similar first. It never
// returns an empty slice: when nothing can be retrieved the result is the
// single domain.SentinelNoDocuments entry.
func (u *RetrieveUseCase) Search(ctx context.Context, query string, docs []domain.Document, k int) []string {
	texts, meta := domain.Flatten(docs)
	if len(texts) == 0 {
		return noDocuments()
	}
	corpus := index.Fingerprint(texts, meta)

	a, rebuilt := u.usableIndex(ctx, docs, corpus)
	if a == nil {
		return noDocuments()
	}

	if k <= 0 {
		k = u.topK
	}
	if k > a.Size() {
		k = a.Size()
	}

	if u.cache != nil {
		if cached, ok := u.cache.Get(a.BuildID, query, k); ok {
			return cached
		}
	}

	vectors, err := u.embedder.Embed(ctx, []string{query}, domain.IntentQuery)
	if err != nil {
		u.logger.Warn("query embedding failed", "error", err)
		return noDocuments()
	}
	if len(vectors) != 1 {
		return noDocuments()
	}
	q := vectors[0]
	index.Normalize(q)

	// A lazily sized embedder only reveals its dimension here.
	if len(q) != a.Index.Dimension() {
		if rebuilt {
			u.logger.Warn("query dimension differs from rebuilt index",
				"query", len(q), "index", a.Index.Dimension())
			return noDocuments()
		}
		u.logger.Info("index dimension differs from query, rebuilding",
			"build", a.BuildID, "query", len(q), "index", a.Index.Dimension())
		if a = u.rebuild(ctx, docs, corpus, a); a == nil {
			return noDocuments()
		}
	}

	hits, err := a.Index.Search(q, k)
	if err != nil {
		u.logger.Warn("index search failed", "build", a.BuildID, "error", err)
		return noDocuments()
	}

	out := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(a.Meta) {
			continue
		}
		text, ok := domain.Resolve(docs, a.Meta[hit.Position])
		if !ok {
			continue
		}
		out = append(out, text)
	}
	if len(out) == 0 {
		return noDocuments()
	}

	if u.cache != nil {
		u.cache.Put(a.BuildID, query, k, out)
	}
	return out
}

// usableIndex returns an index built from corpus by the current embedder.
// It tries the published snapshot, then storage, then exactly one rebuild,
// and reports whether that rebuild was spent.
func (u *RetrieveUseCase) usableIndex(ctx context.Context, docs []domain.Document, corpus string) (*index.Artifacts, bool) {
	seen := u.index.Snapshot()
	if u.matches(seen, corpus) {
		return seen, false
	}

	if a, err := u.index.Refresh(ctx); err == nil {
		if u.matches(a, corpus) {
			return a, false
		}
		seen = a
	}

	return u.rebuild(ctx, docs, corpus, seen), true
}

// rebuild spends the single rebuild. seen is the snapshot this query
// judged unusable.
func (u *RetrieveUseCase) rebuild(ctx context.Context, docs []domain.Document, corpus string, seen *index.Artifacts) *index.Artifacts {
	a, err := u.index.RebuildUnlessReplaced(ctx, docs, seen)
	if err != nil {
		u.logger.Warn("index rebuild failed", "error", err)
		return nil
	}
	if a.Size() == 0 || a.Corpus != corpus {
		return nil
	}
	return a
}

// matches reports whether a indexes corpus with vectors from the current
// embedding model. An embedder that has not reported its dimension yet is
// checked again once the query is embedded.
func (u *RetrieveUseCase) matches(a *index.Artifacts, corpus string) bool {
	if a == nil || a.Size() == 0 || a.Corpus != corpus {
		return false
	}
	if a.Model != u.embedder.ModelName() {
		return false
	}
	dim := u.embedder.Dimension()
	return dim == 0 || dim == a.Index.Dimension()
}

func noDocuments() []string {
	return []string{domain.SentinelNoDocuments}
}
