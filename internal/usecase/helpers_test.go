package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"ragcloud/internal/adapter/chunker"
	"ragcloud/internal/adapter/fs"
	"ragcloud/internal/adapter/store"
	"ragcloud/internal/adapter/syncstore"
	"ragcloud/internal/domain"
	"ragcloud/internal/logging"
)

// keywordEmbedder maps texts onto fixed axes so tests control similarity.
type keywordEmbedder struct {
	mu          sync.Mutex
	documentErr error
	queryErr    error
	calls       map[domain.Intent]int
}

var keywordAxes = []string{"cat", "dog", "bird", "fish"}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{calls: make(map[domain.Intent]int)}
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string, intent domain.Intent) ([][]float32, error) {
	e.mu.Lock()
	e.calls[intent]++
	documentErr, queryErr := e.documentErr, e.queryErr
	e.mu.Unlock()

	if intent == domain.IntentDocument && documentErr != nil {
		return nil, documentErr
	}
	if intent == domain.IntentQuery && queryErr != nil {
		return nil, queryErr
	}

	var out [][]float32
	for _, t := range texts {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		vec := make([]float32, len(keywordAxes)+1)
		vec[len(keywordAxes)] = 0.1
		for i, kw := range keywordAxes {
			if strings.Contains(t, kw) {
				vec[i] = 1
			}
		}
		out = append(out, vec)
	}
	return out, nil
}

func (e *keywordEmbedder) Dimension() int { return len(keywordAxes) + 1 }

func (e *keywordEmbedder) ModelName() string { return "keyword" }

func (e *keywordEmbedder) Calls(intent domain.Intent) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[intent]
}

func (e *keywordEmbedder) FailDocuments(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.documentErr = err
}

func (e *keywordEmbedder) FailQueries(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queryErr = err
}

// paddedEmbedder wraps keywordEmbedder with extra zero axes and its own
// model name. With lazy set it reports no dimension until asked to embed.
type paddedEmbedder struct {
	*keywordEmbedder
	extra int
	model string
	lazy  bool
}

func (e *paddedEmbedder) Embed(ctx context.Context, texts []string, intent domain.Intent) ([][]float32, error) {
	vecs, err := e.keywordEmbedder.Embed(ctx, texts, intent)
	if err != nil {
		return nil, err
	}
	for i := range vecs {
		vecs[i] = append(vecs[i], make([]float32, e.extra)...)
	}
	return vecs, nil
}

func (e *paddedEmbedder) Dimension() int {
	if e.lazy {
		return 0
	}
	return e.keywordEmbedder.Dimension() + e.extra
}

func (e *paddedEmbedder) ModelName() string { return e.model }

// recordingSyncer records the order of pushes.
type recordingSyncer struct {
	*syncstore.MemorySyncer
	mu     sync.Mutex
	pushed []string
}

func (s *recordingSyncer) Push(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	s.pushed = append(s.pushed, name)
	s.mu.Unlock()
	return s.MemorySyncer.Push(ctx, name, data)
}

func (s *recordingSyncer) Pushed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pushed...)
}

type harness struct {
	remote   *recordingSyncer
	embedder *keywordEmbedder
	dir      string
	store    *store.DocumentStore
	index    *IndexUseCase
	retrieve *RetrieveUseCase
	library  *LibraryUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		remote:   &recordingSyncer{MemorySyncer: syncstore.NewMemorySyncer()},
		embedder: newKeywordEmbedder(),
		dir:      t.TempDir(),
	}
	logger := logging.Discard()
	h.store = store.NewDocumentStore(h.remote, h.dir, logger)
	h.index = NewIndexUseCase(h.embedder, h.remote, h.dir, logger)
	h.retrieve = NewRetrieveUseCase(h.store, h.index, h.embedder, nil, 8, logger)
	h.library = NewLibraryUseCase(
		h.store,
		h.index,
		chunker.NewDefaultChunker(),
		fs.NewWalker(nil, nil),
		UploadLimits{MaxBytes: 5 * 1024 * 1024, Extensions: []string{".txt"}},
		logger,
	)
	return h
}

var errBoom = errors.New("boom")

func catDogDocs() []domain.Document {
	return []domain.Document{{Name: "a", Chunks: []string{"cat facts", "dog facts"}}}
}
