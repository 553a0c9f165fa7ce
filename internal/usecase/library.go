package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ragcloud/internal/adapter/store"
	"ragcloud/internal/domain"
	"ragcloud/internal/port"
)

// LibraryUseCase applies mutations to the document library. Every mutation
// runs load, modify, save and rebuild under one mutex, so concurrent callers
// in this process never lose each other's updates.
type LibraryUseCase struct {
	mu      sync.Mutex
	store   *store.DocumentStore
	index   *IndexUseCase
	chunker port.Chunker
	walker  port.FileWalker
	limits  UploadLimits
	logger  *slog.Logger
	now     func() time.Time
}

// UploadLimits bounds accepted uploads.
type UploadLimits struct {
	MaxBytes   int64
	Extensions []string // accepted lowercase suffixes, e.g. ".txt"
}

// MutationResult describes a completed mutation.
type MutationResult struct {
	Name    string // document added or removed
	Chunks  int    // chunks of that document
	Indexed int    // chunks in the rebuilt index
}

// IngestResult describes a directory ingest.
type IngestResult struct {
	Added   []string
	Skipped []string
	Errors  []string
	Indexed int
}

// NewLibraryUseCase creates a new library use case.
func NewLibraryUseCase(
	docs *store.DocumentStore,
	idx *IndexUseCase,
	chunker port.Chunker,
	walker port.FileWalker,
	limits UploadLimits,
	logger *slog.Logger,
) *LibraryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if len(limits.Extensions) == 0 {
		limits.Extensions = []string{".txt"}
	}
	return &LibraryUseCase{
		store:   docs,
		index:   idx,
		chunker: chunker,
		walker:  walker,
		limits:  limits,
		logger:  logger,
		now:     time.Now,
	}
}

// List returns the documents in store order.
func (u *LibraryUseCase) List(ctx context.Context) []domain.Document {
	return u.store.LoadOrEmpty(ctx)
}

// AddText adds pasted text as a new document named after the current time.
func (u *LibraryUseCase) AddText(ctx context.Context, text string) (*MutationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("text", "nothing to add")
	}
	name := u.now().Format("blok-20060102-150405")
	return u.add(ctx, name, text)
}

// Upload validates an uploaded file and adds it as a new document.
func (u *LibraryUseCase) Upload(ctx context.Context, filename, contentType string, data []byte) (*MutationResult, error) {
	text, err := ExtractText(filename, contentType, data, u.limits)
	if err != nil {
		return nil, err
	}
	name := filename
	if name == "" {
		name = fmt.Sprintf("upload-%d.txt", u.now().Unix())
	}
	return u.add(ctx, name, text)
}

func (u *LibraryUseCase) add(ctx context.Context, name, text string) (*MutationResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	docs, err := u.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}

	doc := domain.Document{Name: name, Chunks: u.chunker.Chunk(text)}
	docs = append(docs, doc)

	indexed, err := u.commit(ctx, docs)
	result := &MutationResult{Name: doc.Name, Chunks: len(doc.Chunks), Indexed: indexed}
	if err != nil {
		return result, err
	}
	u.logger.Info("document added", "name", doc.Name, "chunks", len(doc.Chunks))
	return result, nil
}

// Ingest adds every matching file below root, in path order, then rebuilds
// once. Files that fail validation are reported and skipped.
func (u *LibraryUseCase) Ingest(ctx context.Context, root string, progress func(path string)) (*IngestResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	docs, err := u.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	for _, file := range files {
		if progress != nil {
			progress(file.Path)
		}

		name, err := filepath.Rel(absRoot, file.Path)
		if err != nil {
			name = filepath.Base(file.Path)
		}
		name = filepath.ToSlash(name)

		if file.Size > u.limits.MaxBytes && u.limits.MaxBytes > 0 {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		data, err := os.ReadFile(file.Path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", name, err))
			continue
		}
		text, err := ExtractText(name, "", data, u.limits)
		if err != nil {
			result.Skipped = append(result.Skipped, name)
			u.logger.Debug("skipping file", "path", name, "reason", err)
			continue
		}

		docs = append(docs, domain.Document{Name: name, Chunks: u.chunker.Chunk(text)})
		result.Added = append(result.Added, name)
	}

	if len(result.Added) == 0 {
		return result, nil
	}

	result.Indexed, err = u.commit(ctx, docs)
	if err != nil {
		return result, err
	}
	u.logger.Info("directory ingested", "root", root, "added", len(result.Added), "skipped", len(result.Skipped))
	return result, nil
}

// Delete removes the document at position pos.
func (u *LibraryUseCase) Delete(ctx context.Context, pos int) (*MutationResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	docs, err := u.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}
	if pos < 0 || pos >= len(docs) {
		return nil, domain.NewValidationError("position", "%d out of range [0, %d)", pos, len(docs))
	}

	removed := docs[pos]
	docs = append(docs[:pos:pos], docs[pos+1:]...)

	indexed, err := u.commit(ctx, docs)
	result := &MutationResult{Name: removed.Name, Chunks: len(removed.Chunks), Indexed: indexed}
	if err != nil {
		return result, err
	}
	u.logger.Info("document deleted", "name", removed.Name, "position", pos)
	return result, nil
}

// Rebuild rebuilds the index from the stored documents.
func (u *LibraryUseCase) Rebuild(ctx context.Context) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	docs, err := u.loadForUpdate(ctx)
	if err != nil {
		return 0, err
	}
	a, err := u.index.Rebuild(ctx, docs)
	if err != nil {
		return 0, err
	}
	return a.Size(), nil
}

// loadForUpdate loads the store for a mutation. Unlike queries, mutations
// do not treat a failed fetch as an empty store: saving over it would drop
// every remote document.
func (u *LibraryUseCase) loadForUpdate(ctx context.Context) ([]domain.Document, error) {
	docs, err := u.store.Load(ctx)
	if err == nil {
		return docs, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Document{}, nil
	}
	return nil, err
}

func (u *LibraryUseCase) commit(ctx context.Context, docs []domain.Document) (int, error) {
	if err := u.store.Save(ctx, docs); err != nil {
		return 0, err
	}
	a, err := u.index.Rebuild(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("documents saved, index rebuild failed: %w", err)
	}
	return a.Size(), nil
}

// ExtractText validates an upload and decodes it as UTF-8 text, dropping
// invalid byte sequences.
func ExtractText(filename, contentType string, data []byte, limits UploadLimits) (string, error) {
	if len(data) == 0 {
		return "", domain.NewValidationError("file", "empty file or no data")
	}
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return "", domain.NewValidationError("file", "larger than %d MB, shrink or split it", limits.MaxBytes/(1024*1024))
	}
	if !acceptedType(filename, contentType, limits.Extensions) {
		return "", domain.NewValidationError("file", "unsupported format, allowed: %s", strings.Join(limits.Extensions, ", "))
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(data), "")), nil
}

func acceptedType(filename, contentType string, extensions []string) bool {
	if strings.HasPrefix(contentType, "text/plain") {
		return true
	}
	lower := strings.ToLower(filename)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
