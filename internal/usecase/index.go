package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"ragcloud/internal/adapter/index"
	"ragcloud/internal/adapter/syncstore"
	"ragcloud/internal/domain"
	"ragcloud/internal/port"
)

// IndexUseCase builds, persists and loads the vector index. The last good
// build is published as an immutable snapshot that readers use without
// locking; a rebuild only replaces it once every artifact is persisted.
type IndexUseCase struct {
	embedder port.Embedder
	sync     port.Syncer
	dir      string
	logger   *slog.Logger

	buildMu sync.Mutex // serializes builds that persist or publish
	current atomic.Pointer[index.Artifacts]
}

// NewIndexUseCase creates a new index use case. dir is the local artifact cache.
func NewIndexUseCase(embedder port.Embedder, sync port.Syncer, dir string, logger *slog.Logger) *IndexUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{
		embedder: embedder,
		sync:     sync,
		dir:      dir,
		logger:   logger,
	}
}

// LocalPath returns the local cache path of an artifact.
func (u *IndexUseCase) LocalPath(name string) string {
	return filepath.Join(u.dir, name)
}

// Snapshot returns the published build, or nil.
func (u *IndexUseCase) Snapshot() *index.Artifacts {
	return u.current.Load()
}

// Rebuild re-embeds every indexable chunk of docs and replaces the index.
// A corpus with nothing to index removes any persisted artifacts and
// publishes an empty build. On failure the previous snapshot is kept.
func (u *IndexUseCase) Rebuild(ctx context.Context, docs []domain.Document) (*index.Artifacts, error) {
	u.buildMu.Lock()
	defer u.buildMu.Unlock()
	return u.rebuild(ctx, docs)
}

// RebuildUnlessReplaced is Rebuild for readers. If a build other than seen
// was published in the meantime, docs may be older than that build, so the
// new index is only returned to the caller and neither persisted nor
// published.
func (u *IndexUseCase) RebuildUnlessReplaced(ctx context.Context, docs []domain.Document, seen *index.Artifacts) (*index.Artifacts, error) {
	u.buildMu.Lock()
	defer u.buildMu.Unlock()

	if u.current.Load() == seen {
		return u.rebuild(ctx, docs)
	}
	u.logger.Debug("index replaced by a concurrent build, keeping rebuild private")
	return u.build(ctx, docs)
}

func (u *IndexUseCase) rebuild(ctx context.Context, docs []domain.Document) (*index.Artifacts, error) {
	built, err := u.build(ctx, docs)
	if err != nil {
		return nil, err
	}

	if built.Size() == 0 {
		if err := u.removeArtifacts(ctx); err != nil {
			return nil, err
		}
		u.current.Store(built)
		u.logger.Info("index cleared", "reason", "no indexable chunks")
		return built, nil
	}

	files, err := built.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	for _, f := range files {
		if err := syncstore.WriteFileAtomic(u.LocalPath(f.Name), f.Data); err != nil {
			return nil, domain.NewPersistenceError("save", f.Name, err)
		}
	}
	for _, f := range files {
		if err := u.sync.Push(ctx, f.Name, f.Data); err != nil {
			return nil, domain.NewPersistenceError("push", f.Name, err)
		}
	}

	u.current.Store(built)
	u.logger.Info("index rebuilt",
		"build", built.BuildID,
		"chunks", built.Size(),
		"dimension", built.Index.Dimension(),
		"model", built.Model,
	)
	return built, nil
}

// build embeds docs into a new in-memory index stamped with the corpus
// fingerprint and the embedding model.
func (u *IndexUseCase) build(ctx context.Context, docs []domain.Document) (*index.Artifacts, error) {
	texts, meta := domain.Flatten(docs)
	corpus := index.Fingerprint(texts, meta)

	if len(texts) == 0 {
		empty := index.Empty()
		empty.Corpus = corpus
		empty.Model = u.embedder.ModelName()
		return empty, nil
	}

	vectors, err := u.embedder.Embed(ctx, texts, domain.IntentDocument)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, &domain.RemoteServiceError{
			Service: "embedding",
			Err:     fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)),
		}
	}

	built, err := index.Build(vectors, meta)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	built.Corpus = corpus
	built.Model = u.embedder.ModelName()
	return built, nil
}

// Load returns the published snapshot, refreshing from storage when there
// is none.
func (u *IndexUseCase) Load(ctx context.Context) (*index.Artifacts, error) {
	if a := u.current.Load(); a != nil {
		return a, nil
	}
	return u.Refresh(ctx)
}

// Refresh reads the artifacts from the sync layer, falling back to the
// local cache, and publishes them. Mixed or incomplete builds are rejected
// with domain.ErrIndexUnavailable.
func (u *IndexUseCase) Refresh(ctx context.Context) (*index.Artifacts, error) {
	a, remoteErr := u.loadRemote(ctx)
	if remoteErr != nil {
		u.logger.Debug("remote index unavailable", "error", remoteErr)

		var localErr error
		a, localErr = u.loadLocal()
		if localErr != nil {
			u.logger.Debug("local index unavailable", "error", localErr)
			return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, remoteErr)
		}
	}

	u.current.Store(a)
	return a, nil
}

func (u *IndexUseCase) loadRemote(ctx context.Context) (*index.Artifacts, error) {
	data := make(map[string][]byte, len(index.Names))
	for _, name := range []string{index.IndexArtifact, index.MetaArtifact, index.EmbeddingsArtifact} {
		b, err := u.sync.Pull(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("pull %s: %w", name, err)
		}
		data[name] = b
	}

	a, err := index.Decode(data[index.IndexArtifact], data[index.MetaArtifact], data[index.EmbeddingsArtifact])
	if err != nil {
		return nil, err
	}

	for name, b := range data {
		if err := syncstore.WriteFileAtomic(u.LocalPath(name), b); err != nil {
			u.logger.Warn("failed to mirror index artifact", "artifact", name, "error", err)
		}
	}
	return a, nil
}

func (u *IndexUseCase) loadLocal() (*index.Artifacts, error) {
	data := make(map[string][]byte, len(index.Names))
	for _, name := range index.Names {
		b, err := os.ReadFile(u.LocalPath(name))
		if err != nil {
			return nil, err
		}
		data[name] = b
	}
	return index.Decode(data[index.IndexArtifact], data[index.MetaArtifact], data[index.EmbeddingsArtifact])
}

func (u *IndexUseCase) removeArtifacts(ctx context.Context) error {
	for _, name := range index.Names {
		if err := os.Remove(u.LocalPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return domain.NewPersistenceError("remove", name, err)
		}
	}

	remover, ok := u.sync.(port.Remover)
	if !ok {
		return nil
	}
	for _, name := range index.Names {
		if err := remover.Remove(ctx, name); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.NewPersistenceError("remove", name, err)
		}
	}
	return nil
}
