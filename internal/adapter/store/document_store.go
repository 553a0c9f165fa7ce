package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"ragcloud/internal/adapter/chunker"
	"ragcloud/internal/adapter/syncstore"
	"ragcloud/internal/domain"
	"ragcloud/internal/port"
)

// StoreArtifact is the name of the serialized store, locally and remotely.
const StoreArtifact = "store.json"

// DocumentStore persists the ordered document list as one JSON snapshot,
// mirrored in a local directory and pushed to a Syncer.
type DocumentStore struct {
	sync   port.Syncer
	dir    string
	legacy port.Chunker
	logger *slog.Logger
}

func NewDocumentStore(sync port.Syncer, dir string, logger *slog.Logger) *DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStore{
		sync:   sync,
		dir:    dir,
		legacy: chunker.NewDefaultChunker(),
		logger: logger,
	}
}

// LocalPath returns the path of the local store mirror.
func (s *DocumentStore) LocalPath() string {
	return filepath.Join(s.dir, StoreArtifact)
}

// Load pulls and decodes the latest snapshot. A missing snapshot is a
// *domain.PersistenceError wrapping domain.ErrNotFound. When legacy entries
// were migrated the result is saved before returning; if that save fails the
// migrated documents are returned together with the error.
func (s *DocumentStore) Load(ctx context.Context) ([]domain.Document, error) {
	data, err := s.sync.Pull(ctx, StoreArtifact)
	if err != nil {
		return nil, domain.NewPersistenceError("load", StoreArtifact, err)
	}

	if err := syncstore.WriteFileAtomic(s.LocalPath(), data); err != nil {
		s.logger.Warn("failed to mirror store locally", "path", s.LocalPath(), "error", err)
	}

	docs, result, err := decodeSnapshot(data, s.legacy)
	if err != nil {
		return nil, domain.NewPersistenceError("load", StoreArtifact, err)
	}
	if result.Dropped > 0 {
		s.logger.Warn("dropped unrecognized store entries", "count", result.Dropped)
	}

	if result.NeedsSave() {
		s.logger.Info("migrated legacy store entries", "count", result.Migrated)
		if err := s.Save(ctx, docs); err != nil {
			return docs, err
		}
	}

	return docs, nil
}

// LoadOrEmpty loads the store, treating any failure as an empty store.
// "Never saved" and "failed to fetch" are indistinguishable to callers that
// only need to keep working.
func (s *DocumentStore) LoadOrEmpty(ctx context.Context) []domain.Document {
	docs, err := s.Load(ctx)
	if err != nil {
		if docs != nil {
			s.logger.Warn("using migrated store that could not be saved", "error", err)
			return docs
		}
		s.logger.Warn("store unavailable, starting empty", "error", err)
		return []domain.Document{}
	}
	return docs
}

// Save writes the full store locally and pushes it. Either failure is
// returned; no attempt is made to reconcile the two copies.
func (s *DocumentStore) Save(ctx context.Context, docs []domain.Document) error {
	data, err := Encode(docs)
	if err != nil {
		return domain.NewPersistenceError("save", StoreArtifact, err)
	}

	if err := syncstore.WriteFileAtomic(s.LocalPath(), data); err != nil {
		return domain.NewPersistenceError("save", StoreArtifact, fmt.Errorf("write local copy: %w", err))
	}

	if err := s.sync.Push(ctx, StoreArtifact, data); err != nil {
		return domain.NewPersistenceError("push", StoreArtifact, err)
	}

	return nil
}

// Encode serializes docs as indented JSON with name before chunks.
func Encode(docs []domain.Document) ([]byte, error) {
	out := make([]domain.Document, len(docs))
	for i, d := range docs {
		out[i] = domain.Document{Name: d.Name, Chunks: nonNil(d.Chunks)}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
