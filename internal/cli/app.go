package cli

import (
	"fmt"
	"log/slog"
	"os"

	"ragcloud/config"
	"ragcloud/internal/adapter/cache"
	"ragcloud/internal/adapter/chunker"
	"ragcloud/internal/adapter/embedding"
	"ragcloud/internal/adapter/fs"
	"ragcloud/internal/adapter/generation"
	"ragcloud/internal/adapter/store"
	"ragcloud/internal/adapter/syncstore"
	"ragcloud/internal/logging"
	"ragcloud/internal/port"
	"ragcloud/internal/usecase"
)

// app holds the components of one process.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	sync     port.Syncer
	store    *store.DocumentStore
	index    *usecase.IndexUseCase
	retrieve *usecase.RetrieveUseCase
	library  *usecase.LibraryUseCase
	session  *usecase.Session
}

// newApp wires the library from cfg. Callers must Close it.
func newApp(cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	slog.SetDefault(logger)

	if err := cfg.EnsureStoreDir(); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}

	syncer, err := syncstore.New(cfg.Sync)
	if err != nil {
		return nil, fmt.Errorf("sync backend init failed: %w", err)
	}

	var queryCache *cache.QueryCache
	if cfg.Retrieve.CacheSize > 0 {
		queryCache = cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)
	}

	docs := store.NewDocumentStore(syncer, cfg.StoreDir(), logger)
	idx := usecase.NewIndexUseCase(embedder, syncer, cfg.StoreDir(), logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		sync:     syncer,
		store:    docs,
		index:    idx,
		retrieve: usecase.NewRetrieveUseCase(docs, idx, embedder, queryCache, cfg.Retrieve.TopK, logger),
		library: usecase.NewLibraryUseCase(
			docs,
			idx,
			chunker.NewWindowChunker(cfg.Chunk.Size, cfg.Chunk.Overlap),
			fs.NewWalker(cfg.Upload.Includes, cfg.Upload.Excludes),
			usecase.UploadLimits{MaxBytes: cfg.MaxUploadBytes(), Extensions: cfg.Upload.Extensions},
			logger,
		),
		session: usecase.NewSession(),
	}, nil
}

// asker builds the generation side, which needs its own credentials.
func (a *app) asker() (*usecase.AskUseCase, error) {
	gen, err := generation.New(a.cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("generator init failed: %w", err)
	}
	return usecase.NewAskUseCase(a.retrieve, gen, a.session), nil
}

func (a *app) Close() error {
	return a.sync.Close()
}
