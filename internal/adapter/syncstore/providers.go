package syncstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ragcloud/config"
	"ragcloud/internal/port"
)

// New creates the Syncer selected by cfg.Backend, wrapped so that every call
// carries cfg.Timeout.
func New(cfg config.SyncConfig) (port.Syncer, error) {
	path := config.ExpandHome(cfg.Path)

	var s port.Syncer
	var err error
	switch cfg.Backend {
	case "dir", "":
		s, err = NewDirSyncer(path)
	case "bolt":
		s, err = NewBoltSyncer(dbPath(path, "artifacts.db"))
	case "sqlite":
		s, err = NewSQLiteSyncer(dbPath(path, "artifacts.sqlite"))
	case "postgres":
		dsn := cfg.DSN
		if dsn == "" && cfg.DSNEnv != "" {
			dsn = os.Getenv(cfg.DSNEnv)
		}
		s, err = NewPostgresSyncer(dsn)
	case "memory":
		s = NewMemorySyncer()
	default:
		return nil, fmt.Errorf("unsupported sync backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return WithTimeout(s, cfg.Timeout), nil
}

// dbPath treats path as a directory unless it already names a file.
func dbPath(path, name string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	return filepath.Join(path, name)
}

type timeoutSyncer struct {
	next    port.Syncer
	timeout time.Duration
}

// WithTimeout bounds every Pull, Push and Remove of s by d. d <= 0 returns s.
func WithTimeout(s port.Syncer, d time.Duration) port.Syncer {
	if d <= 0 {
		return s
	}
	return &timeoutSyncer{next: s, timeout: d}
}

func (t *timeoutSyncer) Pull(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Pull(ctx, name)
}

func (t *timeoutSyncer) Push(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Push(ctx, name, data)
}

func (t *timeoutSyncer) Remove(ctx context.Context, name string) error {
	r, ok := t.next.(port.Remover)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return r.Remove(ctx, name)
}

func (t *timeoutSyncer) Close() error {
	return t.next.Close()
}

// Unwrap returns the wrapped Syncer.
func (t *timeoutSyncer) Unwrap() port.Syncer {
	return t.next
}
