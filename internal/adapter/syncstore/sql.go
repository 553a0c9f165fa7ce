package syncstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"ragcloud/internal/domain"
	_ "modernc.org/sqlite"
)

type dialect struct {
	driver  string
	migrate string
	pull    string
	push    string
	remove  string
}

var sqliteDialect = dialect{
	driver: "sqlite",
	migrate: `CREATE TABLE IF NOT EXISTS artifacts (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	pull:   `SELECT data FROM artifacts WHERE name = ?`,
	push:   `INSERT INTO artifacts (name, data, updated_at) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
	remove: `DELETE FROM artifacts WHERE name = ?`,
}

var postgresDialect = dialect{
	driver: "pgx",
	migrate: `CREATE TABLE IF NOT EXISTS artifacts (
		name TEXT PRIMARY KEY,
		data BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	pull:   `SELECT data FROM artifacts WHERE name = $1`,
	push:   `INSERT INTO artifacts (name, data, updated_at) VALUES ($1, $2, $3) ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
	remove: `DELETE FROM artifacts WHERE name = $1`,
}

// SQLSyncer stores artifacts in an `artifacts` table of a SQL database.
type SQLSyncer struct {
	db *sql.DB
	d  dialect
}

// NewSQLiteSyncer opens (and creates) a SQLite database file.
func NewSQLiteSyncer(path string) (*SQLSyncer, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return openSQL(sqliteDialect, path)
}

// NewPostgresSyncer connects through the pgx stdlib driver.
func NewPostgresSyncer(dsn string) (*SQLSyncer, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is empty")
	}
	return openSQL(postgresDialect, dsn)
}

func openSQL(d dialect, dsn string) (*SQLSyncer, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if d.driver == "sqlite" {
		// a single connection serializes writers and keeps :memory: databases shared
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.migrate); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLSyncer{db: db, d: d}, nil
}

func (s *SQLSyncer) Pull(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.d.pull, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select artifact: %w", err)
	}
	return data, nil
}

func (s *SQLSyncer) Push(ctx context.Context, name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, s.d.push, name, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

func (s *SQLSyncer) Remove(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, s.d.remove, name); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

func (s *SQLSyncer) Close() error {
	return s.db.Close()
}
