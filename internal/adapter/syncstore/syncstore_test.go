package syncstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ragcloud/config"
	"ragcloud/internal/domain"
	"ragcloud/internal/port"
)

// exerciseSyncer checks the behaviour every backend must share.
func exerciseSyncer(t *testing.T, s port.Syncer) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Pull(ctx, "store.json"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing artifact, got %v", err)
	}

	if err := s.Push(ctx, "store.json", []byte(`[]`)); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if err := s.Push(ctx, "store.json", []byte(`[{"name":"a","chunks":["x"]}]`)); err != nil {
		t.Fatalf("second push failed: %v", err)
	}

	data, err := s.Pull(ctx, "store.json")
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if string(data) != `[{"name":"a","chunks":["x"]}]` {
		t.Errorf("expected latest content, got %s", data)
	}

	if err := s.Push(ctx, "empty.bin", nil); err != nil {
		t.Fatalf("push of empty artifact failed: %v", err)
	}
	data, err = s.Pull(ctx, "empty.bin")
	if err != nil {
		t.Fatalf("pull of empty artifact failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty artifact, got %d bytes", len(data))
	}

	r, ok := s.(port.Remover)
	if !ok {
		t.Fatal("expected backend to support Remove")
	}
	if err := r.Remove(ctx, "store.json"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := s.Pull(ctx, "store.json"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
	if err := r.Remove(ctx, "never-existed"); err != nil {
		t.Errorf("expected removing a missing artifact to succeed, got %v", err)
	}
}

func TestDirSyncer(t *testing.T) {
	s, err := NewDirSyncer(filepath.Join(t.TempDir(), "remote"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseSyncer(t, s)
}

func TestDirSyncerRejectsPaths(t *testing.T) {
	s, _ := NewDirSyncer(t.TempDir())

	for _, name := range []string{"", "../escape", "a/b", ".."} {
		if err := s.Push(context.Background(), name, []byte("x")); err == nil {
			t.Errorf("expected error for name %q", name)
		}
	}
}

func TestMemorySyncer(t *testing.T) {
	s := NewMemorySyncer()
	exerciseSyncer(t, s)

	if s.Pushes("store.json") != 2 {
		t.Errorf("expected 2 pushes, got %d", s.Pushes("store.json"))
	}
	if s.Pulls("store.json") != 3 {
		t.Errorf("expected 3 pulls, got %d", s.Pulls("store.json"))
	}
}

func TestMemorySyncerFailures(t *testing.T) {
	s := NewMemorySyncer()
	boom := errors.New("boom")

	s.FailPushes(boom)
	if err := s.Push(context.Background(), "a", []byte("x")); !errors.Is(err, boom) {
		t.Errorf("expected push failure, got %v", err)
	}
	s.FailPushes(nil)

	s.Set("a", []byte("x"))
	s.FailPull("a", boom)
	if _, err := s.Pull(context.Background(), "a"); !errors.Is(err, boom) {
		t.Errorf("expected pull failure, got %v", err)
	}
	s.FailPull("a", nil)
	if _, err := s.Pull(context.Background(), "a"); err != nil {
		t.Errorf("expected pull to recover, got %v", err)
	}
}

func TestBoltSyncer(t *testing.T) {
	s, err := NewBoltSyncer(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseSyncer(t, s)

	infos, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Name != "empty.bin" {
		t.Errorf("expected only empty.bin listed, got %+v", infos)
	}
}

func TestBoltSyncerPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	s, err := NewBoltSyncer(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Push(context.Background(), "meta", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewBoltSyncer(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	data, err := s.Pull(context.Background(), "meta")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v1" {
		t.Errorf("expected v1, got %s", data)
	}
}

func TestSQLiteSyncer(t *testing.T) {
	s, err := NewSQLiteSyncer(filepath.Join(t.TempDir(), "artifacts.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseSyncer(t, s)
}

func TestPostgresSyncer(t *testing.T) {
	dsn := os.Getenv("RAGCLOUD_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("RAGCLOUD_TEST_PG_DSN not set")
	}
	s, err := NewPostgresSyncer(dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	for _, name := range []string{"store.json", "empty.bin"} {
		s.Remove(context.Background(), name)
	}
	exerciseSyncer(t, s)
}

func TestNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		backend string
		check   func(port.Syncer) bool
	}{
		{"dir", func(s port.Syncer) bool { _, ok := s.(*DirSyncer); return ok }},
		{"bolt", func(s port.Syncer) bool { _, ok := s.(*BoltSyncer); return ok }},
		{"sqlite", func(s port.Syncer) bool { _, ok := s.(*SQLSyncer); return ok }},
		{"memory", func(s port.Syncer) bool { _, ok := s.(*MemorySyncer); return ok }},
	}
	for _, tc := range cases {
		s, err := New(config.SyncConfig{Backend: tc.backend, Path: filepath.Join(dir, tc.backend), Timeout: time.Second})
		if err != nil {
			t.Fatalf("%s: %v", tc.backend, err)
		}
		inner := s.(interface{ Unwrap() port.Syncer }).Unwrap()
		if !tc.check(inner) {
			t.Errorf("%s: unexpected syncer type %T", tc.backend, inner)
		}
		s.Close()
	}

	if _, err := New(config.SyncConfig{Backend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := New(config.SyncConfig{Backend: "postgres"}); err == nil {
		t.Error("expected error for postgres without DSN")
	}
}

type slowSyncer struct{ *MemorySyncer }

func (s slowSyncer) Push(ctx context.Context, name string, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
		return s.MemorySyncer.Push(ctx, name, data)
	}
}

func TestWithTimeoutSurfacesPushTimeout(t *testing.T) {
	s := WithTimeout(slowSyncer{NewMemorySyncer()}, 10*time.Millisecond)

	err := s.Push(context.Background(), "store.json", []byte("x"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestBoltSyncerRemoveHonorsContext(t *testing.T) {
	s, err := NewBoltSyncer(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Push(context.Background(), "meta", []byte("v1")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Remove(ctx, "meta"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	data, err := s.Pull(context.Background(), "meta")
	if err != nil || string(data) != "v1" {
		t.Errorf("expected artifact kept after canceled remove, got %q, %v", data, err)
	}
}
