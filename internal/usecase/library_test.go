package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"ragcloud/internal/adapter/index"
	"ragcloud/internal/adapter/store"
	"ragcloud/internal/domain"
)

func TestAddText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.library.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local) }

	res, err := h.library.AddText(ctx, "  cat facts  ")
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "blok-20260304-050607" {
		t.Errorf("expected timestamped name, got %s", res.Name)
	}
	if res.Chunks != 1 || res.Indexed != 1 {
		t.Errorf("expected 1 chunk indexed, got %+v", res)
	}

	docs := h.library.List(ctx)
	if len(docs) != 1 || docs[0].Chunks[0] != "cat facts" {
		t.Errorf("unexpected store: %+v", docs)
	}
	if h.remote.Pushes(store.StoreArtifact) != 1 {
		t.Errorf("expected store pushed once, got %d", h.remote.Pushes(store.StoreArtifact))
	}
	if h.remote.Pushes(index.MetaArtifact) != 1 {
		t.Errorf("expected index pushed once, got %d", h.remote.Pushes(index.MetaArtifact))
	}
}

func TestAddText_Blank(t *testing.T) {
	h := newHarness(t)

	_, err := h.library.AddText(context.Background(), " \n\t")
	if !domain.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if h.remote.Pushes(store.StoreArtifact) != 0 {
		t.Error("expected nothing saved")
	}
}

func TestAddText_StoreUnreachable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.store.Save(ctx, catDogDocs()); err != nil {
		t.Fatal(err)
	}
	h.remote.FailPull(store.StoreArtifact, errBoom)

	_, err := h.library.AddText(ctx, "fish")
	if !errors.Is(err, errBoom) {
		t.Errorf("expected pull error, got %v", err)
	}
	if h.remote.Pushes(store.StoreArtifact) != 1 {
		t.Error("expected the remote store not to be overwritten")
	}
}

func TestDeleteScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.store.Save(ctx, []domain.Document{
		{Name: "first", Chunks: []string{"cat facts"}},
		{Name: "second", Chunks: []string{"dog facts", "bird facts"}},
	}); err != nil {
		t.Fatal(err)
	}

	res, err := h.library.Delete(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "first" {
		t.Errorf("expected removed name first, got %s", res.Name)
	}

	docs := h.library.List(ctx)
	if len(docs) != 1 || docs[0].Name != "second" {
		t.Fatalf("expected only the second document, got %+v", docs)
	}

	a := h.index.Snapshot()
	if a.Size() != 2 {
		t.Fatalf("expected 2 indexed chunks, got %d", a.Size())
	}
	for _, ref := range a.Meta {
		if ref.DocIdx != 0 {
			t.Errorf("expected refs to the remaining document only, got %+v", ref)
		}
		if text, _ := domain.Resolve(docs, ref); strings.Contains(text, "cat") {
			t.Errorf("expected deleted chunk gone from index, got %q", text)
		}
	}

	got := h.retrieve.Retrieve(ctx, "cat", 5)
	for _, text := range got {
		if text == "cat facts" {
			t.Errorf("expected deleted document not retrievable, got %v", got)
		}
	}
}

func TestDelete_OutOfRange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.store.Save(ctx, catDogDocs()); err != nil {
		t.Fatal(err)
	}

	for _, pos := range []int{-1, 1, 10} {
		_, err := h.library.Delete(ctx, pos)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("position %d: expected ValidationError, got %v", pos, err)
		}
	}
	if h.remote.Pushes(store.StoreArtifact) != 1 {
		t.Error("expected store untouched")
	}
}

func TestDelete_LastDocumentClearsIndex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.library.AddText(ctx, "cat facts"); err != nil {
		t.Fatal(err)
	}

	if _, err := h.library.Delete(ctx, 0); err != nil {
		t.Fatal(err)
	}

	if h.remote.Has(index.IndexArtifact) {
		t.Error("expected remote index removed")
	}
	got := h.retrieve.Retrieve(ctx, "cat", 3)
	if len(got) != 1 || got[0] != domain.SentinelNoDocuments {
		t.Errorf("expected sentinel, got %v", got)
	}
}

func TestMutation_RebuildFailureReported(t *testing.T) {
	h := newHarness(t)
	h.embedder.FailDocuments(errBoom)

	res, err := h.library.AddText(context.Background(), "cat facts")
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected rebuild error, got %v", err)
	}
	if res == nil || res.Chunks != 1 {
		t.Errorf("expected result describing the saved document, got %+v", res)
	}
	if len(h.library.List(context.Background())) != 1 {
		t.Error("expected document saved despite rebuild failure")
	}
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.library.Upload(ctx, "notes.TXT", "", []byte("dog facts\xff"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "notes.TXT" {
		t.Errorf("expected file name kept, got %s", res.Name)
	}
	docs := h.library.List(ctx)
	if docs[0].Chunks[0] != "dog facts" {
		t.Errorf("expected invalid bytes dropped, got %q", docs[0].Chunks[0])
	}

	res, err = h.library.Upload(ctx, "", "text/plain; charset=utf-8", []byte("bird"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.Name, "upload-") {
		t.Errorf("expected generated name, got %s", res.Name)
	}
}

func TestExtractText_Validation(t *testing.T) {
	limits := UploadLimits{MaxBytes: 10, Extensions: []string{".txt"}}

	tests := []struct {
		name        string
		filename    string
		contentType string
		data        []byte
	}{
		{"empty", "a.txt", "", nil},
		{"too large", "a.txt", "", []byte("01234567890")},
		{"unsupported", "a.pdf", "application/pdf", []byte("%PDF")},
		{"no extension", "README", "", []byte("hi")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractText(tt.filename, tt.contentType, tt.data, limits)
			if !domain.IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	text, err := ExtractText("a.txt", "", []byte("0123456789"), limits)
	if err != nil {
		t.Errorf("expected exactly max size accepted, got %v", err)
	}
	if text != "0123456789" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestIngest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	root := t.TempDir()

	files := map[string]string{
		"b.txt":     "dog facts",
		"a.txt":     "cat facts",
		"skip.md":   "fish facts",
		"sub/c.txt": "bird facts",
		"empty.txt": "",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	var seen []string
	res, err := h.library.Ingest(ctx, root, func(path string) { seen = append(seen, path) })
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a.txt", "b.txt", "sub/c.txt"}
	if !reflect.DeepEqual(res.Added, want) {
		t.Errorf("expected added %v, got %v", want, res.Added)
	}
	if !reflect.DeepEqual(res.Skipped, []string{"empty.txt"}) {
		t.Errorf("expected empty.txt skipped, got %v", res.Skipped)
	}
	if len(seen) != 4 {
		t.Errorf("expected progress for 4 files, got %d", len(seen))
	}
	if res.Indexed != 3 {
		t.Errorf("expected 3 indexed chunks, got %d", res.Indexed)
	}
	if n := h.embedder.Calls(domain.IntentDocument); n != 1 {
		t.Errorf("expected a single rebuild, got %d", n)
	}

	docs := h.library.List(ctx)
	if len(docs) != 3 || docs[2].Name != "sub/c.txt" {
		t.Errorf("unexpected store after ingest: %+v", docs)
	}
}

func TestIngest_NothingToAdd(t *testing.T) {
	h := newHarness(t)

	res, err := h.library.Ingest(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Added) != 0 {
		t.Errorf("expected nothing added, got %v", res.Added)
	}
	if h.remote.Pushes(store.StoreArtifact) != 0 {
		t.Error("expected no save")
	}
}

func TestConcurrentMutationsLoseNoUpdates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	initial := make([]domain.Document, 10)
	for i := range initial {
		initial[i] = domain.Document{Name: "seed", Chunks: []string{"fish facts"}}
	}
	if err := h.store.Save(ctx, initial); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := h.library.AddText(ctx, "cat facts"); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := h.library.Delete(ctx, 0); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	if docs := h.library.List(ctx); len(docs) != 10 {
		t.Errorf("expected 10 documents after 10 adds and 10 deletes, got %d", len(docs))
	}
}

func TestRebuildCommand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.store.Save(ctx, catDogDocs()); err != nil {
		t.Fatal(err)
	}

	n, err := h.library.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 indexed chunks, got %d", n)
	}
}
