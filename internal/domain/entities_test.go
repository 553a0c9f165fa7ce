package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestFlatten(t *testing.T) {
	docs := []Document{
		{Name: "a", Chunks: []string{"one", " ", "two"}},
		{Name: "b"},
		{Name: "c", Chunks: []string{"", " three "}},
	}

	texts, meta := Flatten(docs)

	if len(texts) != 3 || len(meta) != 3 {
		t.Fatalf("expected 3 entries, got texts=%d meta=%d", len(texts), len(meta))
	}
	for i, ref := range meta {
		if got := docs[ref.DocIdx].Chunks[ref.ChunkIdx]; got != texts[i] {
			t.Errorf("entry %d: expected %q, got %q", i, texts[i], got)
		}
	}
	if meta[2] != (ChunkRef{DocIdx: 2, ChunkIdx: 1}) {
		t.Errorf("unexpected last ref: %+v", meta[2])
	}
}

func TestFlatten_Empty(t *testing.T) {
	texts, meta := Flatten(nil)
	if len(texts) != 0 || len(meta) != 0 {
		t.Errorf("expected nothing, got %v %v", texts, meta)
	}
}

func TestResolve(t *testing.T) {
	docs := []Document{{Name: "a", Chunks: []string{"x"}}}

	if text, ok := Resolve(docs, ChunkRef{DocIdx: 0, ChunkIdx: 0}); !ok || text != "x" {
		t.Errorf("expected x, got %q %v", text, ok)
	}
	for _, ref := range []ChunkRef{{DocIdx: 1}, {DocIdx: -1}, {ChunkIdx: 1}, {ChunkIdx: -1}} {
		if _, ok := Resolve(docs, ref); ok {
			t.Errorf("expected %+v to be unresolvable", ref)
		}
	}
}

func TestErrors(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("wrapped: %w", NewPersistenceError("save", "store.json", cause))

	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Artifact != "store.json" {
		t.Errorf("expected PersistenceError for store.json, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrappable")
	}

	ve := NewValidationError("position", "%d out of range", 4)
	if ve.Error() != "invalid position: 4 out of range" {
		t.Errorf("unexpected message %q", ve.Error())
	}
	if !IsValidation(fmt.Errorf("x: %w", ve)) {
		t.Error("expected wrapped ValidationError to be detected")
	}
	if IsValidation(cause) {
		t.Error("expected plain error not to be a ValidationError")
	}

	rse := &RemoteServiceError{Service: "embedding", StatusCode: 429, Err: cause}
	if rse.Error() != "embedding: status 429: disk full" {
		t.Errorf("unexpected message %q", rse.Error())
	}
}

func TestIntentString(t *testing.T) {
	if IntentDocument.String() != "document" || IntentQuery.String() != "query" {
		t.Errorf("unexpected intent names: %s %s", IntentDocument, IntentQuery)
	}
}
