package store

import (
	"encoding/json"
	"fmt"

	"ragcloud/internal/domain"
	"ragcloud/internal/port"
)

// MigrationResult describes what decoding a stored snapshot had to change.
type MigrationResult struct {
	Migrated int // legacy bare-string entries wrapped into documents, or renamed
	Dropped  int // entries that were neither a string nor a document
}

// NeedsSave reports whether the migrated form differs from what was stored.
func (r MigrationResult) NeedsSave() bool {
	return r.Migrated > 0
}

// decodeSnapshot parses a stored snapshot. The current schema is a list of
// {"name", "chunks"} objects; the legacy schema stored each document as a
// bare string, which is chunked here with the default chunker and named
// "legacy-<position>".
func decodeSnapshot(data []byte, legacy port.Chunker) ([]domain.Document, MigrationResult, error) {
	var result MigrationResult

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, result, fmt.Errorf("decode store: %w", err)
	}

	docs := make([]domain.Document, 0, len(entries))
	for i, entry := range entries {
		var text string
		if err := json.Unmarshal(entry, &text); err == nil {
			docs = append(docs, domain.Document{
				Name:   fmt.Sprintf("legacy-%d", i),
				Chunks: nonNil(legacy.Chunk(text)),
			})
			result.Migrated++
			continue
		}

		doc, renamed, ok := decodeDocument(entry)
		if !ok {
			result.Dropped++
			continue
		}
		if renamed {
			doc.Name = fmt.Sprintf("legacy-%d", i)
			result.Migrated++
		}
		docs = append(docs, doc)
	}

	return docs, result, nil
}

// decodeDocument parses a {"name", "chunks"} object. renamed reports a
// name that is present but not a string, which the caller replaces.
func decodeDocument(entry json.RawMessage) (doc domain.Document, renamed, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return domain.Document{}, false, false
	}
	rawChunks, ok := fields["chunks"]
	if !ok {
		return domain.Document{}, false, false
	}

	if rawName, ok := fields["name"]; ok {
		if err := json.Unmarshal(rawName, &doc.Name); err != nil {
			renamed = true
		}
	}

	var chunks []any
	if err := json.Unmarshal(rawChunks, &chunks); err != nil {
		return domain.Document{}, false, false
	}
	doc.Chunks = make([]string, len(chunks))
	for i, c := range chunks {
		switch v := c.(type) {
		case string:
			doc.Chunks[i] = v
		case nil:
			doc.Chunks[i] = ""
		default:
			doc.Chunks[i] = fmt.Sprint(v)
		}
	}
	return doc, renamed, true
}

func nonNil(chunks []string) []string {
	if chunks == nil {
		return []string{}
	}
	return chunks
}
