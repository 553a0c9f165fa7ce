package domain

import "strings"

// SentinelNoDocuments is returned by retrieval when no real chunk can be produced.
const SentinelNoDocuments = "(no documents)"

// Document is a named, ordered list of chunks.
type Document struct {
	Name   string   `json:"name"`
	Chunks []string `json:"chunks"`
}

// ChunkRef locates an indexed chunk inside a store snapshot.
type ChunkRef struct {
	DocIdx   int `json:"doc_idx"`
	ChunkIdx int `json:"chunk_idx"`
}

// Intent tells the embedding service what the text will be used for.
type Intent int

const (
	IntentDocument Intent = iota
	IntentQuery
)

func (i Intent) String() string {
	switch i {
	case IntentDocument:
		return "document"
	case IntentQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Exchange is one question/answer pair of a session.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Flatten returns the indexable chunk texts of docs and their positions.
// Blank chunks are skipped, so they are never addressable by an index.
func Flatten(docs []Document) ([]string, []ChunkRef) {
	var texts []string
	var meta []ChunkRef
	for di, doc := range docs {
		for ci, ch := range doc.Chunks {
			if strings.TrimSpace(ch) == "" {
				continue
			}
			texts = append(texts, ch)
			meta = append(meta, ChunkRef{DocIdx: di, ChunkIdx: ci})
		}
	}
	return texts, meta
}

// Resolve returns the chunk text ref points to in docs.
func Resolve(docs []Document, ref ChunkRef) (string, bool) {
	if ref.DocIdx < 0 || ref.DocIdx >= len(docs) {
		return "", false
	}
	chunks := docs[ref.DocIdx].Chunks
	if ref.ChunkIdx < 0 || ref.ChunkIdx >= len(chunks) {
		return "", false
	}
	return chunks[ref.ChunkIdx], true
}
