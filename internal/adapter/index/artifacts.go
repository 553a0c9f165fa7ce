package index

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"ragcloud/internal/domain"
)

// Artifact names, shared by the local cache and the sync layer.
const (
	EmbeddingsArtifact = "embeddings.bin"
	IndexArtifact      = "faiss_index.bin"
	MetaArtifact       = "chunks_meta.json"
)

// Names lists the index artifacts in push order.
var Names = []string{EmbeddingsArtifact, IndexArtifact, MetaArtifact}

// ErrVersionMismatch means the artifacts come from different builds.
var ErrVersionMismatch = errors.New("index artifacts are from different builds")

// Artifacts is one build of the vector index: the normalized embedding
// matrix, the searchable index over it and the row -> chunk mapping.
// All three share BuildID and must be written and read together.
// Corpus fingerprints the flattened store the build was made from and
// Model names the embedding model that produced the vectors.
type Artifacts struct {
	BuildID    string
	Corpus     string
	Model      string
	Embeddings [][]float32
	Index      *FlatIndex
	Meta       []domain.ChunkRef
}

// File is an encoded artifact.
type File struct {
	Name string
	Data []byte
}

type metaFile struct {
	BuildID   string            `json:"build_id"`
	Corpus    string            `json:"corpus,omitempty"`
	Model     string            `json:"model,omitempty"`
	Dimension int               `json:"dimension"`
	Entries   []domain.ChunkRef `json:"entries"`
}

var frameMagic = [4]byte{'R', 'C', 'A', 'F'}

// Build normalizes vectors in place and builds a new index over them.
func Build(vectors [][]float32, meta []domain.ChunkRef) (*Artifacts, error) {
	if len(vectors) != len(meta) {
		return nil, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(meta))
	}
	if len(vectors) == 0 {
		return Empty(), nil
	}

	NormalizeRows(vectors)

	idx := NewFlatIndex(len(vectors[0]))
	if err := idx.Add(vectors); err != nil {
		return nil, err
	}

	return &Artifacts{
		BuildID:    uuid.NewString(),
		Embeddings: vectors,
		Index:      idx,
		Meta:       meta,
	}, nil
}

// Fingerprint identifies a flattened store snapshot. Two snapshots with the
// same indexable chunks at the same positions share a fingerprint.
func Fingerprint(texts []string, meta []domain.ChunkRef) string {
	h := sha256.New()
	var buf [8]byte
	for i, t := range texts {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(meta[i].DocIdx))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(meta[i].ChunkIdx))
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[0:4], uint32(len(t)))
		h.Write(buf[:4])
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Empty returns artifacts for a corpus with nothing to index.
func Empty() *Artifacts {
	return &Artifacts{Index: NewFlatIndex(0)}
}

// Size returns the number of indexed chunks.
func (a *Artifacts) Size() int {
	return len(a.Meta)
}

// Encode serializes the artifacts in Names order.
func (a *Artifacts) Encode() ([]File, error) {
	emb := NewFlatIndex(a.Index.Dimension())
	if err := emb.Add(a.Embeddings); err != nil {
		return nil, fmt.Errorf("encode embeddings: %w", err)
	}
	embData, err := emb.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode embeddings: %w", err)
	}

	idxData, err := a.Index.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	metaData, err := json.MarshalIndent(metaFile{
		BuildID:   a.BuildID,
		Corpus:    a.Corpus,
		Model:     a.Model,
		Dimension: a.Index.Dimension(),
		Entries:   a.Meta,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}

	return []File{
		{Name: EmbeddingsArtifact, Data: frame(a.BuildID, embData)},
		{Name: IndexArtifact, Data: frame(a.BuildID, idxData)},
		{Name: MetaArtifact, Data: metaData},
	}, nil
}

// Decode rebuilds artifacts from the index and meta files. embeddings may
// be nil; when present its build must match too.
func Decode(indexData, metaData, embeddingsData []byte) (*Artifacts, error) {
	var meta metaFile
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}

	idxBuild, idxPayload, err := unframe(indexData)
	if err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if idxBuild != meta.BuildID {
		return nil, fmt.Errorf("%w: index %s, meta %s", ErrVersionMismatch, idxBuild, meta.BuildID)
	}

	idx := &FlatIndex{}
	if err := idx.UnmarshalBinary(idxPayload); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if idx.Size() != len(meta.Entries) {
		return nil, fmt.Errorf("%w: index has %d rows, meta has %d entries", ErrVersionMismatch, idx.Size(), len(meta.Entries))
	}
	if idx.Size() > 0 && idx.Dimension() != meta.Dimension {
		return nil, fmt.Errorf("%w: index dimension %d, meta dimension %d", ErrVersionMismatch, idx.Dimension(), meta.Dimension)
	}

	a := &Artifacts{
		BuildID: meta.BuildID,
		Corpus:  meta.Corpus,
		Model:   meta.Model,
		Index:   idx,
		Meta:    meta.Entries,
	}

	if embeddingsData != nil {
		embBuild, embPayload, err := unframe(embeddingsData)
		if err != nil {
			return nil, fmt.Errorf("decode embeddings: %w", err)
		}
		if embBuild != meta.BuildID {
			return nil, fmt.Errorf("%w: embeddings %s, meta %s", ErrVersionMismatch, embBuild, meta.BuildID)
		}
		emb := &FlatIndex{}
		if err := emb.UnmarshalBinary(embPayload); err != nil {
			return nil, fmt.Errorf("decode embeddings: %w", err)
		}
		if emb.Size() != idx.Size() {
			return nil, fmt.Errorf("%w: embeddings has %d rows, index has %d", ErrVersionMismatch, emb.Size(), idx.Size())
		}
		a.Embeddings = make([][]float32, emb.Size())
		for i := range a.Embeddings {
			a.Embeddings[i] = emb.Row(i)
		}
	}

	return a, nil
}

func frame(buildID string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(frameMagic[:])
	binary.Write(&buf, binary.LittleEndian, uint16(len(buildID)))
	buf.WriteString(buildID)
	buf.Write(payload)
	return buf.Bytes()
}

func unframe(data []byte) (string, []byte, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return "", nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != frameMagic {
		return "", nil, errors.New("not an index artifact")
	}

	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", nil, fmt.Errorf("read build id: %w", err)
	}
	id := make([]byte, n)
	if _, err := io.ReadFull(r, id); err != nil {
		return "", nil, fmt.Errorf("read build id: %w", err)
	}

	offset := len(data) - r.Len()
	return string(id), data[offset:], nil
}
