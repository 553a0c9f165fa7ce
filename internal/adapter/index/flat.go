package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// FlatIndex is an exhaustive inner-product index. Vectors are expected to be
// L2-normalized, which makes inner product equal to cosine similarity.
type FlatIndex struct {
	dimension int
	data      []float32 // row-major, Size()*dimension values
}

// Hit is one search result: the row position and its score.
type Hit struct {
	Position int
	Score    float32
}

func NewFlatIndex(dimension int) *FlatIndex {
	return &FlatIndex{dimension: dimension}
}

// Add appends vectors as new rows.
func (x *FlatIndex) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("vector %d dimension mismatch: expected %d, got %d", i, x.dimension, len(v))
		}
	}
	for _, v := range vectors {
		x.data = append(x.data, v...)
	}
	return nil
}

func (x *FlatIndex) Size() int {
	if x.dimension == 0 {
		return 0
	}
	return len(x.data) / x.dimension
}

func (x *FlatIndex) Dimension() int {
	return x.dimension
}

// Row returns a copy of row i.
func (x *FlatIndex) Row(i int) []float32 {
	row := make([]float32, x.dimension)
	copy(row, x.data[i*x.dimension:(i+1)*x.dimension])
	return row
}

// Search returns the k rows with the highest inner product with query,
// best first. Equal scores keep position order.
func (x *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", x.dimension, len(query))
	}
	n := x.Size()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		row := x.data[i*x.dimension : (i+1)*x.dimension]
		var dot float32
		for j, q := range query {
			dot += q * row[j]
		}
		hits[i] = Hit{Position: i, Score: dot}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	return hits[:k], nil
}

// Normalize scales v to unit L2 length in place. Zero vectors are left as is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

// NormalizeRows normalizes every row in place.
func NormalizeRows(m [][]float32) {
	for _, row := range m {
		Normalize(row)
	}
}

var flatMagic = [4]byte{'R', 'C', 'F', 'I'}

const flatVersion uint32 = 1

// MarshalBinary encodes the index as magic, version, dimension, rows and
// little-endian float32 data.
func (x *FlatIndex) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(flatMagic[:])
	header := []uint32{flatVersion, uint32(x.dimension), uint32(x.Size())}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, x.data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (x *FlatIndex) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if magic != flatMagic {
		return errors.New("not a flat index file")
	}

	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if header[0] != flatVersion {
		return fmt.Errorf("unsupported index version %d", header[0])
	}
	dim, rows := int(header[1]), int(header[2])
	if dim <= 0 && rows > 0 {
		return errors.New("invalid index dimension")
	}
	if r.Len() != dim*rows*4 {
		return fmt.Errorf("index payload is %d bytes, expected %d", r.Len(), dim*rows*4)
	}

	values := make([]float32, dim*rows)
	if err := binary.Read(r, binary.LittleEndian, values); err != nil {
		return fmt.Errorf("read vectors: %w", err)
	}

	x.dimension = dim
	x.data = values
	return nil
}
