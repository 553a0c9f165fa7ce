package port

type Chunker interface {
	Chunk(text string) []string
}
