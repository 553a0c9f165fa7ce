package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ragcloud/config"
	"ragcloud/internal/adapter/chunker"
	"ragcloud/internal/adapter/embedding"
	"ragcloud/internal/adapter/store"
	"ragcloud/internal/adapter/syncstore"
	"ragcloud/internal/domain"
	"ragcloud/internal/logging"
	"ragcloud/internal/port"
	"ragcloud/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding ragcloud.yaml")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 8, "Number of results")
	runs := flag.Int("n", 20, "Timed query runs")
	synthetic := flag.Int("synthetic", 0, "Benchmark an in-memory corpus of this many documents instead of the configured library")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"query\"")
		fmt.Println("\nMeasures:")
		fmt.Println("  1. Index load or rebuild time")
		fmt.Println("  2. Query latency over repeated runs")
		fmt.Println("  3. Top-k results for the query")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.LoadEnv(*dir)

	ctx := context.Background()
	logger := logging.Discard()

	var (
		syncer   port.Syncer
		embedder port.Embedder
		docs     []domain.Document
	)
	if *synthetic > 0 {
		syncer = syncstore.NewMemorySyncer()
		embedder = embedding.NewHashEmbedder(cfg.Embedding.Dimension)
		docs = syntheticCorpus(*synthetic, chunker.NewWindowChunker(cfg.Chunk.Size, cfg.Chunk.Overlap))
	} else {
		syncer, err = syncstore.New(cfg.Sync)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening sync backend: %v\n", err)
			os.Exit(1)
		}
		embedder, err = embedding.New(cfg.Embedding)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
			os.Exit(1)
		}
	}
	defer syncer.Close()

	storeDir, err := os.MkdirTemp("", "ragcloud-bench")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating cache dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(storeDir)

	docStore := store.NewDocumentStore(syncer, storeDir, logger)
	if *synthetic == 0 {
		docs = docStore.LoadOrEmpty(ctx)
	}
	idx := usecase.NewIndexUseCase(embedder, syncer, storeDir, logger)
	retrieve := usecase.NewRetrieveUseCase(docStore, idx, embedder, nil, *topK, logger)

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	texts, _ := domain.Flatten(docs)
	fmt.Printf("Documents: %d\n", len(docs))
	fmt.Printf("Chunks:    %d\n", len(texts))
	fmt.Printf("Model:     %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Println()

	start := time.Now()
	first := retrieve.Search(ctx, *query, docs, *topK)
	fmt.Printf("First query (includes index load/rebuild): %s\n", time.Since(start).Round(time.Microsecond))

	var total time.Duration
	for i := 0; i < *runs; i++ {
		start := time.Now()
		retrieve.Search(ctx, *query, docs, *topK)
		total += time.Since(start)
	}
	if *runs > 0 {
		fmt.Printf("Warm query average over %d runs: %s\n", *runs, (total / time.Duration(*runs)).Round(time.Microsecond))
	}
	if snap := idx.Snapshot(); snap != nil {
		fmt.Printf("Dimension: %d\n", snap.Index.Dimension())
	}

	fmt.Println()
	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))
	for i, text := range first {
		preview := strings.ReplaceAll(text, "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		fmt.Printf("%d. %s\n", i+1, preview)
	}
}

var syntheticWords = []string{
	"raft", "leader", "term", "log", "replica", "quorum", "snapshot", "commit",
	"index", "vector", "embedding", "chunk", "query", "cache", "shard", "lease",
}

func syntheticCorpus(n int, c port.Chunker) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		var b strings.Builder
		for j := 0; j < 300; j++ {
			b.WriteString(syntheticWords[(i*7+j*j)%len(syntheticWords)])
			b.WriteByte(' ')
		}
		docs[i] = domain.Document{Name: fmt.Sprintf("doc-%d", i), Chunks: c.Chunk(b.String())}
	}
	return docs
}
