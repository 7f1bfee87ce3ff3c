package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"autoresearcher/pkg/database"
	"autoresearcher/pkg/embeddings"
	"autoresearcher/pkg/research"
	"autoresearcher/pkg/vectorstore"
)

// Embedder turns text chunks into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer chunks the sources of a completed run, embeds them and writes the
// vectors into the collection's chunk table so the chat agent can search
// them later.
type Indexer struct {
	DB         *database.PostgresDB
	Embedder   Embedder
	Collection string

	ChunkSize    int
	ChunkOverlap int

	Logger *slog.Logger
}

func NewIndexer(db *database.PostgresDB, embedder Embedder, collection string) *Indexer {
	return &Indexer{
		DB:           db,
		Embedder:     embedder,
		Collection:   collection,
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Logger:       slog.Default(),
	}
}

// IndexRun stores the run's sources in the vector collection. Per-source
// failures are logged and skipped so one bad document does not lose the
// rest; only setup failures abort.
func (ix *Indexer) IndexRun(ctx context.Context, runID uuid.UUID, topic string, sources []research.Source) error {
	ix.Logger.Info("Indexing run sources", "run_id", runID, "sources", len(sources))

	if err := ix.DB.EnsureVectorExtension(ctx); err != nil {
		return fmt.Errorf("failed to ensure vector extension: %w", err)
	}
	if err := ix.DB.CreateChunkTable(ctx, ix.Collection, embeddings.Dimension); err != nil {
		return fmt.Errorf("failed to create chunk table: %w", err)
	}

	store, err := vectorstore.NewPGVectorStore(ix.DB.Pool, ix.Collection)
	if err != nil {
		return fmt.Errorf("invalid collection name: %w", err)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(ix.ChunkSize),
		textsplitter.WithChunkOverlap(ix.ChunkOverlap),
	)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 3)

	for _, src := range sources {
		if src.URL == "" || src.Content == "" {
			continue
		}

		wg.Add(1)
		go func(src research.Source) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			chunks, err := splitter.SplitText(src.Content)
			if err != nil {
				ix.Logger.Error("Failed to split source", "url", src.URL, "error", err)
				return
			}
			if len(chunks) == 0 {
				return
			}

			vectors, err := ix.Embedder.EmbedTexts(ctx, chunks)
			if err != nil {
				ix.Logger.Error("Failed to embed source", "url", src.URL, "error", err)
				return
			}

			metadata := map[string]any{
				"source":      src.URL,
				"source_type": src.SourceType,
				"topic":       topic,
				"run_id":      runID.String(),
			}
			if src.Score != nil {
				metadata["score"] = *src.Score
			}

			documents := make([]vectorstore.Document, len(chunks))
			for i, chunk := range chunks {
				documents[i] = vectorstore.Document{
					Content:   chunk,
					Metadata:  metadata,
					Embedding: vectors[i],
				}
			}

			if err := store.AddDocuments(ctx, documents); err != nil {
				ix.Logger.Error("Failed to store source chunks", "url", src.URL, "error", err)
				return
			}

			ix.Logger.Info("Indexed source", "url", src.URL, "chunks", len(chunks))
		}(src)
	}

	wg.Wait()
	return nil
}
