package types

import (
	"context"

	"github.com/edurag/edurag/internal/models"
)

// VectorStore is the retrieval backend contract. Scores returned by
// SimilaritySearchWithScore are distances: lower means more similar.
type VectorStore interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]models.Chunk, error)
	SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)

	// DumpAll returns the full corpus as parallel slices of contents and
	// metadata, for lexical scanning.
	DumpAll(ctx context.Context) ([]string, []models.ChunkMetadata, error)

	Add(ctx context.Context, chunks []models.Chunk) error
	Close()
}

// Embedder turns text into vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces the final answer text from the rendered conversation
// history, the assembled context, and the question.
type Generator interface {
	Generate(ctx context.Context, history, context, question string) (string, error)
}
