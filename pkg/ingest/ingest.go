// Package ingest loads source files, splits them into chunks, and writes them
// to the vector store. It is thin plumbing around the store; all retrieval
// intelligence lives elsewhere.
package ingest

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/internal/types"
)

// Config tunes the ingestion pipeline. Zero values mean the defaults below.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	// RateLimit caps store writes (and with them embedding calls) per
	// second. Zero disables limiting.
	RateLimit float64
	// OnChunk is called after each chunk is stored, for progress display.
	OnChunk func(stored, total int)
}

func (c *Config) applyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 100
	}
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
}

// Pipeline splits documents and stores the resulting chunks.
type Pipeline struct {
	config  Config
	store   types.VectorStore
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewPipeline(config Config, store types.VectorStore, logger *zap.Logger) *Pipeline {
	config.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	return &Pipeline{config: config, store: store, limiter: limiter, logger: logger}
}

// Split turns a document into chunks. Page numbers are the 1-based ordinal of
// the chunk within its file; plain-text sources have no native pagination.
func (p *Pipeline) Split(doc models.Document) ([]models.Chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(p.config.ChunkSize),
		textsplitter.WithChunkOverlap(p.config.ChunkOverlap),
	)
	pieces, err := splitter.SplitText(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", doc.Path, err)
	}

	chunks := make([]models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = models.Chunk{
			Content:  piece,
			Metadata: models.ChunkMetadata{Source: doc.Path, Page: i + 1},
		}
	}
	return chunks, nil
}

// Run ingests a directory: load, split, store in rate-limited batches.
// Returns the number of chunks stored.
func (p *Pipeline) Run(ctx context.Context, dir string) (int, error) {
	docs, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("no ingestible files in %s", dir)
	}

	var chunks []models.Chunk
	for _, doc := range docs {
		split, err := p.Split(doc)
		if err != nil {
			return 0, err
		}
		chunks = append(chunks, split...)
	}

	p.logger.Info("ingesting corpus",
		zap.String("dir", dir),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
	)

	stored := 0
	for start := 0; start < len(chunks); start += p.config.BatchSize {
		end := start + p.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return stored, err
			}
		}
		if err := p.store.Add(ctx, chunks[start:end]); err != nil {
			return stored, fmt.Errorf("storing batch: %w", err)
		}
		stored = end
		if p.config.OnChunk != nil {
			p.config.OnChunk(stored, len(chunks))
		}
	}
	return stored, nil
}
