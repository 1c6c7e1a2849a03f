package store

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/internal/types"
)

// ChromemStore is the embedded backend: a chromem-go database persisted at a
// directory, no external service needed. chromem does not expose corpus
// enumeration, so a sidecar registry next to the database serves DumpAll.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	registry   *corpusRegistry
	embedder   types.Embedder
	logger     *zap.Logger
}

func NewChromemStore(config Config, embedder types.Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("chromem store requires an embedder")
	}
	if config.Path == "" {
		config.Path = "chroma_db"
	}
	if config.Collection == "" {
		config.Collection = "edurag"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := chromem.NewPersistentDB(config.Path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db: %w", err)
	}

	embedFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
	collection, err := db.GetOrCreateCollection(config.Collection, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", config.Collection, err)
	}

	registry, err := loadCorpusRegistry(config.Path)
	if err != nil {
		return nil, fmt.Errorf("loading corpus registry: %w", err)
	}

	logger.Info("chromem store ready",
		zap.String("path", config.Path),
		zap.String("collection", config.Collection),
		zap.Int("chunks", collection.Count()),
	)

	return &ChromemStore{
		db:         db,
		collection: collection,
		registry:   registry,
		embedder:   embedder,
		logger:     logger,
	}, nil
}

func (s *ChromemStore) SimilaritySearch(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	scored, err := s.SimilaritySearchWithScore(ctx, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, len(scored))
	for i, sc := range scored {
		chunks[i] = sc.Chunk
	}
	return chunks, nil
}

// SimilaritySearchWithScore returns the k nearest chunks with their cosine
// distance. chromem reports cosine similarity (higher is better); it is
// converted to 1-similarity here so every score in the engine is
// lower-is-better.
func (s *ChromemStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying chromem: %w", err)
	}

	scored := make([]models.ScoredChunk, len(results))
	for i, r := range results {
		scored[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				Content:  r.Content,
				Metadata: metadataFromMap(r.Metadata),
			},
			Score: 1 - float64(r.Similarity),
		}
	}
	return scored, nil
}

func (s *ChromemStore) DumpAll(ctx context.Context) ([]string, []models.ChunkMetadata, error) {
	return s.registry.Dump()
}

func (s *ChromemStore) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:       uuid.NewString(),
			Content:  chunk.Content,
			Metadata: metadataToMap(chunk.Metadata),
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding documents to chromem: %w", err)
	}
	if err := s.registry.Append(chunks); err != nil {
		return fmt.Errorf("updating corpus registry: %w", err)
	}
	return nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

func (s *ChromemStore) Close() {}

func metadataToMap(m models.ChunkMetadata) map[string]string {
	meta := map[string]string{"source": m.Source}
	if m.Page > 0 {
		meta["page"] = strconv.Itoa(m.Page)
	}
	return meta
}

func metadataFromMap(meta map[string]string) models.ChunkMetadata {
	m := models.ChunkMetadata{Source: meta["source"]}
	if page, err := strconv.Atoi(meta["page"]); err == nil {
		m.Page = page
	}
	return m
}
