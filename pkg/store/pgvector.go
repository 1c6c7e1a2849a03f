package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/internal/types"
)

// PgvectorStore is the Postgres backend, for deployments that already run a
// database. Chunks live in a single table with a pgvector column; distance is
// cosine distance straight from the <=> operator.
type PgvectorStore struct {
	pool      *pgxpool.Pool
	embedder  types.Embedder
	tableName string
	logger    *zap.Logger
}

func NewPgvectorStore(ctx context.Context, config Config, embedder types.Embedder, logger *zap.Logger) (*PgvectorStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("pgvector store requires an embedder")
	}
	if config.ConnString == "" {
		return nil, fmt.Errorf("pgvector store requires a connection string")
	}
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PgvectorStore{
		pool:      pool,
		embedder:  embedder,
		tableName: config.TableName,
		logger:    logger,
	}
	if err := s.initialize(ctx, config.VectorDim); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgvectorStore) initialize(ctx context.Context, vectorDim int) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			source TEXT,
			page INTEGER,
			embedding vector(%d)
		)`, s.tableName, vectorDim)
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`, s.tableName, s.tableName)
	if _, err := s.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

func (s *PgvectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]models.Chunk, error) {
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

func (s *PgvectorStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	stmt := fmt.Sprintf(`
		SELECT content, source, page, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`, s.tableName)

	rows, err := s.pool.Query(ctx, stmt, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var scored []models.ScoredChunk
	for rows.Next() {
		var (
			content string
			source  *string
			page    *int
			dist    float64
		)
		if err := rows.Scan(&content, &source, &page, &dist); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sc := models.ScoredChunk{Chunk: models.Chunk{Content: content}, Score: dist}
		if source != nil {
			sc.Chunk.Metadata.Source = *source
		}
		if page != nil {
			sc.Chunk.Metadata.Page = *page
		}
		scored = append(scored, sc)
	}
	return scored, rows.Err()
}

func (s *PgvectorStore) DumpAll(ctx context.Context) ([]string, []models.ChunkMetadata, error) {
	stmt := fmt.Sprintf("SELECT content, source, page FROM %s ORDER BY id", s.tableName)
	rows, err := s.pool.Query(ctx, stmt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dump chunks: %w", err)
	}
	defer rows.Close()

	var (
		contents []string
		metas    []models.ChunkMetadata
	)
	for rows.Next() {
		var (
			content string
			source  *string
			page    *int
		)
		if err := rows.Scan(&content, &source, &page); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		contents = append(contents, content)
		meta := models.ChunkMetadata{}
		if source != nil {
			meta.Source = *source
		}
		if page != nil {
			meta.Page = *page
		}
		metas = append(metas, meta)
	}
	return contents, metas, rows.Err()
}

func (s *PgvectorStore) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = sanitizeUTF8(chunk.Content)
	}
	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to create embeddings: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, source, page, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`, s.tableName)

	for i, chunk := range chunks {
		_, err := tx.Exec(ctx, stmt,
			uuid.NewString(),
			texts[i],
			chunk.Metadata.Source,
			chunk.Metadata.Page,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var n int
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	if err := s.pool.QueryRow(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (s *PgvectorStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
