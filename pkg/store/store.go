// Package store implements the vector-store collaborator: persistence of
// embedded chunks, nearest-neighbor search with distance scores, and a
// full-corpus dump for lexical scanning. Two backends are provided, an
// embedded chromem database and Postgres with pgvector.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/edurag/edurag/internal/types"
)

var (
	// ErrEmptyIndex means the persisted index is missing or has no chunks.
	// Serving requires an already-ingested corpus; this is an initialization
	// failure, not a per-request one.
	ErrEmptyIndex = errors.New("vector index is empty or missing")
)

// Config selects and configures a backend.
type Config struct {
	Backend string // "chromem" (default) or "pgvector"

	// chromem
	Path       string
	Collection string
	Compress   bool

	// pgvector
	ConnString string
	TableName  string
	VectorDim  int

	// RequireIndex makes construction fail with ErrEmptyIndex when the
	// persisted corpus is empty. Serving sets it; ingestion does not.
	RequireIndex bool
}

// countingStore is what the factory needs beyond the VectorStore contract.
type countingStore interface {
	types.VectorStore
	Count(ctx context.Context) (int, error)
}

// New builds the configured backend.
func New(ctx context.Context, config Config, embedder types.Embedder, logger *zap.Logger) (types.VectorStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		s   countingStore
		err error
	)
	switch config.Backend {
	case "chromem", "":
		s, err = NewChromemStore(config, embedder, logger)
	case "pgvector":
		s, err = NewPgvectorStore(ctx, config, embedder, logger)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", config.Backend)
	}
	if err != nil {
		return nil, err
	}

	if config.RequireIndex {
		n, err := s.Count(ctx)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("checking index: %w", err)
		}
		if n == 0 {
			s.Close()
			return nil, ErrEmptyIndex
		}
	}
	return s, nil
}
