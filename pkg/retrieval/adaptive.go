package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/internal/types"
)

// Params tunes the two-stage adaptive retrieval policy. Zero values are
// replaced by the defaults below.
type Params struct {
	// K1 is the first-pass result cap.
	K1 int
	// K2 is the widened second-pass result cap.
	K2 int
	// WidenThreshold triggers the second pass when the best first-pass score
	// exceeds it.
	WidenThreshold float64
	// ScoreThreshold is the relevance cutoff applied to the final set.
	ScoreThreshold float64
	// FallbackTop is how many ranked entries to keep when nothing passes the
	// score threshold.
	FallbackTop int
}

func (p *Params) applyDefaults() {
	if p.K1 == 0 {
		p.K1 = 5
	}
	if p.K2 == 0 {
		p.K2 = 3
	}
	if p.WidenThreshold == 0 {
		p.WidenThreshold = 1.0
	}
	if p.ScoreThreshold == 0 {
		p.ScoreThreshold = 1.2
	}
	if p.FallbackTop == 0 {
		p.FallbackTop = 3
	}
}

// Expander supplies the original and synonym-expanded forms of a query.
type Expander interface {
	Expand(query string) (original, expanded string)
}

// Controller orchestrates up to two retrieval passes: the original query, then
// the expanded query when the first pass looks weak.
type Controller struct {
	pre       Expander
	retriever Searcher
	store     types.VectorStore
	params    Params
	logger    *zap.Logger
}

func NewController(pre Expander, retriever Searcher, store types.VectorStore, params Params, logger *zap.Logger) *Controller {
	params.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		pre:       pre,
		retriever: retriever,
		store:     store,
		params:    params,
		logger:    logger,
	}
}

// Retrieve returns the chunks relevant to the query, best first.
func (c *Controller) Retrieve(ctx context.Context, query string) ([]models.Chunk, error) {
	original, expanded := c.pre.Expand(query)

	ranked, err := c.searchWithFallback(ctx, original, c.params.K1, "stage1")
	if err != nil {
		return nil, err
	}

	if len(ranked) > 0 && ranked[0].Score > c.params.WidenThreshold {
		c.logger.Info("widening retrieval",
			zap.String("query", original),
			zap.Float64("best_score", ranked[0].Score),
		)
		widened, err := c.searchWithFallback(ctx, expanded, c.params.K2, "stage2")
		if err != nil {
			return nil, err
		}
		ranked = Dedup(append(ranked, widened...))
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score < ranked[j].Score })
		if len(ranked) > c.params.K1 {
			ranked = ranked[:c.params.K1]
		}
	}

	relevant := c.threshold(ranked)

	chunks := make([]models.Chunk, len(relevant))
	for i, cand := range relevant {
		chunks[i] = cand.Chunk
	}
	return chunks, nil
}

// searchWithFallback tries hybrid search and, when it fails, falls back to the
// store's plain scored nearest-neighbor search at the same k. Only a failure
// of the fallback itself is surfaced.
func (c *Controller) searchWithFallback(ctx context.Context, query string, k int, stage string) (RetrievalResult, error) {
	result, err := c.retriever.Search(ctx, query, k)
	if err == nil {
		return result, nil
	}

	c.logger.Warn("hybrid search failed, falling back to semantic search",
		zap.String("stage", stage),
		zap.String("query", query),
		zap.Error(err),
	)
	scored, err := c.store.SimilaritySearchWithScore(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("%s fallback search: %w", stage, err)
	}
	return RetrievalResult(scored), nil
}

// threshold keeps candidates under the score cutoff; when none qualify it
// returns the first FallbackTop entries of the ranked list regardless of
// score, so the generator always has something to ground on.
func (c *Controller) threshold(ranked RetrievalResult) RetrievalResult {
	var relevant RetrievalResult
	for _, cand := range ranked {
		if cand.Score < c.params.ScoreThreshold {
			relevant = append(relevant, cand)
		}
	}
	if len(relevant) == 0 {
		n := c.params.FallbackTop
		if n > len(ranked) {
			n = len(ranked)
		}
		relevant = ranked[:n]
	}
	return relevant
}
