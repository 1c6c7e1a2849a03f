package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/internal/types"
)

// RetrievalResult is an ordered sequence of unique candidates, ascending by
// score, capped at the requested k.
type RetrievalResult []models.ScoredChunk

// Searcher is what the adaptive controller needs from a retriever.
type Searcher interface {
	Search(ctx context.Context, query string, k int) (RetrievalResult, error)
}

// HybridRetriever fuses semantic (vector distance) and lexical
// (keyword-overlap) candidate sets into one deduplicated ranked list.
//
// The two score scales are not normalized against each other: semantic scores
// are distances, lexical scores are 1/(overlap+1). Fusion is concatenation
// plus a single ascending sort, so a mediocre lexical match can outrank a
// strong semantic one. Known ranking limitation, kept as observed upstream.
type HybridRetriever struct {
	store  types.VectorStore
	logger *zap.Logger
}

func NewHybridRetriever(store types.VectorStore, logger *zap.Logger) *HybridRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridRetriever{store: store, logger: logger}
}

// Search returns at most k candidates, pairwise distinct by content
// fingerprint, sorted by non-decreasing score. Semantic candidates precede
// lexical ones in the concatenation, so a semantic hit wins over a lexical
// duplicate of the same chunk.
func (h *HybridRetriever) Search(ctx context.Context, query string, k int) (RetrievalResult, error) {
	semantic, err := h.store.SimilaritySearchWithScore(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	lexical, err := h.lexicalScan(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("lexical scan: %w", err)
	}

	merged := Dedup(append(append(RetrievalResult{}, semantic...), lexical...))
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score < merged[j].Score })

	if len(merged) > k {
		merged = merged[:k]
	}

	h.logger.Debug("hybrid search",
		zap.String("query", query),
		zap.Int("semantic", len(semantic)),
		zap.Int("lexical", len(lexical)),
		zap.Int("results", len(merged)),
	)
	return merged, nil
}

// lexicalScan walks the whole corpus and scores every chunk sharing at least
// one whitespace token with the query as 1/(overlap+1).
func (h *HybridRetriever) lexicalScan(ctx context.Context, query string) ([]models.ScoredChunk, error) {
	contents, metadatas, err := h.store.DumpAll(ctx)
	if err != nil {
		return nil, err
	}

	queryWords := tokenSet(query)
	var matches []models.ScoredChunk
	for i, content := range contents {
		overlap := 0
		for word := range tokenSet(content) {
			if _, ok := queryWords[word]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		matches = append(matches, models.ScoredChunk{
			Chunk: models.Chunk{Content: content, Metadata: metadatas[i]},
			Score: 1.0 / float64(overlap+1),
		})
	}
	return matches, nil
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = struct{}{}
	}
	return set
}

// Dedup drops candidates whose content fingerprint was already seen, keeping
// the first occurrence in list order.
func Dedup(candidates RetrievalResult) RetrievalResult {
	seen := make(map[uint64]struct{}, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		fp := Fingerprint(c.Chunk.Content)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}
