package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/pkg/ingest"
)

type captureStore struct {
	added []models.Chunk
	calls int
}

func (c *captureStore) SimilaritySearch(ctx context.Context, q string, k int) ([]models.Chunk, error) {
	return nil, nil
}

func (c *captureStore) SimilaritySearchWithScore(ctx context.Context, q string, k int) ([]models.ScoredChunk, error) {
	return nil, nil
}

func (c *captureStore) DumpAll(ctx context.Context) ([]string, []models.ChunkMetadata, error) {
	return nil, nil, nil
}

func (c *captureStore) Add(ctx context.Context, chunks []models.Chunk) error {
	c.calls++
	c.added = append(c.added, chunks...)
	return nil
}

func (c *captureStore) Close() {}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "plain text notes")
	writeFile(t, dir, "chapter.html", "<html><head><style>p{}</style></head><body><p>laws of motion</p><script>x()</script></body></html>")
	writeFile(t, dir, "image.png", "binary junk")
	writeFile(t, dir, "empty.txt", "   ")

	docs, err := ingest.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byName := map[string]models.Document{}
	for _, d := range docs {
		byName[filepath.Base(d.Path)] = d
		assert.NotEmpty(t, d.ID)
	}
	assert.Equal(t, "plain text notes", byName["notes.txt"].Content)
	assert.Equal(t, "laws of motion", byName["chapter.html"].Content)
}

func TestSplitAssignsPageOrdinals(t *testing.T) {
	p := ingest.NewPipeline(ingest.Config{ChunkSize: 40, ChunkOverlap: 5}, &captureStore{}, nil)

	doc := models.Document{
		Path:    "data/physics.txt",
		Content: strings.Repeat("energy is conserved in a closed system. ", 6),
	}
	chunks, err := p.Split(doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, "data/physics.txt", chunk.Metadata.Source)
		assert.Equal(t, i+1, chunk.Metadata.Page)
		assert.NotEmpty(t, chunk.Content)
	}
}

func TestRunStoresInBatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", strings.Repeat("the conservation of energy. ", 20))
	writeFile(t, dir, "b.txt", "short note about light")

	capture := &captureStore{}
	var progress []int
	p := ingest.NewPipeline(ingest.Config{
		ChunkSize:    80,
		ChunkOverlap: 10,
		BatchSize:    2,
		OnChunk:      func(stored, total int) { progress = append(progress, stored) },
	}, capture, nil)

	stored, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, len(capture.added), stored)
	assert.Greater(t, capture.calls, 1)
	require.NotEmpty(t, progress)
	assert.Equal(t, stored, progress[len(progress)-1])
}

func TestRunEmptyDir(t *testing.T) {
	p := ingest.NewPipeline(ingest.Config{}, &captureStore{}, nil)
	_, err := p.Run(context.Background(), t.TempDir())
	assert.Error(t, err)
}
