package models

import "strconv"

// Chunk is an immutable unit of ingested text. Chunks are created at ingestion
// time and only read afterwards.
type Chunk struct {
	Content  string
	Metadata ChunkMetadata
}

// ChunkMetadata carries the provenance of a chunk. Page 0 means the source has
// no page information and is rendered as "N/A".
type ChunkMetadata struct {
	Source string
	Page   int
}

// PageLabel returns the page as a display string, "N/A" when unknown.
func (m ChunkMetadata) PageLabel() string {
	if m.Page <= 0 {
		return "N/A"
	}
	return strconv.Itoa(m.Page)
}

// ScoredChunk pairs a chunk with a relevance score. Scores are lower-is-better:
// a vector distance for semantic hits, 1/(overlap+1) for lexical hits.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Citation identifies a source file and page backing part of an answer.
// Page is an int or the string "N/A" on the wire.
type Citation struct {
	Source string `json:"source"`
	Page   any    `json:"page"`
}
