package assemble

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/edurag/edurag/internal/models"
)

// Assembler renders retrieved chunks into the context block handed to the
// generator, and collects the citation list shown to the user. It does no
// filtering of its own; relevance decisions happen upstream.
type Assembler struct{}

func New() *Assembler {
	return &Assembler{}
}

// Assemble renders every chunk as a numbered source block and returns the
// blocks joined by blank lines plus the deduplicated citations.
//
// Citations are deduplicated by exact source/page equality in first-seen
// order, not by content fingerprint: two chunks from the same page collapse
// into one citation even when their contents differ.
func (a *Assembler) Assemble(chunks []models.Chunk) (string, []models.Citation) {
	parts := make([]string, 0, len(chunks))
	var citations []models.Citation
	seen := make(map[string]bool)

	for i, chunk := range chunks {
		source := filepath.Base(chunk.Metadata.Source)
		if chunk.Metadata.Source == "" {
			source = "Unknown"
		}
		page := chunk.Metadata.PageLabel()

		parts = append(parts, fmt.Sprintf("Source %d (%s, Page %s):\n%s", i+1, source, page, chunk.Content))

		key := source + "\x00" + page
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, models.Citation{Source: source, Page: pageValue(chunk.Metadata)})
	}

	return strings.Join(parts, "\n\n"), citations
}

// pageValue keeps the wire shape of the original API: a number when the page
// is known, the string "N/A" otherwise.
func pageValue(m models.ChunkMetadata) any {
	if m.Page <= 0 {
		return "N/A"
	}
	return m.Page
}
