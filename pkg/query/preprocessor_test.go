package query_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edurag/edurag/pkg/query"
)

func TestExpand(t *testing.T) {
	p := query.NewPreprocessor()

	original, expanded := p.Expand("  Chapters on Energy Conservation ")

	assert.Equal(t, "chapters on energy conservation", original)

	terms := strings.Fields(expanded)
	for _, want := range []string{"chapters", "on", "energy", "conservation"} {
		assert.Contains(t, terms, want)
	}
	// One representative synonym per matched canonical term.
	assert.Contains(t, terms, "topics")
	assert.Contains(t, terms, "power")
	assert.Contains(t, terms, "preservation")
}

func TestExpandSubstringMatch(t *testing.T) {
	p := query.NewPreprocessor()

	// "laws" contains the key "law", "wave" is contained in the key "waves".
	_, expanded := p.Expand("laws of wave")
	terms := strings.Fields(expanded)

	assert.Contains(t, terms, "principle")
	assert.Contains(t, terms, "oscillation")
}

func TestExpandKeepsDuplicates(t *testing.T) {
	p := query.NewPreprocessor()

	_, expanded := p.Expand("energy energy")
	assert.Equal(t, "energy power force work energy power force work", expanded)
}

func TestExpandEmptyQuery(t *testing.T) {
	p := query.NewPreprocessor()

	original, expanded := p.Expand("   ")
	assert.Equal(t, "", original)
	assert.Equal(t, "", expanded)
}
