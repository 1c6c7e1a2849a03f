package query

import "strings"

// Preprocessor normalizes a query and expands it with domain synonyms for a
// second, wider retrieval pass.
type Preprocessor struct {
	synonyms []synonymEntry
}

type synonymEntry struct {
	key  string
	syns []string
}

// physicsSynonyms maps canonical textbook terms to their synonyms. The table
// is ordered so expansion output is deterministic.
func physicsSynonyms() []synonymEntry {
	return []synonymEntry{
		{"chapters", []string{"topics", "sections", "units"}},
		{"physics", []string{"physical science", "mechanics", "motion"}},
		{"energy", []string{"power", "force", "work"}},
		{"conservation", []string{"preservation", "constant"}},
		{"law", []string{"principle", "rule", "theorem"}},
		{"motion", []string{"movement", "kinematics"}},
		{"electricity", []string{"electric", "electrical", "current"}},
		{"magnetism", []string{"magnetic", "magnet"}},
		{"light", []string{"optics", "optical", "rays"}},
		{"waves", []string{"wave", "vibration", "oscillation"}},
	}
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{synonyms: physicsSynonyms()}
}

// Expand lower-cases and trims the query, then appends the synonyms of every
// canonical term a token matches. A token matches a key when either is a
// substring of the other. Duplicates are kept on purpose: the expanded query
// feeds a bag-of-words scan where repetition is harmless.
func (p *Preprocessor) Expand(query string) (original, expanded string) {
	original = strings.TrimSpace(strings.ToLower(query))

	var terms []string
	for _, term := range strings.Fields(original) {
		terms = append(terms, term)
		for _, entry := range p.synonyms {
			if strings.Contains(entry.key, term) || strings.Contains(term, entry.key) {
				terms = append(terms, entry.syns...)
			}
		}
	}

	return original, strings.Join(terms, " ")
}
