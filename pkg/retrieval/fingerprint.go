package retrieval

import "hash/fnv"

// fingerprintPrefixLen is how much of a chunk's content participates in the
// dedup key. Two distinct chunks sharing a 100-character prefix collide and
// only the first survives; that false-positive risk is accepted, it keeps the
// key cheap and stable across the semantic and lexical candidate lists.
const fingerprintPrefixLen = 100

// Fingerprint returns the content-addressing key used to deduplicate
// candidates: an FNV-1a hash of the first 100 characters of content.
func Fingerprint(content string) uint64 {
	runes := []rune(content)
	if len(runes) > fingerprintPrefixLen {
		runes = runes[:fingerprintPrefixLen]
	}
	h := fnv.New64a()
	h.Write([]byte(string(runes)))
	return h.Sum64()
}
