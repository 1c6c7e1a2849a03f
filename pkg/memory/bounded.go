package memory

// Accumulator is a size-capped running string. The cap is soft: truncation
// happens on the check before an append, so a single append can push the
// length past max by the entry's size until the next append fires.
type Accumulator struct {
	max  int
	keep int
	text string
}

// NewAccumulator returns an accumulator that truncates to the last keep bytes
// once the text exceeds max bytes.
func NewAccumulator(max, keep int) *Accumulator {
	return &Accumulator{max: max, keep: keep}
}

// Append folds entry into the running text via Truncate.
func (a *Accumulator) Append(entry string) {
	a.text = Truncate(a.text, entry, a.max, a.keep)
}

// String returns the accumulated text.
func (a *Accumulator) String() string { return a.text }

// Reset clears the accumulated text.
func (a *Accumulator) Reset() { a.text = "" }

// Truncate is the pure truncation rule: when current already exceeds max,
// only its last keep bytes survive before the entry is appended with a
// newline separator.
func Truncate(current, entry string, max, keep int) string {
	if len(current) > max {
		tail := current
		if len(tail) > keep {
			tail = tail[len(tail)-keep:]
		}
		return tail + "\n" + entry
	}
	return current + "\n" + entry
}
