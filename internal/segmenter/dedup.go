package segmenter

// TextFilter suppresses repeated recognized-text events within a session.
// Unlike the audio detector it does no real segmentation: recognized text
// arrives already bounded, so the only decision left is whether the exact
// string was seen before. State is owned by one capture goroutine and is
// not safe for concurrent use.
type TextFilter struct {
	seen map[string]struct{}
}

// NewTextFilter creates an empty filter.
func NewTextFilter() *TextFilter {
	return &TextFilter{seen: make(map[string]struct{})}
}

// Observe reports whether text is new to this session. The first occurrence
// returns (text, true); every repeat returns ("", false).
func (f *TextFilter) Observe(text string) (string, bool) {
	if _, ok := f.seen[text]; ok {
		return "", false
	}
	f.seen[text] = struct{}{}
	return text, true
}

// Reset forgets all previously observed text.
func (f *TextFilter) Reset() {
	f.seen = make(map[string]struct{})
}

// Size returns the number of distinct strings observed since the last reset.
func (f *TextFilter) Size() int {
	return len(f.seen)
}
