package pipeline

import "sync"

// MemorySink is the in-memory display list: it accumulates results in
// arrival order. Nothing is persisted beyond it.
type MemorySink struct {
	mu      sync.Mutex
	results []Result
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Deliver appends one result.
func (s *MemorySink) Deliver(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
}

// Results returns a copy of the delivered results.
func (s *MemorySink) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// Len returns the number of delivered results.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}
