package delivery

import "sync"

// ReadingSession tracks the reader's position inside an open document: a
// plain position counter for the "page X of N" display in the full reading
// view.
type ReadingSession struct {
	mu      sync.Mutex
	current int // zero-based page index
	total   int
}

func NewReadingSession(totalPages int) *ReadingSession {
	return &ReadingSession{total: totalPages}
}

// PageChanged records a scroll to the zero-based page index, clamped to the
// document bounds.
func (s *ReadingSession) PageChanged(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 0 {
		page = 0
	}
	if s.total > 0 && page > s.total-1 {
		page = s.total - 1
	}
	s.current = page
}

// Position returns the one-based current page and the page count, as shown
// to the reader.
func (s *ReadingSession) Position() (current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current + 1, s.total
}
