package ingest

// Sequence hands out activity ids. One Sequence is owned by a Builder and is
// reset at the start of every run so that ids are reproducible.
type Sequence struct {
	next int64
}

// Next returns the current id and advances the sequence
func (s *Sequence) Next() int64 {
	id := s.next
	s.next++
	return id
}

// Peek returns the id the next call to Next will return
func (s *Sequence) Peek() int64 {
	return s.next
}

// Reset rewinds the sequence to zero
func (s *Sequence) Reset() {
	s.next = 0
}
