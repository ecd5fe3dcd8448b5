package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing record sequence numbers.
// The zero value starts at 1.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose next value is start+1.
// Fresh journal → start = 0
// Reopened journal → start = last sequence found on disk
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
