package model

import "sync/atomic"

// Sequencer hands out strictly monotonic ids. One instance is shared by every
// exchange in a market so order and trade ids are unique process-wide, and the
// issue order doubles as the price/time priority tie-break.
type Sequencer struct {
	next atomic.Int64
}

// NewSequencer creates a sequencer whose first issued id is start+1.
func NewSequencer(start int64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next id.
func (s *Sequencer) Next() int64 {
	return s.next.Add(1)
}

// Current returns the last issued id.
func (s *Sequencer) Current() int64 {
	return s.next.Load()
}
