package worker

import (
	"sync"
	"sync/atomic"
)

// Sequencer numbers in-flight polls and applies a result only if no later
// poll has been applied already.
type Sequencer struct {
	issued  atomic.Uint64
	mu      sync.Mutex
	applied uint64
}

// Next returns the sequence for a newly issued poll, starting at 1.
func (s *Sequencer) Next() uint64 {
	return s.issued.Add(1)
}

// TryApply runs apply when seq is newer than the last applied sequence and
// reports whether it ran. apply runs under the sequencer's lock.
func (s *Sequencer) TryApply(seq uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.applied {
		return false
	}
	apply()
	s.applied = seq
	return true
}

// Applied returns the last applied sequence.
func (s *Sequencer) Applied() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}
