package shuffler

import "sync"

// Sequence is a deterministic Source that replays a fixed list of values,
// wrapping around once the list is exhausted. It is mostly useful for tests.
type Sequence struct {
	values []float64
	idx    int
	mtx    *sync.Mutex
}

var _ Source = &Sequence{}

// NewSequence creates a Sequence. If no values are provided, the sequence
// always returns 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{
		values: values,
		mtx:    &sync.Mutex{},
	}
}

// Float64 returns the next value in the sequence.
func (s *Sequence) Float64() float64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.idx%len(s.values)]
	s.idx++
	return v
}

// Calls returns how many values have been consumed so far.
func (s *Sequence) Calls() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.idx
}
