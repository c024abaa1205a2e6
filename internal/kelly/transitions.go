package kelly

import "fmt"

// Transitions pairs every value of a series (except the last) with the
// relative change to the value after it. Origins and Ratios share indices, so
// equal origins are kept as separate samples.
type Transitions struct {
	Origins []float64
	Ratios  []float64
}

// Len returns the number of transitions.
func (t Transitions) Len() int { return len(t.Origins) }

// SampleTransitions computes (v1 - v0) / v0 for every consecutive pair.
func SampleTransitions(s Series) (Transitions, error) {
	n := s.Len()
	if n < 2 {
		return Transitions{}, fmt.Errorf("%w: need at least 2 points, got %d", ErrEmptyInput, n)
	}
	t := Transitions{
		Origins: make([]float64, n-1),
		Ratios:  make([]float64, n-1),
	}
	for i := 0; i < n-1; i++ {
		v0, v1 := s.Values[i], s.Values[i+1]
		t.Origins[i] = v0
		t.Ratios[i] = (v1 - v0) / v0
	}
	return t, nil
}
