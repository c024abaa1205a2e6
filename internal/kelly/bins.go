package kelly

import (
	"fmt"
	"math"
)

// Bin is one equal-width slice of the normalized range. Edge is the mean
// transition ratio of the samples whose origin falls inside it; it stays zero
// and must not be used when Count is zero.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
	Edge  float64 `json:"edge"`
}

// Defined reports whether the bin has any samples.
func (b Bin) Defined() bool { return b.Count > 0 }

// BinTable is the empirical model used by the simulation.
type BinTable struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Interval float64 `json:"interval"`
	Bins     []Bin   `json:"bins"`
}

// Len returns the number of bins.
func (t *BinTable) Len() int { return len(t.Bins) }

// EstimateBins splits [min, max] of the series into n equal bins and averages
// the transition ratios by origin. Bin i covers [lower, upper); the last bin
// also holds origins equal to max.
func EstimateBins(s Series, tr Transitions, n int) (*BinTable, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBinCount, n)
	}
	if s.Len() == 0 {
		return nil, ErrEmptyInput
	}
	mmin, mmax := s.Range()
	interval := (mmax - mmin) / float64(n)
	if !(interval > 0) {
		return nil, ErrDegenerateRange
	}

	t := &BinTable{Min: mmin, Max: mmax, Interval: interval, Bins: make([]Bin, n)}
	for i := range t.Bins {
		t.Bins[i].Lower = t.lower(i)
		t.Bins[i].Upper = t.lower(i + 1)
	}
	t.Bins[n-1].Upper = mmax

	sums := make([]float64, n)
	for i, origin := range tr.Origins {
		b := t.binOf(origin)
		sums[b] += tr.Ratios[i]
		t.Bins[b].Count++
	}
	for i := range t.Bins {
		if t.Bins[i].Count > 0 {
			t.Bins[i].Edge = sums[i] / float64(t.Bins[i].Count)
		}
	}
	return t, nil
}

func (t *BinTable) lower(i int) float64 {
	return t.Min + float64(i)*t.Interval
}

// binOf places an origin from the observed range. The floor estimate is
// corrected against the same boundaries the bins report, so membership never
// depends on which side of a boundary the division rounded to.
func (t *BinTable) binOf(x float64) int {
	n := len(t.Bins)
	b := int(math.Floor((x - t.Min) / t.Interval))
	if b < 0 {
		b = 0
	}
	if b > n-1 {
		b = n - 1
	}
	for b > 0 && x < t.lower(b) {
		b--
	}
	for b < n-1 && x >= t.lower(b+1) {
		b++
	}
	return b
}

// Rank maps a value onto a bin index: floor((x - min) / interval) clamped
// into [0, len-1]. Values outside the observed range land in the end bins.
func (t *BinTable) Rank(x float64) (int, error) {
	n := len(t.Bins)
	if n == 0 || !(t.Interval > 0) {
		return 0, fmt.Errorf("%w: empty table", ErrInvalidRank)
	}
	r := math.Floor((x - t.Min) / t.Interval)
	if math.IsNaN(r) {
		return 0, fmt.Errorf("%w: cannot rank %v", ErrInvalidRank, x)
	}
	r = math.Max(0, math.Min(r, float64(n-1)))
	rank := int(r)
	if rank < 0 || rank >= n {
		return 0, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidRank, rank, n-1)
	}
	return rank, nil
}

// Edge returns the assumed edge of bin i.
func (t *BinTable) Edge(i int) (float64, error) {
	if i < 0 || i >= len(t.Bins) {
		return 0, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidRank, i, len(t.Bins)-1)
	}
	b := t.Bins[i]
	if !b.Defined() {
		return 0, &BinError{Bin: i}
	}
	return b.Edge, nil
}

// Samples returns the total number of transitions in the table.
func (t *BinTable) Samples() int {
	total := 0
	for _, b := range t.Bins {
		total += b.Count
	}
	return total
}
