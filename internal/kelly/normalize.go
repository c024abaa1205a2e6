package kelly

import "math"

// Series is a price history rescaled so that its first value is exactly 1.
type Series struct {
	Timestamps []int64
	Values     []float64
	Prices     []float64
	Base       float64
}

// Price returns the raw price at i, falling back to Values[i]*Base when the
// series was built without raw prices.
func (s Series) Price(i int) float64 {
	if i < len(s.Prices) {
		return s.Prices[i]
	}
	return s.Values[i] * s.Base
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Values) }

// Range returns the smallest and largest normalized value.
func (s Series) Range() (lo, hi float64) {
	if len(s.Values) == 0 {
		return 0, 0
	}
	lo, hi = s.Values[0], s.Values[0]
	for _, v := range s.Values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Normalize divides every price by the first one. Prices must be finite and
// strictly positive.
func Normalize(obs []Observation) (Series, error) {
	if len(obs) == 0 {
		return Series{}, ErrEmptyInput
	}
	for i, o := range obs {
		if !(o.Price > 0) || math.IsInf(o.Price, 0) {
			return Series{}, &PriceError{Index: i, Price: o.Price}
		}
	}
	base := obs[0].Price
	s := Series{
		Timestamps: make([]int64, len(obs)),
		Values:     make([]float64, len(obs)),
		Prices:     make([]float64, len(obs)),
		Base:       base,
	}
	for i, o := range obs {
		s.Timestamps[i] = o.Timestamp
		s.Values[i] = o.Price / base
		s.Prices[i] = o.Price
	}
	return s, nil
}
