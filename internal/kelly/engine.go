package kelly

import (
	"context"
	"errors"
	"fmt"
)

// Simulate walks the series once. At step k the previous Kelly wealth picks a
// bin, the bin's edge sets the fraction, and the new wealth blends holding the
// asset over [k-1, k] with staying in cash.
func Simulate(s Series, table *BinTable, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := s.Len()
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrEmptyInput, n)
	}
	if table == nil || table.Len() == 0 {
		return nil, fmt.Errorf("%w: no bins", ErrInvalidRank)
	}
	if !(s.Base > 0) {
		return nil, &PriceError{Index: 0, Price: s.Base}
	}

	res := &Result{
		AllIn: make(Trajectory, n),
		Kelly: make(Trajectory, n),
		Table: table,
		Steps: make([]Step, n-1),
	}
	for i := 0; i < n; i++ {
		res.AllIn[i] = Point{Timestamp: s.Timestamps[i], Value: s.Price(i)}
	}
	res.Kelly[0] = Point{Timestamp: s.Timestamps[0], Value: s.Base}

	for k := 1; k < n; k++ {
		prev := res.Kelly[k-1].Value
		key := prev
		if cfg.Lookup == LookupNormalized {
			key = prev / s.Base
		}
		rank, err := table.Rank(key)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}
		edge, err := table.Edge(rank)
		if err != nil {
			var be *BinError
			if errors.As(err, &be) {
				be.Step = k
			}
			return nil, err
		}
		f := SingleOutcome(edge, cfg.MaxFraction)
		realized := s.Values[k] / s.Values[k-1]
		res.Kelly[k] = Point{
			Timestamp: s.Timestamps[k],
			Value:     f*(realized*prev) + (1-f)*prev,
		}
		res.Steps[k-1] = Step{Rank: rank, Edge: edge, Fraction: f, Realized: realized}
	}
	return res, nil
}

// Compute runs the whole pipeline over a fixed history.
func Compute(obs []Observation, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(obs) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", ErrEmptyInput, len(obs))
	}
	s, err := Normalize(obs)
	if err != nil {
		return nil, err
	}
	tr, err := SampleTransitions(s)
	if err != nil {
		return nil, err
	}
	table, err := EstimateBins(s, tr, cfg.Bins)
	if err != nil {
		return nil, err
	}
	return Simulate(s, table, cfg)
}

// ComputeContext is Compute for callers that may give up before the work
// starts. Once started the computation runs to completion.
func ComputeContext(ctx context.Context, obs []Observation, cfg Config) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Compute(obs, cfg)
}
