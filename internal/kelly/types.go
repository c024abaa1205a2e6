package kelly

import (
	"fmt"
	"strings"
)

// Observation is a single close price at a unix timestamp.
type Observation struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// Point is one value of a trajectory.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Trajectory is a time-aligned sequence of wealth values.
type Trajectory []Point

// Values returns the wealth values without timestamps.
func (t Trajectory) Values() []float64 {
	out := make([]float64, len(t))
	for i, p := range t {
		out[i] = p.Value
	}
	return out
}

// Final returns the last value, or 0 for an empty trajectory.
func (t Trajectory) Final() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].Value
}

// LookupMode selects which value is bucketed at each step of the simulation.
type LookupMode int

const (
	// LookupWealth buckets the previous simulated wealth directly against the
	// normalized range. Wealth is in price units while the bins are in
	// normalized units, so for most assets the rank clamps to an end bin.
	LookupWealth LookupMode = iota
	// LookupNormalized divides the previous wealth by the first price before
	// bucketing, keeping both on the same scale.
	LookupNormalized
)

func (m LookupMode) String() string {
	switch m {
	case LookupWealth:
		return "wealth"
	case LookupNormalized:
		return "normalized"
	default:
		return fmt.Sprintf("LookupMode(%d)", int(m))
	}
}

// ParseLookupMode accepts "wealth"/"literal" and "normalized"/"corrected".
func ParseLookupMode(s string) (LookupMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wealth", "literal", "":
		return LookupWealth, nil
	case "normalized", "normalised", "corrected":
		return LookupNormalized, nil
	}
	return 0, fmt.Errorf("unknown lookup mode %q (use wealth or normalized)", s)
}

const (
	DefaultBins        = 20
	DefaultMaxFraction = 1.0
)

// Config tunes a single computation.
type Config struct {
	Bins        int
	Lookup      LookupMode
	MaxFraction float64
}

// DefaultConfig returns 20 bins, literal wealth lookup and no leverage.
func DefaultConfig() Config {
	return Config{Bins: DefaultBins, Lookup: LookupWealth, MaxFraction: DefaultMaxFraction}
}

func (c Config) validate() error {
	if c.Bins < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidBinCount, c.Bins)
	}
	if c.MaxFraction < 0 {
		return fmt.Errorf("kelly: max fraction must be >= 0, got %v", c.MaxFraction)
	}
	if c.Lookup != LookupWealth && c.Lookup != LookupNormalized {
		return fmt.Errorf("kelly: unknown lookup mode %d", int(c.Lookup))
	}
	return nil
}

// Step records how one transition of the simulation was decided.
type Step struct {
	Rank     int     `json:"rank"`
	Edge     float64 `json:"edge"`
	Fraction float64 `json:"fraction"`
	Realized float64 `json:"realized"`
}

// Result holds both trajectories and the model that produced the Kelly one.
// Steps[k-1] describes the transition into Kelly[k].
type Result struct {
	AllIn Trajectory `json:"all_in"`
	Kelly Trajectory `json:"kelly"`
	Table *BinTable  `json:"table"`
	Steps []Step     `json:"steps"`
}
