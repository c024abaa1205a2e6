package finance

import (
	"math"
	"sort"

	"kellyBotTrade/internal/kelly"
)

const iqrMinPoints = 20

// cleanObservations drops bars the Kelly core cannot use. Price outliers are
// removed only when iqrK > 0.
func cleanObservations(obs []kelly.Observation, iqrK float64) []kelly.Observation {
	obs = filterPositive(obs)
	obs = sortByTime(obs)
	if iqrK > 0 {
		obs = filterIQR(obs, iqrK, iqrMinPoints)
	}
	return obs
}

// filterPositive keeps bars with a finite, strictly positive close.
func filterPositive(obs []kelly.Observation) []kelly.Observation {
	out := make([]kelly.Observation, 0, len(obs))
	for _, o := range obs {
		if !(o.Price > 0) || math.IsInf(o.Price, 0) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// sortByTime orders bars by timestamp and drops repeated timestamps, keeping
// the later bar.
func sortByTime(obs []kelly.Observation) []kelly.Observation {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Timestamp < obs[j].Timestamp })
	out := obs[:0]
	for _, o := range obs {
		if len(out) > 0 && out[len(out)-1].Timestamp == o.Timestamp {
			out[len(out)-1] = o
			continue
		}
		out = append(out, o)
	}
	return out
}

// filterIQR removes outliers using the Interquartile Range (IQR) rule.
// Any point with price outside [Q1 - k*IQR, Q3 + k*IQR] is dropped.
// Short series (< minPoints) are returned unchanged, and so is the input when
// filtering would leave fewer than minPoints/2 bars.
func filterIQR(obs []kelly.Observation, k float64, minPoints int) []kelly.Observation {
	if len(obs) < minPoints {
		return obs
	}
	vals := make([]float64, len(obs))
	for i, o := range obs {
		vals[i] = o.Price
	}
	sort.Float64s(vals)
	q1 := percentile(vals, 0.25)
	q3 := percentile(vals, 0.75)
	iqr := q3 - q1
	if iqr <= 0 {
		return obs
	}
	lower := q1 - k*iqr
	upper := q3 + k*iqr
	out := make([]kelly.Observation, 0, len(obs))
	for _, o := range obs {
		if o.Price < lower || o.Price > upper {
			continue
		}
		out = append(out, o)
	}
	if len(out) < minPoints/2 {
		return obs
	}
	return out
}

// percentile interpolates linearly on sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
