package kelly

import "math"

// Assumption is one return scenario with its weight.
type Assumption struct {
	Weight float64
	Return float64
}

// Fraction returns the share of wealth to put at risk given a set of assumed
// scenarios. It maximizes the quadratic expansion of expected log growth,
//
//	g(f) = Σ w·(f·r − (f·r)²/2)  →  f = Σ w·r / Σ w·r²
//
// and clamps the result into [0, maxFraction]. A zero edge bets nothing.
func Fraction(assumptions []Assumption, maxFraction float64) float64 {
	var num, den float64
	for _, a := range assumptions {
		num += a.Weight * a.Return
		den += a.Weight * a.Return * a.Return
	}
	if num == 0 || den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return 0
	}
	f := num / den
	if f < 0 {
		return 0
	}
	if f > maxFraction {
		return maxFraction
	}
	return f
}

// SingleOutcome is Fraction for one scenario of unit weight.
func SingleOutcome(edge, maxFraction float64) float64 {
	return Fraction([]Assumption{{Weight: 1, Return: edge}}, maxFraction)
}
