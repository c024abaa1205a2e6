package kelly

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFraction(t *testing.T) {
	tests := []struct {
		name        string
		assumptions []Assumption
		max         float64
		want        float64
	}{
		{name: "no edge", assumptions: []Assumption{{Weight: 1, Return: 0}}, max: 1, want: 0},
		{name: "no assumptions", assumptions: nil, max: 1, want: 0},
		{name: "positive edge capped", assumptions: []Assumption{{Weight: 1, Return: 0.1}}, max: 1, want: 1},
		{name: "positive edge with leverage", assumptions: []Assumption{{Weight: 1, Return: 0.1}}, max: 20, want: 10},
		{name: "large edge under cap", assumptions: []Assumption{{Weight: 1, Return: 4}}, max: 1, want: 0.25},
		{name: "negative edge bets nothing", assumptions: []Assumption{{Weight: 1, Return: -0.1}}, max: 1, want: 0},
		{name: "zero cap", assumptions: []Assumption{{Weight: 1, Return: 0.1}}, max: 0, want: 0},
		{
			name: "two scenarios",
			assumptions: []Assumption{
				{Weight: 0.5, Return: 0.2},
				{Weight: 0.5, Return: -0.1},
			},
			max:  5,
			want: 2,
		},
		{name: "NaN edge", assumptions: []Assumption{{Weight: 1, Return: math.NaN()}}, max: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Fraction(tt.assumptions, tt.max), 1e-12)
		})
	}
}

func TestSingleOutcome(t *testing.T) {
	assert.Equal(t, Fraction([]Assumption{{Weight: 1, Return: 0.3}}, 2), SingleOutcome(0.3, 2))
	assert.Equal(t, 0.0, SingleOutcome(0, 1))
}
