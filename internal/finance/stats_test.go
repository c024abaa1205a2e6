package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "rising", values: []float64{1, 2, 3}, want: 0},
		{name: "single dip", values: []float64{100, 80, 120}, want: 0.2},
		{name: "deeper later dip", values: []float64{100, 90, 200, 100, 150}, want: 0.5},
		{name: "too short", values: []float64{5}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calculateMaxDrawdown(tt.values), 1e-12)
		})
	}
}

func TestCalculateStats(t *testing.T) {
	values := []float64{100, 101, 99, 102, 104, 103}
	st, err := calculateStats(values, 252)
	require.NoError(t, err)

	assert.Equal(t, 100.0, st.InitialValue)
	assert.Equal(t, 103.0, st.FinalValue)
	assert.InDelta(t, 3.0, st.TotalReturn, 1e-9)
	assert.Equal(t, 5, st.NumPeriods)
	assert.Greater(t, st.Volatility, 0.0)
	assert.Greater(t, st.SharpeRatio, 0.0)
	assert.InDelta(t, 2.0/101*100, st.MaxDrawdown, 1e-9)
}

func TestCalculateStatsFlatPath(t *testing.T) {
	st, err := calculateStats([]float64{100, 100, 100, 100}, 252)
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.TotalReturn)
	assert.Equal(t, 0.0, st.Volatility)
	assert.Equal(t, 0.0, st.SharpeRatio)
}

func TestCalculateStatsErrors(t *testing.T) {
	_, err := calculateStats([]float64{1, 2}, 252)
	assert.Error(t, err)
	_, err = calculateStats([]float64{0, 1, 2}, 252)
	assert.Error(t, err)
}
