package finance

import (
	"fmt"
	"math"
)

// TrajectoryStats summarizes one wealth path. Percentages are in percent.
type TrajectoryStats struct {
	InitialValue float64 `json:"initial_value"`
	FinalValue   float64 `json:"final_value"`
	TotalReturn  float64 `json:"total_return_pct"`
	AnnualReturn float64 `json:"annual_return_pct"`
	Volatility   float64 `json:"volatility_pct"`
	SharpeRatio  float64 `json:"sharpe"` // Risk-free rate assumed to be 0
	MaxDrawdown  float64 `json:"max_drawdown_pct"`
	NumPeriods   int     `json:"periods"`
}

// calculateStats computes return, volatility, Sharpe and drawdown for values
// sampled periodsPerYear times a year.
func calculateStats(values []float64, periodsPerYear float64) (*TrajectoryStats, error) {
	if len(values) < 3 {
		return nil, fmt.Errorf("need at least 3 values for statistics, got %d", len(values))
	}
	initialValue := values[0]
	finalValue := values[len(values)-1]
	if initialValue <= 0 {
		return nil, fmt.Errorf("invalid initial value: %f", initialValue)
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			returns = append(returns, (values[i]-values[i-1])/values[i-1])
		} else {
			returns = append(returns, 0)
		}
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	// Sample variance (N-1)
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	annualVolatility := math.Sqrt(variance) * math.Sqrt(periodsPerYear)

	// Geometric annualization: (final/initial)^(1/years) - 1
	var annualReturn float64
	years := float64(len(returns)) / periodsPerYear
	if years > 0 && finalValue > 0 {
		annualReturn = math.Pow(finalValue/initialValue, 1.0/years) - 1.0
	}

	var sharpe float64
	if annualVolatility > 0 {
		sharpe = annualReturn / annualVolatility
	}

	stats := &TrajectoryStats{
		InitialValue: initialValue,
		FinalValue:   finalValue,
		TotalReturn:  (finalValue - initialValue) / initialValue * 100,
		AnnualReturn: annualReturn * 100,
		Volatility:   annualVolatility * 100,
		SharpeRatio:  sharpe,
		MaxDrawdown:  calculateMaxDrawdown(values) * 100,
		NumPeriods:   len(returns),
	}
	for name, v := range map[string]float64{
		"total return":  stats.TotalReturn,
		"annual return": stats.AnnualReturn,
		"volatility":    stats.Volatility,
		"Sharpe ratio":  stats.SharpeRatio,
		"max drawdown":  stats.MaxDrawdown,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid %s: %f", name, v)
		}
	}
	return stats, nil
}

// calculateMaxDrawdown returns the largest peak-to-trough decline as a fraction.
func calculateMaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	maxDrawdown := 0.0
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown
}
