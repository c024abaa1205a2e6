package finance

import (
	"strings"
	"sync"
	"time"
)

// getEasternTime returns America/New_York location, falling back to fixed EST if tzdata is missing.
var getEasternTime = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
})

// normalizeIntervalWindow clamps and maps to Yahoo-supported ranges given interval constraints.
func normalizeIntervalWindow(intervalIn, windowIn string) (interval string, rangeParam string) {
	allowed := map[string]string{"1m": "1m", "5m": "5m", "15m": "15m", "1h": "1h", "1d": "1d"}
	interval = strings.ToLower(strings.TrimSpace(intervalIn))
	if _, ok := allowed[interval]; !ok {
		interval = "1d"
	}
	w := strings.ToLower(strings.TrimSpace(windowIn))
	if w == "" {
		switch interval {
		case "1m":
			w = "5d"
		case "5m":
			w = "1m"
		case "15m":
			w = "3m"
		case "1h":
			w = "1y"
		default:
			w = "2y"
		}
	}
	rank := func(win string) int {
		switch win {
		case "1d":
			return 1
		case "5d":
			return 2
		case "30d", "1m", "1mo":
			return 3
		case "90d", "3m", "3mo":
			return 4
		case "180d", "6m", "6mo":
			return 5
		case "1y":
			return 6
		case "2y":
			return 7
		case "5y":
			return 8
		case "10y":
			return 9
		case "30y", "max":
			return 10
		default:
			return 3
		}
	}
	maxRank := map[string]int{"1m": 3, "5m": 4, "15m": 5, "1h": 7, "1d": 10}[interval]
	r := rank(w)
	if r > maxRank {
		r = maxRank
	}
	rangeParam = [...]string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "30y"}[r-1]
	return interval, rangeParam
}

// periodsPerYear is the number of regular-session bars per year for interval.
func periodsPerYear(interval string) float64 {
	const tradingDays = 252.0
	switch interval {
	case "1m":
		return tradingDays * 390
	case "5m":
		return tradingDays * 78
	case "15m":
		return tradingDays * 26
	case "1h":
		return tradingDays * 7
	default:
		return tradingDays
	}
}

// axisLabels formats timestamps in Eastern Time at a granularity that suits interval.
func axisLabels(ts []int64, interval string) []string {
	et := getEasternTime()
	out := make([]string, len(ts))
	for i, t := range ts {
		tt := time.Unix(t, 0).UTC().In(et)
		switch interval {
		case "1d":
			out[i] = tt.Format("2006-01-02")
		case "1h":
			out[i] = tt.Format("Jan 02 15:00")
		default:
			out[i] = tt.Format("Jan 02 15:04")
		}
	}
	return out
}

// splitNumber picks how many x-axis labels to show for a Yahoo range.
func splitNumber(rangeParam string) int {
	switch rangeParam {
	case "1d", "5d":
		return 8
	case "1mo", "3mo", "6mo":
		return 10
	default:
		return 12
	}
}
