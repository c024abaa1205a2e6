package finance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"kellyBotTrade/internal/storage"
)

// MakeUsageChart renders the share of commands per category as a pie chart.
func MakeUsageChart(stats map[string]*storage.UsageStats, days int) ([]byte, error) {
	if len(stats) == 0 {
		return nil, fmt.Errorf("no usage data available")
	}
	categories := sortedCategories(stats)
	total := 0
	for _, c := range categories {
		total += stats[c].Count
	}
	values := make([]float64, 0, len(categories))
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		n := stats[c].Count
		values = append(values, float64(n))
		labels = append(labels, fmt.Sprintf("%s (%.1f%%)", c, float64(n)/float64(total)*100))
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Command Usage Distribution (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{Data: labels, Top: charts.PositionBottom}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// MakeUsageTimeSeriesChart renders commands per bucket, one line per category.
func MakeUsageTimeSeriesChart(series map[string][]storage.TimeSeriesPoint, days int) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no time series data available")
	}
	seen := map[int64]bool{}
	var stamps []int64
	for _, points := range series {
		for _, p := range points {
			if !seen[p.Timestamp] {
				seen[p.Timestamp] = true
				stamps = append(stamps, p.Timestamp)
			}
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	layout := "01/02"
	switch {
	case days <= 1:
		layout = "15:04"
	case days <= 7:
		layout = "Mon 15:04"
	}
	et := getEasternTime()
	xAxis := make([]string, len(stamps))
	for i, ts := range stamps {
		xAxis[i] = time.Unix(ts, 0).In(et).Format(layout)
	}

	names := make([]string, 0, len(series))
	for c := range series {
		names = append(names, c)
	}
	sort.Strings(names)
	values := make([][]float64, 0, len(names))
	for _, c := range names {
		counts := make(map[int64]int, len(series[c]))
		for _, p := range series[c] {
			counts[p.Timestamp] = p.Count
		}
		row := make([]float64, len(stamps))
		for i, ts := range stamps {
			row[i] = float64(counts[ts])
		}
		values = append(values, row)
	}

	p, err := charts.LineRender(
		values,
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xAxis}),
		charts.TitleTextOptionFunc(fmt.Sprintf("Command Usage Over Time (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionBottom}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// FormatUsageStatsText creates a formatted text summary of usage statistics
func FormatUsageStatsText(stats map[string]*storage.UsageStats, days int) string {
	if len(stats) == 0 {
		return "No usage data available for the specified period."
	}
	categories := sortedCategories(stats)
	total := 0
	for _, c := range categories {
		total += stats[c].Count
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Usage (%d days): %d commands\n\n", days, total)
	for _, c := range categories {
		st := stats[c]
		fmt.Fprintf(&b, "%s: %d (%.1f%%), %d failed\n", formatCategoryName(c), st.Count, float64(st.Count)/float64(total)*100, st.Failed)

		type cmdCount struct {
			cmd   string
			count int
		}
		cmds := make([]cmdCount, 0, len(st.Commands))
		for cmd, n := range st.Commands {
			cmds = append(cmds, cmdCount{cmd, n})
		}
		sort.Slice(cmds, func(i, j int) bool {
			if cmds[i].count != cmds[j].count {
				return cmds[i].count > cmds[j].count
			}
			return cmds[i].cmd < cmds[j].cmd
		})
		for i, cc := range cmds {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "  • %s: %d\n", cc.cmd, cc.count)
		}
	}
	return b.String()
}

func sortedCategories(stats map[string]*storage.UsageStats) []string {
	out := make([]string, 0, len(stats))
	for c := range stats {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// formatCategoryName converts category names to user-friendly format
func formatCategoryName(category string) string {
	switch category {
	case "kelly":
		return "📈 Kelly backtests"
	case "explain":
		return "🤖 AI commentary"
	case "usage":
		return "📊 Usage"
	default:
		return category
	}
}
