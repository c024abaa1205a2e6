package finance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"kellyBotTrade/internal/kelly"
)

const (
	AllInLabel = "All-in Rewards"
	KellyLabel = "Kelly criterion Rewards"

	kellyTheme = "kelly"
)

var (
	allInColor = charts.Color{R: 0xDD, G: 0x33, B: 0x55, A: 0xFF}
	kellyColor = charts.Color{R: 0x35, G: 0xC7, B: 0x88, A: 0xFF}
)

func init() {
	charts.AddTheme(kellyTheme, charts.ThemeOption{
		IsDarkMode:         false,
		AxisStrokeColor:    charts.Color{R: 110, G: 112, B: 121, A: 255},
		AxisSplitLineColor: charts.Color{R: 224, G: 230, B: 242, A: 255},
		BackgroundColor:    charts.Color{R: 255, G: 255, B: 255, A: 255},
		TextColor:          charts.Color{R: 70, G: 70, B: 70, A: 255},
		SeriesColors:       []charts.Color{allInColor, kellyColor},
	})
}

// RenderKellyChart draws the all-in and Kelly trajectories on a shared time axis.
func RenderKellyChart(report *KellyReport) ([]byte, error) {
	if report == nil || report.Result == nil {
		return nil, errors.New("no result to render")
	}
	res := report.Result
	if len(res.AllIn) < 2 || len(res.AllIn) != len(res.Kelly) {
		return nil, errors.New("not enough data points")
	}

	allIn := res.AllIn.Values()
	kv := res.Kelly.Values()
	ts := make([]int64, len(res.AllIn))
	yMin, yMax := allIn[0], allIn[0]
	for i := range res.AllIn {
		ts[i] = res.AllIn[i].Timestamp
		for _, v := range []float64{allIn[i], kv[i]} {
			if v < yMin {
				yMin = v
			}
			if v > yMax {
				yMax = v
			}
		}
	}
	pad := (yMax - yMin) * 0.05
	if pad < yMax*0.002 {
		pad = yMax * 0.002
	}
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	names := []string{AllInLabel, KellyLabel}
	seriesList := charts.NewSeriesListDataFromValues([][]float64{allIn, kv}, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
		seriesList[i].AxisIndex = 0
	}

	title := fmt.Sprintf("%s • %s • %s • Kelly %d bins", report.Symbol, strings.ToUpper(report.Interval), strings.ToUpper(report.Range), report.Config.Bins)
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, chartSubtitle(report)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: axisLabels(ts, report.Interval), BoundaryGap: charts.FalseFlag(), SplitNumber: splitNumber(report.Range)}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Left: charts.PositionRight}),
		charts.ThemeOptionFunc(kellyTheme),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// chartSubtitle always names the lookup mode the bins were ranked with.
func chartSubtitle(report *KellyReport) string {
	a, k := report.AllInStats, report.KellyStats
	if a == nil || k == nil {
		res := report.Result
		return fmt.Sprintf("All-in %+.2f%% | Kelly %+.2f%% | lookup %s",
			pctChange(res.AllIn), pctChange(res.Kelly), report.Config.Lookup)
	}
	return fmt.Sprintf("All-in %+.2f%% (Sharpe %.2f, MaxDD %.2f%%) | Kelly %+.2f%% (Sharpe %.2f, MaxDD %.2f%%) | lookup %s",
		a.TotalReturn, a.SharpeRatio, a.MaxDrawdown, k.TotalReturn, k.SharpeRatio, k.MaxDrawdown, report.Config.Lookup)
}

func pctChange(t kelly.Trajectory) float64 {
	if len(t) == 0 || t[0].Value == 0 {
		return 0
	}
	return (t.Final() - t[0].Value) / t[0].Value * 100
}

// FormatCaption is a one-line description of a report for chat captions.
func FormatCaption(report *KellyReport) string {
	res := report.Result
	return fmt.Sprintf("%s • %s • %s • %d bins (%s)\nAll-in: %.2f → %.2f (%+.2f%%)\nKelly: %.2f → %.2f (%+.2f%%), bet on %d/%d steps",
		report.Symbol, strings.ToUpper(report.Interval), strings.ToUpper(report.Range), report.Config.Bins, report.Config.Lookup,
		res.AllIn[0].Value, res.AllIn.Final(), pctChange(res.AllIn),
		res.Kelly[0].Value, res.Kelly.Final(), pctChange(res.Kelly),
		report.BetSteps, len(res.Steps))
}

// FormatBins lists the bin model of a report, one bin per line.
func FormatBins(report *KellyReport) string {
	t := report.Result.Table
	var b strings.Builder
	fmt.Fprintf(&b, "%s bins: range %.4f–%.4f, width %.4f, %d samples\n", report.Symbol, t.Min, t.Max, t.Interval, t.Samples())
	for i, bin := range t.Bins {
		if !bin.Defined() {
			fmt.Fprintf(&b, "#%02d [%.4f, %.4f) n=0 edge=–\n", i, bin.Lower, bin.Upper)
			continue
		}
		fmt.Fprintf(&b, "#%02d [%.4f, %.4f) n=%d edge=%+.4f kelly=%.2f\n", i, bin.Lower, bin.Upper, bin.Count, bin.Edge, kelly.SingleOutcome(bin.Edge, report.Config.MaxFraction))
	}
	return b.String()
}
