// Command kellyplot runs one Kelly backtest from the command line, reading
// history from Yahoo Finance or a timestamp,price CSV file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kellyBotTrade/internal/finance"
	"kellyBotTrade/internal/kelly"
)

// csvSource serves the same history for every request.
type csvSource struct {
	obs []kelly.Observation
}

func (s csvSource) FetchHistory(context.Context, string, string, string) ([]kelly.Observation, error) {
	return s.obs, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	symbol := flag.String("symbol", "SPY", "ticker to fetch, or a label when -input is set")
	interval := flag.String("interval", "1d", "bar interval: 1m, 5m, 15m, 1h, 1d")
	window := flag.String("window", "", "history window, e.g. 6m, 1y, 5y (default depends on interval)")
	bins := flag.Int("bins", kelly.DefaultBins, "number of buckets")
	lookup := flag.String("lookup", "normalized", "bucket lookup: normalized (wealth / first price) or wealth (raw wealth, literal)")
	maxFraction := flag.Float64("max-fraction", kelly.DefaultMaxFraction, "upper bound of the Kelly fraction")
	input := flag.String("input", "", "read timestamp,price rows from this CSV instead of Yahoo")
	out := flag.String("out", "", "write the chart PNG here")
	csvOut := flag.String("csv", "", "write both trajectories as CSV here (- for stdout)")
	outlierIQR := flag.Float64("outlier-iqr", 0, "drop Yahoo bars outside this many IQRs of the quartiles (0 keeps all)")
	timeout := flag.Duration("timeout", 30*time.Second, "fetch timeout")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := run(*symbol, *interval, *window, *bins, *lookup, *maxFraction, *input, *out, *csvOut, *outlierIQR, *timeout); err != nil {
		log.Fatal().Err(err).Msg("kellyplot")
	}
}

func run(symbol, interval, window string, bins int, lookup string, maxFraction float64, input, out, csvOut string, outlierIQR float64, timeout time.Duration) error {
	yahoo := finance.NewYahooClient(timeout)
	yahoo.OutlierIQR = outlierIQR
	var src finance.HistorySource = yahoo
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		obs, err := finance.ReadObservationsCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", input, err)
		}
		src = csvSource{obs: obs}
	}

	analyzer := finance.NewAnalyzer(src, kelly.DefaultConfig(), 0)
	req := finance.KellyRequest{
		Symbol:      symbol,
		Interval:    interval,
		Window:      window,
		Bins:        bins,
		Lookup:      lookup,
		MaxFraction: maxFraction,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var report *finance.KellyReport
	if out != "" {
		img, r, err := analyzer.Chart(ctx, req)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, img, 0o644); err != nil {
			return err
		}
		log.Info().Str("file", out).Msg("chart written")
		report = r
	} else {
		r, err := analyzer.Run(ctx, req)
		if err != nil {
			return err
		}
		report = r
	}

	switch csvOut {
	case "":
	case "-":
		if err := finance.WriteTrajectoryCSV(os.Stdout, report.Result); err != nil {
			return err
		}
	default:
		f, err := os.Create(csvOut)
		if err != nil {
			return err
		}
		if err := finance.WriteTrajectoryCSV(f, report.Result); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Info().Str("file", csvOut).Msg("trajectories written")
	}

	fmt.Fprintln(os.Stderr, finance.FormatCaption(report))
	fmt.Fprint(os.Stderr, finance.FormatBins(report))
	return nil
}
