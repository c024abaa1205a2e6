package finance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"kellyBotTrade/internal/kelly"
)

// KellyRequest describes one backtest. Zero values take the analyzer defaults.
type KellyRequest struct {
	Symbol      string  `json:"symbol" validate:"required,max=24"`
	Interval    string  `json:"interval" validate:"omitempty,oneof=1m 5m 15m 1h 1d"`
	Window      string  `json:"window" validate:"omitempty,max=8"`
	Bins        int     `json:"bins" validate:"gte=0,lte=500"`
	Lookup      string  `json:"lookup" validate:"omitempty,oneof=wealth literal normalized corrected"`
	MaxFraction float64 `json:"max_fraction" validate:"gte=0,lte=10"`
}

// KellyReport is the outcome of a backtest: both trajectories, the bin model and
// statistics for each path. Stats are nil when the history is too short or
// too extreme to annualize.
type KellyReport struct {
	Symbol     string           `json:"symbol"`
	Interval   string           `json:"interval"`
	Range      string           `json:"range"`
	Config     ReportConfig     `json:"config"`
	Result     *kelly.Result    `json:"result"`
	AllInStats *TrajectoryStats `json:"all_in_stats,omitempty"`
	KellyStats *TrajectoryStats `json:"kelly_stats,omitempty"`
	BetSteps   int              `json:"bet_steps"`
}

// ReportConfig is the resolved kelly.Config in printable form.
type ReportConfig struct {
	Bins        int     `json:"bins"`
	Lookup      string  `json:"lookup"`
	MaxFraction float64 `json:"max_fraction"`
}

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// Analyzer fetches history, runs the Kelly pipeline and renders charts.
type Analyzer struct {
	source   HistorySource
	defaults kelly.Config
	cache    *chartCache
	validate *validator.Validate
}

// NewAnalyzer builds an analyzer. A cacheTTL of zero disables chart caching.
func NewAnalyzer(source HistorySource, defaults kelly.Config, cacheTTL time.Duration) *Analyzer {
	return &Analyzer{
		source:   source,
		defaults: defaults,
		cache:    newChartCache(cacheTTL),
		validate: validator.New(),
	}
}

// resolve validates req and merges it with the defaults.
func (a *Analyzer) resolve(req KellyRequest) (KellyRequest, kelly.Config, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Interval = strings.ToLower(strings.TrimSpace(req.Interval))
	req.Lookup = strings.ToLower(strings.TrimSpace(req.Lookup))
	if err := a.validate.Struct(&req); err != nil {
		return req, kelly.Config{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	cfg := a.defaults
	if req.Bins > 0 {
		cfg.Bins = req.Bins
	}
	if req.Lookup != "" {
		mode, err := kelly.ParseLookupMode(req.Lookup)
		if err != nil {
			return req, kelly.Config{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		cfg.Lookup = mode
	}
	if req.MaxFraction > 0 {
		cfg.MaxFraction = req.MaxFraction
	}
	req.Interval, req.Window = normalizeIntervalWindow(req.Interval, req.Window)
	return req, cfg, nil
}

// Run fetches the symbol's history and computes both trajectories.
func (a *Analyzer) Run(ctx context.Context, req KellyRequest) (*KellyReport, error) {
	req, cfg, err := a.resolve(req)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, req, cfg)
}

func (a *Analyzer) run(ctx context.Context, req KellyRequest, cfg kelly.Config) (*KellyReport, error) {
	start := time.Now()
	obs, err := a.source.FetchHistory(ctx, req.Symbol, req.Interval, req.Window)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.Symbol, err)
	}
	res, err := kelly.ComputeContext(ctx, obs, cfg)
	if err != nil {
		return nil, fmt.Errorf("kelly %s: %w", req.Symbol, err)
	}

	report := &KellyReport{
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Range:    req.Window,
		Config:   ReportConfig{Bins: cfg.Bins, Lookup: cfg.Lookup.String(), MaxFraction: cfg.MaxFraction},
		Result:   res,
	}
	for _, st := range res.Steps {
		if st.Fraction > 0 {
			report.BetSteps++
		}
	}
	ppy := periodsPerYear(req.Interval)
	if report.AllInStats, err = calculateStats(res.AllIn.Values(), ppy); err != nil {
		log.Warn().Err(err).Str("symbol", req.Symbol).Msg("all-in stats unavailable")
	}
	if report.KellyStats, err = calculateStats(res.Kelly.Values(), ppy); err != nil {
		log.Warn().Err(err).Str("symbol", req.Symbol).Msg("kelly stats unavailable")
	}

	log.Info().
		Str("symbol", req.Symbol).
		Str("interval", req.Interval).
		Str("range", req.Window).
		Int("bars", len(obs)).
		Int("bins", cfg.Bins).
		Str("lookup", cfg.Lookup.String()).
		Int("bet_steps", report.BetSteps).
		Dur("took", time.Since(start)).
		Msg("kelly backtest done")
	return report, nil
}

// Chart runs the backtest and renders it, reusing a cached PNG when possible.
func (a *Analyzer) Chart(ctx context.Context, req KellyRequest) ([]byte, *KellyReport, error) {
	req, cfg, err := a.resolve(req)
	if err != nil {
		return nil, nil, err
	}
	key := fmt.Sprintf("kelly|%s|%s|%s|%d|%s|%s", req.Symbol, req.Interval, req.Window, cfg.Bins, cfg.Lookup,
		strconv.FormatFloat(cfg.MaxFraction, 'g', -1, 64))
	if img, report, ok := a.cache.get(key); ok {
		return img, report, nil
	}
	report, err := a.run(ctx, req, cfg)
	if err != nil {
		return nil, nil, err
	}
	img, err := RenderKellyChart(report)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render chart: %w", err)
	}
	a.cache.set(key, img, report)
	return img, report, nil
}
