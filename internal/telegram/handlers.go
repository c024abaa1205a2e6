package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kellyBotTrade/internal/finance"
	"kellyBotTrade/internal/storage"
)

const (
	symbolPattern   = `([A-Za-z0-9\.^_=+-]+)`
	intervalPattern = `(?:\s+(1m|5m|15m|1h|1d))?`
	windowPattern   = `(?:\s+(1d|5d|1m|3m|6m|1y|2y|5y|10y|30y))?`
	binsPattern     = `(?:\s+(\d{1,3}))?`
)

var (
	// /kelly SYMBOL [interval] [window] [bins]
	reKelly = regexp.MustCompile(`^/kelly(?:@[\w_]+)?\s+` + symbolPattern + intervalPattern + windowPattern + binsPattern + `$`)
	// /kellyx SYMBOL [interval] [window] [bins]
	reKellyX = regexp.MustCompile(`^/kellyx(?:@[\w_]+)?\s+` + symbolPattern + intervalPattern + windowPattern + binsPattern + `$`)
	// /bins SYMBOL [interval] [window] [bins]
	reBins = regexp.MustCompile(`^/bins(?:@[\w_]+)?\s+` + symbolPattern + intervalPattern + windowPattern + binsPattern + `$`)
	// /usage [days]
	reUsage = regexp.MustCompile(`^/usage(?:@[\w_]+)?(?:\s+(\d+))?$`)
	// /help
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// Sender is the part of tgbotapi.BotAPI the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// KellyService runs backtests and renders their charts.
type KellyService interface {
	Run(ctx context.Context, req finance.KellyRequest) (*finance.KellyReport, error)
	Chart(ctx context.Context, req finance.KellyRequest) ([]byte, *finance.KellyReport, error)
}

// Explainer produces plain-language commentary for a report.
type Explainer interface {
	ExplainKelly(ctx context.Context, report *finance.KellyReport) (string, error)
}

// UsageStore records and aggregates handled commands.
type UsageStore interface {
	LogCommand(e storage.UsageEntry) error
	UsageStats(since int64) (map[string]*storage.UsageStats, error)
	UsageTimeSeries(since, bucketSeconds int64) (map[string][]storage.TimeSeriesPoint, error)
}

// Deps are the collaborators of the command handlers. Explainer may be nil.
type Deps struct {
	Kelly   KellyService
	Explain Explainer
	Usage   UsageStore
	Timeout time.Duration
}

type Handlers struct {
	api  Sender
	deps Deps
	now  func() time.Time
}

func NewHandlers(api Sender, deps Deps) *Handlers {
	if deps.Timeout <= 0 {
		deps.Timeout = 60 * time.Second
	}
	return &Handlers{api: api, deps: deps, now: time.Now}
}

// command is one parsed invocation, tracked for the usage log.
type command struct {
	id       string
	chatID   int64
	userID   int64
	category string
	name     string
	symbol   string
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	cmd := command{id: uuid.NewString(), chatID: m.Chat.ID}
	if m.From != nil {
		cmd.userID = m.From.ID
	}

	switch {
	case reKelly.MatchString(txt):
		cmd.category, cmd.name = "kelly", "/kelly"
		req, err := kellyRequest(reKelly.FindStringSubmatch(txt))
		cmd.symbol = req.Symbol
		h.finish(cmd, h.orFail(cmd, "Kelly", err, func() error { return h.handleKelly(cmd, req) }))

	case reKellyX.MatchString(txt):
		cmd.category, cmd.name = "explain", "/kellyx"
		req, err := kellyRequest(reKellyX.FindStringSubmatch(txt))
		cmd.symbol = req.Symbol
		h.finish(cmd, h.orFail(cmd, "Kelly", err, func() error { return h.handleKellyX(cmd, req) }))

	case reBins.MatchString(txt):
		cmd.category, cmd.name = "kelly", "/bins"
		req, err := kellyRequest(reBins.FindStringSubmatch(txt))
		cmd.symbol = req.Symbol
		h.finish(cmd, h.orFail(cmd, "Bins", err, func() error { return h.handleBins(cmd, req) }))

	case reUsage.MatchString(txt):
		cmd.category, cmd.name = "usage", "/usage"
		days := 7
		if g := reUsage.FindStringSubmatch(txt); len(g) == 2 && g[1] != "" {
			days, _ = strconv.Atoi(g[1])
			if days < 1 {
				days = 1
			}
			if days > 90 {
				days = 90
			}
		}
		h.finish(cmd, h.handleUsage(cmd, days))

	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)
	}
}

// orFail replies with a parse error or runs fn.
func (h *Handlers) orFail(cmd command, label string, err error, fn func() error) error {
	if err != nil {
		h.reply(cmd.chatID, label+" failed: "+err.Error())
		return err
	}
	return fn()
}

// kellyRequest builds a request from the submatches of one of the
// SYMBOL [interval] [window] [bins] patterns.
func kellyRequest(g []string) (finance.KellyRequest, error) {
	req := finance.KellyRequest{Symbol: strings.ToUpper(g[1]), Interval: g[2], Window: g[3]}
	if g[4] != "" {
		n, err := strconv.Atoi(g[4])
		if err != nil || n < 1 {
			return req, fmt.Errorf("%w: bins must be a positive number", finance.ErrInvalidRequest)
		}
		req.Bins = n
	}
	return req, nil
}

func (h *Handlers) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.deps.Timeout)
}

func (h *Handlers) handleKelly(cmd command, req finance.KellyRequest) error {
	ctx, cancel := h.commandContext()
	defer cancel()

	img, report, err := h.deps.Kelly.Chart(ctx, req)
	if err != nil {
		h.reply(cmd.chatID, "Kelly failed: "+err.Error())
		return err
	}
	h.sendChart(cmd.chatID, img, report)
	return nil
}

func (h *Handlers) handleKellyX(cmd command, req finance.KellyRequest) error {
	if h.deps.Explain == nil {
		h.reply(cmd.chatID, "AI commentary is not configured.")
		return errors.New("commentary not configured")
	}
	ctx, cancel := h.commandContext()
	defer cancel()

	img, report, err := h.deps.Kelly.Chart(ctx, req)
	if err != nil {
		h.reply(cmd.chatID, "Kelly failed: "+err.Error())
		return err
	}
	h.sendChart(cmd.chatID, img, report)

	out, err := h.deps.Explain.ExplainKelly(ctx, report)
	if err != nil {
		h.reply(cmd.chatID, "Commentary failed: "+err.Error())
		return err
	}
	msg := tgbotapi.NewMessage(cmd.chatID, out)
	msg.ParseMode = "Markdown"
	h.send(msg)
	return nil
}

func (h *Handlers) handleBins(cmd command, req finance.KellyRequest) error {
	ctx, cancel := h.commandContext()
	defer cancel()

	report, err := h.deps.Kelly.Run(ctx, req)
	if err != nil {
		h.reply(cmd.chatID, "Bins failed: "+err.Error())
		return err
	}
	h.reply(cmd.chatID, finance.FormatBins(report))
	return nil
}

func (h *Handlers) handleUsage(cmd command, days int) error {
	if h.deps.Usage == nil {
		h.reply(cmd.chatID, "Usage tracking is not configured.")
		return errors.New("usage tracking not configured")
	}
	since := h.now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
	stats, err := h.deps.Usage.UsageStats(since)
	if err != nil {
		h.reply(cmd.chatID, "Usage failed: "+err.Error())
		return err
	}
	text := finance.FormatUsageStatsText(stats, days)
	if len(stats) == 0 {
		h.reply(cmd.chatID, text)
		return nil
	}

	img, err := finance.MakeUsageChart(stats, days)
	if err != nil {
		h.reply(cmd.chatID, "Usage failed: "+err.Error())
		return err
	}
	photo := tgbotapi.NewPhoto(cmd.chatID, tgbotapi.FileBytes{Name: "usage.png", Bytes: img})
	photo.Caption = text
	h.send(photo)

	if days < 2 {
		return nil
	}
	series, err := h.deps.Usage.UsageTimeSeries(since, 24*3600)
	if err != nil {
		log.Warn().Err(err).Str("request_id", cmd.id).Msg("usage time series unavailable")
		return nil
	}
	if img, err := finance.MakeUsageTimeSeriesChart(series, days); err == nil {
		h.send(tgbotapi.NewPhoto(cmd.chatID, tgbotapi.FileBytes{Name: "usage_daily.png", Bytes: img}))
	} else {
		log.Warn().Err(err).Str("request_id", cmd.id).Msg("usage time series chart failed")
	}
	return nil
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /kelly SYMBOL [1m|5m|15m|1h|1d] [1d|5d|1m|3m|6m|1y|2y|5y|10y|30y] [bins] - All-in vs Kelly-sized backtest chart\n" +
		"- /kellyx SYMBOL [interval] [window] [bins] - Same chart plus AI commentary\n" +
		"- /bins SYMBOL [interval] [window] [bins] - Bucket table: range, samples and assumed edge per bin\n" +
		"- /usage [days] - Command usage over the last N days (default: 7, max: 90)\n" +
		"\nLookup modes: normalized ranks bins by Kelly wealth / first price, wealth ranks the raw Kelly wealth (literal). The server default comes from KELLY_LOOKUP and every caption and chart subtitle names the mode used.\n" +
		"\nDefaults: 1d interval, 2y window. Limits (Yahoo): 1m→1mo, 5m→3mo, 15m→6mo, 1h→2y, 1d→30y."
	h.reply(chatID, help)
}

func (h *Handlers) sendChart(chatID int64, img []byte, report *finance.KellyReport) {
	name := fmt.Sprintf("%s_%s_%s_kelly.png", report.Symbol, report.Interval, report.Range)
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	photo.Caption = finance.FormatCaption(report)
	h.send(photo)
}

// finish logs the outcome and records it in the usage table.
func (h *Handlers) finish(cmd command, err error) {
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Str("request_id", cmd.id).Int64("chat_id", cmd.chatID).Str("command", cmd.name).Str("symbol", cmd.symbol).Msg("telegram: command handled")

	if h.deps.Usage == nil {
		return
	}
	entry := storage.UsageEntry{
		RequestID: cmd.id,
		ChatID:    cmd.chatID,
		UserID:    cmd.userID,
		Category:  cmd.category,
		Command:   cmd.name,
		Symbol:    cmd.symbol,
		OK:        err == nil,
		Timestamp: h.now().Unix(),
	}
	if err := h.deps.Usage.LogCommand(entry); err != nil {
		log.Warn().Err(err).Str("request_id", cmd.id).Msg("telegram: usage log failed")
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		log.Error().Err(err).Msg("telegram: send failed")
	}
}
