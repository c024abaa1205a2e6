package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kellyBotTrade/internal/config"
	"kellyBotTrade/internal/finance"
	"kellyBotTrade/internal/openai"
	"kellyBotTrade/internal/server"
	"kellyBotTrade/internal/storage"
	"kellyBotTrade/internal/telegram"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Fatal().Err(err).Msg("db: open")
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("db: schema")
	}
	log.Info().Str("path", cfg.DBPath).Msg("db: usage table ready")

	defaults, err := cfg.Kelly.Core()
	if err != nil {
		log.Fatal().Err(err).Msg("config: kelly")
	}
	yahoo := finance.NewYahooClient(cfg.FetchTimeout)
	yahoo.OutlierIQR = cfg.OutlierIQR
	analyzer := finance.NewAnalyzer(yahoo, defaults, cfg.CacheTTL)

	deps := telegram.Deps{
		Kelly:   analyzer,
		Usage:   storage.NewStore(db),
		Timeout: cfg.CommandTimeout,
	}
	if cfg.OpenAIKey != "" {
		deps.Explain = openai.NewCommentator(cfg.OpenAIKey, cfg.OpenAIModel)
	} else {
		log.Warn().Msg("openai: OPENAI_API_KEY not set, /kellyx disabled")
	}

	tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram: init")
	}

	mux := server.NewHTTPMux(tg.WebhookHandler, analyzer, cfg.CommandTimeout)
	addr := ":" + cfg.Port
	log.Info().
		Str("addr", addr).
		Int("bins", defaults.Bins).
		Str("lookup", defaults.Lookup.String()).
		Float64("max_fraction", defaults.MaxFraction).
		Msg("http: listening")
	if err := server.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
