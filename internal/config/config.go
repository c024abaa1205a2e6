package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"kellyBotTrade/internal/kelly"
)

// Default values for optional configuration fields.
const (
	DefaultPort          = "9095"
	DefaultDBPath        = "/app/data/usage.db"
	DefaultLogLevel      = "info"
	DefaultLookup        = "normalized"
	DefaultCacheTTL      = 60 * time.Second
	DefaultFetchTimeout  = 20 * time.Second
	DefaultOpenAIModel   = "gpt-4"
	DefaultCommandBudget = 60 * time.Second
)

type Config struct {
	TelegramToken    string        `yaml:"telegram_token"`
	WebhookPublicURL string        `yaml:"webhook_public_url" validate:"omitempty,url"`
	OpenAIKey        string        `yaml:"openai_key"`
	OpenAIModel      string        `yaml:"openai_model"`
	Port             string        `yaml:"port" validate:"required,numeric"`
	DBPath           string        `yaml:"db_path" validate:"required"`
	LogLevel         string        `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	CacheTTL         time.Duration `yaml:"chart_cache_ttl" validate:"gte=0"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	OutlierIQR       float64       `yaml:"outlier_iqr" validate:"gte=0"`
	CommandTimeout   time.Duration `yaml:"command_timeout" validate:"gt=0"`
	Kelly            KellyConfig   `yaml:"kelly"`
}

// KellyConfig holds the defaults used when a request leaves a parameter out.
type KellyConfig struct {
	Bins        int     `yaml:"bins" validate:"gte=1,lte=500"`
	Lookup      string  `yaml:"lookup" validate:"oneof=wealth literal normalized corrected"`
	MaxFraction float64 `yaml:"max_fraction" validate:"gt=0,lte=10"`
}

// Core converts the defaults into a kelly.Config.
func (k KellyConfig) Core() (kelly.Config, error) {
	mode, err := kelly.ParseLookupMode(k.Lookup)
	if err != nil {
		return kelly.Config{}, err
	}
	return kelly.Config{Bins: k.Bins, Lookup: mode, MaxFraction: k.MaxFraction}, nil
}

// Load reads the optional YAML file named by CONFIG_FILE, then applies
// environment overrides and defaults, and validates the result.
func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// loadFile reads a YAML config file and expands ${VAR} environment variables.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("TELEGRAM_BOT_TOKEN", &cfg.TelegramToken)
	setString("WEBHOOK_PUBLIC_URL", &cfg.WebhookPublicURL)
	setString("OPENAI_API_KEY", &cfg.OpenAIKey)
	setString("OPENAI_MODEL", &cfg.OpenAIModel)
	setString("PORT", &cfg.Port)
	setString("DB_PATH", &cfg.DBPath)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("KELLY_LOOKUP", &cfg.Kelly.Lookup)

	if v := os.Getenv("KELLY_BINS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KELLY_BINS: %w", err)
		}
		cfg.Kelly.Bins = n
	}
	if v := os.Getenv("KELLY_MAX_FRACTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("KELLY_MAX_FRACTION: %w", err)
		}
		cfg.Kelly.MaxFraction = f
	}
	if v := os.Getenv("YAHOO_OUTLIER_IQR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("YAHOO_OUTLIER_IQR: %w", err)
		}
		cfg.OutlierIQR = f
	}
	for key, dst := range map[string]*time.Duration{
		"CHART_CACHE_TTL": &cfg.CacheTTL,
		"FETCH_TIMEOUT":   &cfg.FetchTimeout,
		"COMMAND_TIMEOUT": &cfg.CommandTimeout,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultOpenAIModel
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandBudget
	}
	if c.Kelly.Bins == 0 {
		c.Kelly.Bins = kelly.DefaultBins
	}
	if c.Kelly.Lookup == "" {
		c.Kelly.Lookup = DefaultLookup
	}
	if c.Kelly.MaxFraction == 0 {
		c.Kelly.MaxFraction = kelly.DefaultMaxFraction
	}
}

var validate = validator.New()

// Validate checks the fields every entry point needs.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// ValidateBot additionally requires the Telegram settings.
func (c *Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return errors.New("missing env TELEGRAM_BOT_TOKEN")
	}
	if c.WebhookPublicURL == "" {
		return errors.New("missing env WEBHOOK_PUBLIC_URL")
	}
	return nil
}
