package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FxSentinel/internal/reversal"
	"FxSentinel/internal/strategy"
	"FxSentinel/internal/zones"
)

// Data providers accepted by data_source.provider.
const (
	ProviderVsTrader = "vstrader"
	ProviderYahoo    = "yahoo"
	ProviderMock     = "mock"
)

// TradingHours limits evaluation cycles to [StartHour, EndHour) UTC.
// EndHour below StartHour wraps past midnight.
type TradingHours struct {
	Enabled   bool `yaml:"enabled"`
	StartHour int  `yaml:"start_hour"`
	EndHour   int  `yaml:"end_hour"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider  string  `yaml:"provider"`
		BaseURL   string  `yaml:"base_url"`
		APIKey    string  `yaml:"api_key"`
		MockPrice float64 `yaml:"mock_price"`
	} `yaml:"data_source"`
	Symbols  []string `yaml:"symbols"`
	Schedule struct {
		EvaluateCron string       `yaml:"evaluate_cron"`
		TradingHours TradingHours `yaml:"trading_hours"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`

	Strategy strategy.Config `yaml:"strategy"`
	Reversal reversal.Config `yaml:"reversal"`
	Zones    zones.Config    `yaml:"zones"`
}

// Default returns a configuration with every tunable at its built-in value.
func Default() *Config {
	cfg := &Config{
		Symbols:  []string{"EURUSD"},
		Strategy: strategy.DefaultConfig(),
		Reversal: reversal.DefaultConfig(),
		Zones:    zones.DefaultConfig(),
	}
	cfg.DataSource.Provider = ProviderVsTrader
	cfg.DataSource.MockPrice = 1.10
	cfg.Schedule.EvaluateCron = "0 * * * * *"
	cfg.Schedule.TradingHours = TradingHours{StartHour: 7, EndHour: 21}
	cfg.Database.SQLitePath = "data/fx_sentinel.db"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads an optional .env file, then config from a YAML file layered over
// Default, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_EVALUATE"); v != "" {
		c.Schedule.EvaluateCron = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CONFIDENCE_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CONFIDENCE_THRESHOLD: %w", err)
		}
		c.Strategy.Threshold = threshold
	}
	return nil
}

func splitSymbols(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that all required fields are set and the strategy
// tunables are coherent.
func (c *Config) Validate() error {
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.DataSource.Provider {
	case ProviderVsTrader:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for provider %q", ProviderVsTrader)
		}
	case ProviderYahoo:
	case ProviderMock:
		if c.DataSource.MockPrice <= 0 {
			return fmt.Errorf("data_source.mock_price must be positive")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if c.Schedule.EvaluateCron == "" {
		return fmt.Errorf("schedule.evaluate_cron is required")
	}
	th := c.Schedule.TradingHours
	if th.StartHour < 0 || th.StartHour > 23 || th.EndHour < 0 || th.EndHour > 24 {
		return fmt.Errorf("schedule.trading_hours: hours out of range (%d, %d)", th.StartHour, th.EndHour)
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if err := c.Reversal.Validate(); err != nil {
		return err
	}
	if err := c.Zones.Validate(); err != nil {
		return err
	}
	return nil
}
