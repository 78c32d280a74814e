package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Market  MarketConfig  `yaml:"market"`
	Ranking RankingConfig `yaml:"ranking"`
	LLM     LLMConfig     `yaml:"llm"`
	Store   StoreConfig   `yaml:"store"`
	Push    PushConfig    `yaml:"push"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MarketConfig struct {
	CoinGecko CoinGeckoConfig `yaml:"coingecko"`
	Yahoo     YahooConfig     `yaml:"yahoo"`
}

type CoinGeckoConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	TimeoutMs         int    `yaml:"timeout_ms"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	PerPage           int    `yaml:"per_page"`
}

type YahooConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Universe []string `yaml:"universe"`
}

type RankingConfig struct {
	Crypto RankingPreset `yaml:"crypto"`
	Stocks RankingPreset `yaml:"stocks"`
}

// RankingPreset mirrors ranking.Config plus the two result sizes used by the scans.
type RankingPreset struct {
	MinVolume       float64 `yaml:"min_volume"`
	MinMarketCap    float64 `yaml:"min_market_cap"`
	MaxAbsChange24h float64 `yaml:"max_abs_change_24h"`
	TargetChange24h float64 `yaml:"target_change_24h"`
	ProximityWeight float64 `yaml:"proximity_weight"`
	MomentumWeight  float64 `yaml:"momentum_weight"`
	ScanLimit       int     `yaml:"scan_limit"`
	ShortlistLimit  int     `yaml:"shortlist_limit"`
}

type LLMConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	ByAzure     bool    `yaml:"by_azure"`
	APIVersion  string  `yaml:"api_version"`
	TimeoutMs   int     `yaml:"timeout_ms"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type StoreConfig struct {
	Sqlite SqliteConfig `yaml:"sqlite"`
}

type SqliteConfig struct {
	Path string `yaml:"path"`
}

type PushConfig struct {
	Dingtalk DingtalkConfig `yaml:"dingtalk"`
}

type DingtalkConfig struct {
	Webhook   string `yaml:"webhook"`
	Secret    string `yaml:"secret"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

func Default() Config {
	crypto := RankingPreset{
		MinVolume:       50_000_000,
		MinMarketCap:    500_000_000,
		MaxAbsChange24h: 6.5,
		TargetChange24h: 2.5,
		ProximityWeight: 2,
		MomentumWeight:  1.5,
		ScanLimit:       25,
		ShortlistLimit:  10,
	}
	stocks := crypto
	stocks.MinMarketCap = 2_000_000_000

	return Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", Format: "json"},
		Market: MarketConfig{
			CoinGecko: CoinGeckoConfig{
				BaseURL:           "https://api.coingecko.com/api/v3",
				TimeoutMs:         10000,
				RequestsPerMinute: 30,
				PerPage:           200,
			},
			Yahoo: YahooConfig{
				Enabled: true,
				Universe: []string{
					"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "AMD",
					"AVGO", "NFLX", "JPM", "BAC", "XOM", "CVX", "WMT", "COST",
					"UNH", "LLY", "PFE", "KO", "PEP", "DIS", "INTC", "CRM",
					"ORCL", "ADBE", "QCOM", "PLTR", "UBER", "SHOP",
				},
			},
		},
		Ranking: RankingConfig{Crypto: crypto, Stocks: stocks},
		LLM: LLMConfig{
			Enabled:     true,
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			TimeoutMs:   30000,
			Temperature: 0.2,
			MaxTokens:   2048,
		},
		Store: StoreConfig{Sqlite: SqliteConfig{Path: "data/tickrx.db"}},
		Push:  PushConfig{Dingtalk: DingtalkConfig{TimeoutMs: 5000}},
	}
}

// Load reads path (defaults when it does not exist), then .env, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	_ = godotenv.Load()

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = p
	}
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Market.CoinGecko.APIKey, "CG_API_KEY")
	setString(&cfg.Market.CoinGecko.BaseURL, "CG_BASE_URL")
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.Store.Sqlite.Path, "SQLITE_PATH")
	setString(&cfg.Push.Dingtalk.Webhook, "DINGTALK_WEBHOOK")
	setString(&cfg.Push.Dingtalk.Secret, "DINGTALK_SECRET")

	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "gemini":
			setString(&cfg.LLM.APIKey, "GEMINI_API_KEY")
		case "claude", "anthropic":
			setString(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
		default:
			setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
		}
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case "", "openai":
		setString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	}
	return nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "gemini", "claude", "anthropic":
	default:
		return fmt.Errorf("invalid llm.provider: %q", c.LLM.Provider)
	}
	for name, p := range map[string]RankingPreset{"crypto": c.Ranking.Crypto, "stocks": c.Ranking.Stocks} {
		if p.ScanLimit <= 0 || p.ShortlistLimit <= 0 {
			return fmt.Errorf("ranking.%s: scan_limit and shortlist_limit must be positive", name)
		}
		if p.MaxAbsChange24h < 0 {
			return fmt.Errorf("ranking.%s: max_abs_change_24h must not be negative", name)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
