package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tickrx/internal/config"
	"tickrx/internal/dashboard"
	"tickrx/internal/llm"
	"tickrx/internal/logger"
	"tickrx/internal/market"
	"tickrx/internal/narrative"
	"tickrx/internal/ranking"
)

type components struct {
	narrator  *narrative.Generator
	dashboard *dashboard.Service
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

func buildComponents(ctx context.Context, cfg *config.Config, log *logger.Logger) (*components, error) {
	coins := newCoinGecko(cfg, log)

	var stocks dashboard.StockSource
	if cfg.Market.Yahoo.Enabled {
		stocks = market.NewYahoo(nil, log)
	}

	completer, err := llm.New(ctx, llm.Config{
		Enabled:     cfg.LLM.Enabled,
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		ByAzure:     cfg.LLM.ByAzure,
		APIVersion:  cfg.LLM.APIVersion,
		Timeout:     time.Duration(cfg.LLM.TimeoutMs) * time.Millisecond,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, log)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.WithError(err).Warn("narrative disabled")
		completer = nil
	case err != nil:
		return nil, err
	default:
		log.WithFields(map[string]any{"provider": completer.Provider(), "model": cfg.LLM.Model}).Info("narrative enabled")
	}
	gen := narrative.New(completer, cfg.LLM.Temperature, log)

	opts := dashboard.DefaultOptions()
	opts.Crypto = rankingConfig(cfg.Ranking.Crypto)
	opts.CryptoShortlist = cfg.Ranking.Crypto.ShortlistLimit
	opts.Stocks = rankingConfig(cfg.Ranking.Stocks)
	opts.StockShortlist = cfg.Ranking.Stocks.ShortlistLimit
	opts.StockUniverse = cfg.Market.Yahoo.Universe

	return &components{
		narrator:  gen,
		dashboard: dashboard.New(coins, stocks, gen, opts, log),
	}, nil
}

func newCoinGecko(cfg *config.Config, log *logger.Logger) *market.CoinGecko {
	cg := cfg.Market.CoinGecko
	return market.NewCoinGecko(market.CoinGeckoConfig{
		BaseURL:           cg.BaseURL,
		APIKey:            cg.APIKey,
		Timeout:           time.Duration(cg.TimeoutMs) * time.Millisecond,
		RequestsPerMinute: cg.RequestsPerMinute,
		PerPage:           cg.PerPage,
	}, log)
}

func rankingConfig(p config.RankingPreset) ranking.Config {
	return ranking.Config{
		MinVolume:       p.MinVolume,
		MinMarketCap:    p.MinMarketCap,
		MaxAbsChange24h: p.MaxAbsChange24h,
		TargetChange24h: p.TargetChange24h,
		ProximityWeight: p.ProximityWeight,
		MomentumWeight:  p.MomentumWeight,
		ResultLimit:     p.ScanLimit,
	}
}
