// Package dashboard runs one request end to end: fetch a live snapshot, rank it,
// ask the narrator for rationales and assemble the payload. Nothing is cached.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tickrx/internal/assembler"
	"tickrx/internal/logger"
	"tickrx/internal/market"
	"tickrx/internal/narrative"
	"tickrx/internal/ranking"
)

var (
	ErrNoSymbols      = errors.New("no symbols provided")
	ErrStocksDisabled = errors.New("stock quotes disabled")
)

const (
	SourceCoinGecko = "coingecko"
	SourceYahoo     = "yahoo"
)

type CoinSource interface {
	Markets(ctx context.Context) ([]market.Instrument, error)
	MarketsBySymbols(ctx context.Context, symbols []string) ([]market.Instrument, error)
}

type StockSource interface {
	Quotes(ctx context.Context, symbols []string) ([]market.Instrument, error)
}

type Narrator interface {
	Enabled() bool
	Picks(ctx context.Context, req narrative.PickRequest) (narrative.PickResult, error)
}

type Options struct {
	Crypto          ranking.Config
	CryptoShortlist int
	Stocks          ranking.Config
	StockShortlist  int
	StockUniverse   []string
	TargetGainPct   float64
	Risk            string
	UniverseLabel   string
	Now             func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Crypto:          ranking.DefaultConfig(),
		CryptoShortlist: ranking.DefaultShortlistLimit,
		Stocks:          ranking.DefaultConfig(),
		StockShortlist:  ranking.DefaultShortlistLimit,
		TargetGainPct:   5,
		Risk:            "medium",
		UniverseLabel:   "US",
	}
}

type StocksPayload struct {
	assembler.Payload
	TargetGainPct float64 `json:"target_gain_pct"`
	Risk          string  `json:"risk"`
	Universe      string  `json:"universe"`
	Notes         string  `json:"notes,omitempty"`
}

type Service struct {
	coins    CoinSource
	stocks   StockSource
	narrator Narrator
	opts     Options
	log      *logger.Logger
}

// New wires a service. stocks and narrator may be nil.
func New(coins CoinSource, stocks StockSource, narrator Narrator, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		coins:    coins,
		stocks:   stocks,
		narrator: narrator,
		opts:     opts,
		log:      log.WithField("component", "dashboard"),
	}
}

// ScanCrypto ranks the broad market and narrates the shortlist.
func (s *Service) ScanCrypto(ctx context.Context) (assembler.Payload, error) {
	snapshot, err := s.coins.Markets(ctx)
	if err != nil {
		return assembler.Payload{}, fmt.Errorf("crypto scan: %w", err)
	}
	candidates := ranking.Rank(snapshot, s.opts.Crypto)
	s.log.WithFields(map[string]any{"snapshot": len(snapshot), "candidates": len(candidates)}).Debug("crypto scan ranked")

	if len(candidates) == 0 {
		return assembler.Build(s.opts.Now(), SourceCoinGecko, candidates, nil, assembler.NoteNoCandidates), nil
	}

	res, note := s.narrate(ctx, narrative.PickRequest{
		Kind:          narrative.KindCrypto,
		Candidates:    candidates,
		Limit:         s.opts.CryptoShortlist,
		TargetGainPct: s.opts.TargetGainPct,
	})
	picks := assembler.Merge(candidates, res.Rationales, s.opts.CryptoShortlist)
	return assembler.Build(s.opts.Now(), SourceCoinGecko, candidates, picks, note), nil
}

// LookupCrypto quotes the given symbols. Every returned coin is kept and ordered
// by score; the usual liquidity filters do not apply.
func (s *Service) LookupCrypto(ctx context.Context, symbols []string) (assembler.Payload, error) {
	symbols = market.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return assembler.Payload{}, ErrNoSymbols
	}

	snapshot, err := s.coins.MarketsBySymbols(ctx, symbols)
	if err != nil {
		return assembler.Payload{}, fmt.Errorf("crypto lookup: %w", err)
	}
	candidates := ranking.Rank(snapshot, s.opts.Crypto.Unfiltered())

	if len(candidates) == 0 {
		return assembler.Build(s.opts.Now(), SourceCoinGecko, candidates, nil, assembler.NoteNoSymbolResults), nil
	}

	res, note := s.narrate(ctx, narrative.PickRequest{
		Kind:          narrative.KindCrypto,
		Candidates:    candidates,
		Limit:         len(candidates),
		TargetGainPct: s.opts.TargetGainPct,
	})
	picks := assembler.Merge(candidates, res.Rationales, len(candidates))
	return assembler.Build(s.opts.Now(), SourceCoinGecko, candidates, picks, note), nil
}

// TopStocks ranks the configured equity universe.
func (s *Service) TopStocks(ctx context.Context) (StocksPayload, error) {
	if s.stocks == nil || len(s.opts.StockUniverse) == 0 {
		return StocksPayload{}, ErrStocksDisabled
	}
	snapshot, err := s.stocks.Quotes(ctx, s.opts.StockUniverse)
	if err != nil {
		return StocksPayload{}, fmt.Errorf("stock scan: %w", err)
	}
	candidates := ranking.Rank(snapshot, s.opts.Stocks)

	out := StocksPayload{
		TargetGainPct: s.opts.TargetGainPct,
		Risk:          s.opts.Risk,
		Universe:      s.opts.UniverseLabel,
	}
	if len(candidates) == 0 {
		out.Payload = assembler.Build(s.opts.Now(), SourceYahoo, candidates, nil, assembler.NoteNoCandidates)
		return out, nil
	}

	res, note := s.narrate(ctx, narrative.PickRequest{
		Kind:          narrative.KindStocks,
		Candidates:    candidates,
		Limit:         s.opts.StockShortlist,
		TargetGainPct: s.opts.TargetGainPct,
		Risk:          s.opts.Risk,
		Universe:      s.opts.UniverseLabel,
	})
	picks := assembler.Merge(candidates, res.Rationales, s.opts.StockShortlist)
	out.Payload = assembler.Build(s.opts.Now(), SourceYahoo, candidates, picks, note)
	out.Notes = res.Notes
	return out, nil
}

// narrate never fails the request; problems come back as a note.
func (s *Service) narrate(ctx context.Context, req narrative.PickRequest) (narrative.PickResult, string) {
	if s.narrator == nil || !s.narrator.Enabled() {
		return narrative.PickResult{}, assembler.NoteNarrativeOff
	}
	res, err := s.narrator.Picks(ctx, req)
	if err != nil {
		s.log.WithFields(map[string]any{
			"kind":       string(req.Kind),
			"candidates": len(req.Candidates),
		}).WithError(err).Warn("narrative failed, returning candidates only")
		return narrative.PickResult{}, assembler.NoteNarrativeFailed
	}
	return res, ""
}
