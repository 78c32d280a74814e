// Package ranking turns a market snapshot into a bounded, score-ordered shortlist.
//
// Instruments are dropped outright when they are illiquid, small, or have already
// moved more than MaxAbsChange24h. Survivors are scored by how close their 24h move
// is to TargetChange24h, by short-term momentum, and by a slow liquidity bonus.
package ranking

import (
	"math"
	"sort"

	"tickrx/internal/market"
)

const (
	DefaultScanLimit      = 25
	DefaultShortlistLimit = 10
)

type Config struct {
	MinVolume       float64
	MinMarketCap    float64
	MaxAbsChange24h float64
	TargetChange24h float64
	ProximityWeight float64
	MomentumWeight  float64
	// ResultLimit caps the output length. Zero or negative means unbounded.
	ResultLimit int
}

func DefaultConfig() Config {
	return Config{
		MinVolume:       50_000_000,
		MinMarketCap:    500_000_000,
		MaxAbsChange24h: 6.5,
		TargetChange24h: 2.5,
		ProximityWeight: 2,
		MomentumWeight:  1.5,
		ResultLimit:     DefaultScanLimit,
	}
}

// LookupConfig keeps every instrument and only orders them. Used when the caller
// named the symbols explicitly.
func LookupConfig(limit int) Config {
	cfg := DefaultConfig()
	cfg.MinVolume = 0
	cfg.MinMarketCap = 0
	cfg.MaxAbsChange24h = math.Inf(1)
	cfg.ResultLimit = limit
	return cfg
}

// Unfiltered keeps the scoring weights and target of c but turns the liquidity
// filters and the result limit off.
func (c Config) Unfiltered() Config {
	out := LookupConfig(0)
	out.TargetChange24h = c.TargetChange24h
	out.ProximityWeight = c.ProximityWeight
	out.MomentumWeight = c.MomentumWeight
	return out
}

// Candidate is an instrument that survived filtering, with its score.
type Candidate struct {
	market.Instrument
	Score float64 `json:"score"`
}

// Rank filters, scores and orders snapshot. It never modifies snapshot and always
// returns a non-nil slice.
func Rank(snapshot []market.Instrument, cfg Config) []Candidate {
	out := make([]Candidate, 0, len(snapshot))
	for _, in := range snapshot {
		if !Eligible(in, cfg) {
			continue
		}
		out = append(out, Candidate{Instrument: in, Score: Score(in, cfg)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if cfg.ResultLimit > 0 && len(out) > cfg.ResultLimit {
		out = out[:cfg.ResultLimit]
	}
	return out
}

// Eligible reports whether in passes the volume, market-cap and volatility filters.
func Eligible(in market.Instrument, cfg Config) bool {
	if nonNegative(in.Volume24h) < cfg.MinVolume {
		return false
	}
	if nonNegative(in.MarketCap) < cfg.MinMarketCap {
		return false
	}
	return math.Abs(change(in.Change24h)) <= cfg.MaxAbsChange24h
}

// Score computes proximity*ProximityWeight + momentum*MomentumWeight + volumeBoost.
// It does not apply the filters.
func Score(in market.Instrument, cfg Config) float64 {
	h24 := change(in.Change24h)
	h1 := change(in.Change1h)
	vol := nonNegative(in.Volume24h)

	proximity := math.Max(0, 5-math.Abs(h24-cfg.TargetChange24h))
	momentum := math.Max(0, h1+1)
	volumeBoost := math.Log10(math.Max(1, vol)) - 6

	return proximity*cfg.ProximityWeight + momentum*cfg.MomentumWeight + volumeBoost
}

// nonNegative reads an optional magnitude; missing, non-finite and negative all read as 0.
func nonNegative(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0
	}
	return *v
}

// change reads an optional signed percentage; missing and non-finite read as 0.
func change(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}
