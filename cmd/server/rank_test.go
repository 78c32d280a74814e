package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickrx/internal/config"
	"tickrx/internal/ranking"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadSnapshotCoinGecko(t *testing.T) {
	path := writeFile(t, `[{
		"id": "solana", "symbol": "sol", "name": "Solana", "current_price": 150,
		"market_cap": 70000000000, "total_volume": 3000000000,
		"price_change_percentage_1h_in_currency": 0.4,
		"price_change_percentage_24h_in_currency": 2.1
	}]`)

	got, err := readSnapshot(path, "coingecko")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SOL", got[0].Symbol)

	ranked := ranking.Rank(got, rankingConfig(config.Default().Ranking.Crypto))
	require.Len(t, ranked, 1)
	assert.Greater(t, ranked[0].Score, 0.0)
}

func TestReadSnapshotInstruments(t *testing.T) {
	path := writeFile(t, `[{"id":"x","symbol":"X","name":"X","price":1,"mcap":1e9,"volume24h":1e8,"pct_24h":2}]`)

	got, err := readSnapshot(path, "instruments")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].MarketCap)
	assert.Equal(t, 1e9, *got[0].MarketCap)
}

func TestReadSnapshotErrors(t *testing.T) {
	_, err := readSnapshot(filepath.Join(t.TempDir(), "missing.json"), "coingecko")
	assert.Error(t, err)

	_, err = readSnapshot(writeFile(t, `[]`), "csv")
	assert.Error(t, err)
}

func TestRankingConfigFromPreset(t *testing.T) {
	p := config.Default().Ranking.Stocks
	rc := rankingConfig(p)
	assert.Equal(t, p.MinMarketCap, rc.MinMarketCap)
	assert.Equal(t, p.ScanLimit, rc.ResultLimit)
	assert.Equal(t, ranking.DefaultConfig().TargetChange24h, rc.TargetChange24h)
}

func TestLookupPresetKeepsCryptoWeights(t *testing.T) {
	p := config.Default().Ranking.Crypto
	p.TargetChange24h = 9
	p.ProximityWeight = 0.1
	p.MomentumWeight = 0.9

	rc := rankingConfig(p).Unfiltered()
	assert.Equal(t, 9.0, rc.TargetChange24h)
	assert.Equal(t, 0.1, rc.ProximityWeight)
	assert.Equal(t, 0.9, rc.MomentumWeight)
	assert.Zero(t, rc.MinVolume)
	assert.Zero(t, rc.MinMarketCap)
	assert.Zero(t, rc.ResultLimit)
}
