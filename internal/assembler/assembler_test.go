package assembler

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickrx/internal/market"
	"tickrx/internal/narrative"
	"tickrx/internal/ranking"
)

func cands(symbols ...string) []ranking.Candidate {
	out := make([]ranking.Candidate, len(symbols))
	for i, s := range symbols {
		out[i] = ranking.Candidate{
			Instrument: market.Instrument{
				ID:        "id-" + s,
				Symbol:    s,
				Name:      s + " Token",
				Price:     float64(i + 1),
				Volume24h: market.Float(1e8),
				Change24h: market.Float(2),
			},
			Score: float64(100 - i),
		}
	}
	return out
}

func why(symbols ...string) []narrative.Rationale {
	out := make([]narrative.Rationale, len(symbols))
	for i, s := range symbols {
		out[i] = narrative.Rationale{Symbol: s, Why: "why " + s}
	}
	return out
}

func pickSymbols(ps []Pick) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Symbol
	}
	return out
}

func TestMergeKeepsGeneratorOrder(t *testing.T) {
	got := Merge(cands("BTC", "ETH", "SOL"), why("SOL", "BTC"), 10)
	assert.Equal(t, []string{"SOL", "BTC"}, pickSymbols(got))
	assert.Equal(t, "why SOL", got[0].Why)
}

func TestMergeDisplayFieldsFromCandidate(t *testing.T) {
	cs := cands("BTC", "ETH")
	got := Merge(cs, []narrative.Rationale{{Symbol: " eth ", Why: "w", Suggestion: "BUY"}}, 10)

	require.Len(t, got, 1)
	p := got[0]
	assert.Equal(t, "ETH", p.Symbol)
	assert.Equal(t, "ETH Token", p.Name)
	assert.Equal(t, cs[1].Price, p.Price)
	assert.Equal(t, cs[1].Score, p.Score)
	assert.Equal(t, cs[1].Volume24h, p.Volume24h)
	assert.Equal(t, "BUY", p.Suggestion)
}

func TestMergeDropsUnknownAndDuplicates(t *testing.T) {
	got := Merge(cands("BTC", "ETH"), why("DOGE", "ETH", "eth", "BTC", "ETH"), 10)
	assert.Equal(t, []string{"ETH", "BTC"}, pickSymbols(got))
}

func TestMergeLimit(t *testing.T) {
	cs := cands("A", "B", "C", "D")
	assert.Len(t, Merge(cs, why("A", "B", "C", "D"), 2), 2)
	assert.Len(t, Merge(cs, why("A", "B", "C", "D"), 0), 4)
	// Unknown symbols do not use up the limit.
	assert.Equal(t, []string{"A", "B"}, pickSymbols(Merge(cs, why("X", "Y", "A", "B"), 2)))
}

func TestMergeEmpty(t *testing.T) {
	got := Merge(nil, why("BTC"), 10)
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = Merge(cands("BTC"), nil, 10)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMergeRandomInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	pool := []string{"A", "B", "C", "D", "E", "F", "G", "H", "ZZ", "YY"}

	for round := 0; round < 200; round++ {
		cs := cands(pool[:r.Intn(8)]...)
		var rs []narrative.Rationale
		for i := r.Intn(15); i > 0; i-- {
			rs = append(rs, narrative.Rationale{Symbol: pool[r.Intn(len(pool))]})
		}
		limit := r.Intn(12)

		got := Merge(cs, rs, limit)
		require.NotNil(t, got)
		if limit > 0 {
			require.LessOrEqual(t, len(got), limit)
		}

		known := map[string]bool{}
		for _, c := range cs {
			known[c.Symbol] = true
		}
		seen := map[string]bool{}
		for _, p := range got {
			require.True(t, known[p.Symbol], fmt.Sprintf("round %d: %s not a candidate", round, p.Symbol))
			require.False(t, seen[p.Symbol], "duplicate %s", p.Symbol)
			seen[p.Symbol] = true
		}
	}
}

func TestBuildSerialization(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 30, 0, 123_000_000, time.FixedZone("X", 3600))

	p := Build(now, "coingecko", nil, nil, NoteNoCandidates)
	b, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "2025-03-01T11:30:00.123Z", raw["timestamp"])
	assert.Equal(t, "coingecko", raw["source"])
	assert.Equal(t, []any{}, raw["candidates"])
	assert.Equal(t, []any{}, raw["picks"])
	assert.Equal(t, NoteNoCandidates, raw["note"])

	p = Build(now, "coingecko", cands("BTC"), Merge(cands("BTC"), why("BTC"), 10), "")
	b, err = json.Marshal(p)
	require.NoError(t, err)
	raw = map[string]any{}
	require.NoError(t, json.Unmarshal(b, &raw))
	_, hasNote := raw["note"]
	assert.False(t, hasNote)

	pick := raw["picks"].([]any)[0].(map[string]any)
	assert.Nil(t, pick["pct_1h"])
	assert.Contains(t, pick, "pct_1h")
	assert.NotContains(t, pick, "suggestion")
	assert.Equal(t, "why BTC", pick["why"])
}
