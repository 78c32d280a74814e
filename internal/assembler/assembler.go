package assembler

import (
	"strings"
	"time"

	"tickrx/internal/narrative"
	"tickrx/internal/ranking"
)

const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	NoteNoCandidates    = "No suitable candidates found under current heuristic. Try relaxing filters."
	NoteNoSymbolResults = "No results for provided symbols."
	NoteNarrativeFailed = "Narrative unavailable: picks could not be generated for this snapshot."
	NoteNarrativeOff    = "Narrative disabled: no language model configured."
)

type Pick struct {
	Name       string   `json:"name"`
	Symbol     string   `json:"symbol"`
	Price      float64  `json:"price"`
	MarketCap  *float64 `json:"mcap"`
	Volume24h  *float64 `json:"volume24h"`
	Change1h   *float64 `json:"pct_1h"`
	Change24h  *float64 `json:"pct_24h"`
	Change7d   *float64 `json:"pct_7d"`
	Score      float64  `json:"score"`
	Why        string   `json:"why"`
	Suggestion string   `json:"suggestion,omitempty"`
}

type Payload struct {
	Timestamp  string              `json:"timestamp"`
	Source     string              `json:"source"`
	Candidates []ranking.Candidate `json:"candidates"`
	Picks      []Pick              `json:"picks"`
	Note       string              `json:"note,omitempty"`
}

// Merge joins rationales to candidates by symbol. Generator order is kept,
// unknown and repeated symbols are dropped and the result is cut to limit.
// limit <= 0 means no cut.
func Merge(candidates []ranking.Candidate, rationales []narrative.Rationale, limit int) []Pick {
	bySymbol := make(map[string]int, len(candidates))
	for i, c := range candidates {
		key := symbolKey(c.Symbol)
		if _, ok := bySymbol[key]; !ok {
			bySymbol[key] = i
		}
	}

	picks := make([]Pick, 0, len(rationales))
	seen := make(map[string]struct{}, len(rationales))
	for _, r := range rationales {
		if limit > 0 && len(picks) >= limit {
			break
		}
		key := symbolKey(r.Symbol)
		idx, ok := bySymbol[key]
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		c := candidates[idx]
		picks = append(picks, Pick{
			Name:       c.Name,
			Symbol:     c.Symbol,
			Price:      c.Price,
			MarketCap:  c.MarketCap,
			Volume24h:  c.Volume24h,
			Change1h:   c.Change1h,
			Change24h:  c.Change24h,
			Change7d:   c.Change7d,
			Score:      c.Score,
			Why:        r.Why,
			Suggestion: r.Suggestion,
		})
	}
	return picks
}

// Build returns the outbound payload. Candidates and Picks are never nil.
func Build(now time.Time, source string, candidates []ranking.Candidate, picks []Pick, note string) Payload {
	if candidates == nil {
		candidates = []ranking.Candidate{}
	}
	if picks == nil {
		picks = []Pick{}
	}
	return Payload{
		Timestamp:  FormatTimestamp(now),
		Source:     source,
		Candidates: candidates,
		Picks:      picks,
		Note:       note,
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func symbolKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
