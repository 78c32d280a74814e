package market

import (
	"fmt"
	"strings"
)

// Instrument is one tradable asset at a point in time. Optional values are nil
// when the source did not report them.
type Instrument struct {
	ID          string   `json:"id"`
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	MarketCap   *float64 `json:"mcap"`
	Volume24h   *float64 `json:"volume24h"`
	Change1h    *float64 `json:"pct_1h"`
	Change24h   *float64 `json:"pct_24h"`
	Change7d    *float64 `json:"pct_7d"`
	LastUpdated int64    `json:"last_updated_at,omitempty"`
}

// Float returns a pointer to v, for building optional Instrument fields.
func Float(v float64) *float64 {
	return &v
}

// UpstreamError reports a failed or non-success call to a market-data source.
type UpstreamError struct {
	Source string
	Status int
	Detail string
	Err    error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s request failed", e.Source)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NormalizeSymbols trims, upper-cases and de-duplicates symbols, keeping order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
