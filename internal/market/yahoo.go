package market

import (
	"context"
	"fmt"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"

	"tickrx/internal/logger"
)

const yahooSource = "yahoo"

// EquityLister fetches equity quotes for symbols. The default goes through
// finance-go's Yahoo backend.
type EquityLister func(symbols []string) ([]*finance.Equity, error)

// Yahoo quotes US equities. Volume is reported in USD (shares times price) so the
// same liquidity thresholds apply to coins and stocks.
type Yahoo struct {
	list EquityLister
	log  *logger.Logger
}

func NewYahoo(list EquityLister, log *logger.Logger) *Yahoo {
	if list == nil {
		list = listEquities
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Yahoo{list: list, log: log.WithField("source", yahooSource)}
}

func (y *Yahoo) Name() string {
	return yahooSource
}

func (y *Yahoo) Quotes(ctx context.Context, symbols []string) ([]Instrument, error) {
	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Source: yahooSource, Err: err}
	}

	equities, err := y.list(symbols)
	if err != nil {
		return nil, &UpstreamError{Source: yahooSource, Err: err}
	}

	out := make([]Instrument, 0, len(equities))
	for _, e := range equities {
		if e == nil || e.Symbol == "" {
			continue
		}
		out = append(out, equityToInstrument(e))
	}
	y.log.WithField("count", len(out)).Debug("quotes fetched")
	return out, nil
}

func equityToInstrument(e *finance.Equity) Instrument {
	name := e.ShortName
	if name == "" {
		name = e.LongName
	}
	in := Instrument{
		ID:          e.Symbol,
		Symbol:      e.Symbol,
		Name:        name,
		Price:       e.RegularMarketPrice,
		Change24h:   Float(e.RegularMarketChangePercent),
		LastUpdated: int64(e.RegularMarketTime),
	}
	if e.MarketCap > 0 {
		in.MarketCap = Float(float64(e.MarketCap))
	}
	if e.RegularMarketVolume > 0 {
		in.Volume24h = Float(float64(e.RegularMarketVolume) * e.RegularMarketPrice)
	}
	return in
}

func listEquities(symbols []string) ([]*finance.Equity, error) {
	iter := equity.List(symbols)
	var out []*finance.Equity
	for iter.Next() {
		out = append(out, iter.Equity())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
