package market

import (
	"context"
	"errors"
	"testing"

	finance "github.com/piquette/finance-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooQuotesConvertsEquities(t *testing.T) {
	var asked []string
	y := NewYahoo(func(symbols []string) ([]*finance.Equity, error) {
		asked = symbols
		aapl := &finance.Equity{MarketCap: 3_000_000_000_000, LongName: "Apple Inc."}
		aapl.Symbol = "AAPL"
		aapl.ShortName = "Apple"
		aapl.RegularMarketPrice = 200
		aapl.RegularMarketChangePercent = 1.5
		aapl.RegularMarketVolume = 1_000_000

		thin := &finance.Equity{}
		thin.Symbol = "THIN"
		thin.RegularMarketPrice = 3
		return []*finance.Equity{aapl, nil, thin}, nil
	}, nil)

	got, err := y.Quotes(context.Background(), []string{"aapl", "thin", "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "THIN"}, asked)
	require.Len(t, got, 2)

	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "Apple", got[0].Name)
	require.NotNil(t, got[0].Volume24h)
	assert.Equal(t, 200_000_000.0, *got[0].Volume24h, "volume is in dollars")
	require.NotNil(t, got[0].MarketCap)
	assert.Equal(t, 3e12, *got[0].MarketCap)
	require.NotNil(t, got[0].Change24h)
	assert.Equal(t, 1.5, *got[0].Change24h)
	assert.Nil(t, got[0].Change1h)

	assert.Nil(t, got[1].Volume24h)
	assert.Nil(t, got[1].MarketCap)
}

func TestYahooFailureIsUpstreamError(t *testing.T) {
	y := NewYahoo(func([]string) ([]*finance.Equity, error) {
		return nil, errors.New("remote error")
	}, nil)

	_, err := y.Quotes(context.Background(), []string{"AAPL"})
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, "yahoo", upErr.Source)
}

func TestYahooCancelledContext(t *testing.T) {
	called := false
	y := NewYahoo(func([]string) ([]*finance.Equity, error) {
		called = true
		return nil, nil
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := y.Quotes(ctx, []string{"AAPL"})
	require.Error(t, err)
	assert.False(t, called)
}

func TestNormalizeSymbols(t *testing.T) {
	assert.Equal(t, []string{"BTC", "ETH"}, NormalizeSymbols([]string{" btc", "ETH", "", "Btc"}))
	assert.Empty(t, NormalizeSymbols(nil))
}
