package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"tickrx/internal/assembler"
	"tickrx/internal/dashboard"
	"tickrx/internal/logger"
	"tickrx/internal/narrative"
	"tickrx/internal/subscribe"
)

type Dashboard interface {
	ScanCrypto(ctx context.Context) (assembler.Payload, error)
	LookupCrypto(ctx context.Context, symbols []string) (assembler.Payload, error)
	TopStocks(ctx context.Context) (dashboard.StocksPayload, error)
}

type Analyst interface {
	Enabled() bool
	Answer(ctx context.Context, stock, question string) (string, error)
	Analyze(ctx context.Context, ticker, companyName string) (narrative.Report, error)
}

type Signups interface {
	Subscribe(ctx context.Context, req subscribe.Request, userAgent string) (subscribe.Result, error)
}

type Deps struct {
	Dashboard Dashboard
	Analyst   Analyst
	Signups   Signups
	Log       *logger.Logger
}

type AskStockRequest struct {
	Stock    string `json:"stock"`
	Question string `json:"question"`
}

type StockAnalysisRequest struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"companyName"`
}

type StockAnalysisResponse struct {
	OK          bool                    `json:"ok"`
	Ticker      string                  `json:"ticker"`
	CompanyName string                  `json:"companyName,omitempty"`
	Analysis    narrative.AnalystReport `json:"analysis"`
	PromptUsed  string                  `json:"promptUsed"`
}

var tickerPattern = regexp.MustCompile(`^[A-Za-z.\-]{1,10}$`)

func RegisterRoutes(h *server.Hertz, d Deps) {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	h.Use(requestID(), accessLog(d.Log), recovery(d.Log))

	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.GET("/api/crypto", func(ctx context.Context, c *app.RequestContext) {
		payload, err := d.Dashboard.ScanCrypto(ctx)
		if err != nil {
			writeError(c, reqLog(d.Log, c), err)
			return
		}
		c.JSON(http.StatusOK, payload)
	})

	h.POST("/api/crypto-by-symbol", func(ctx context.Context, c *app.RequestContext) {
		symbols, err := parseSymbolsBody(c.Request.Body())
		if err != nil || len(symbols) == 0 {
			c.JSON(http.StatusBadRequest, map[string]any{
				"error":  "Invalid request",
				"detail": `Provide body like: { "symbols": ["BCH","MNT"] }`,
			})
			return
		}
		payload, err := d.Dashboard.LookupCrypto(ctx, symbols)
		if err != nil {
			writeError(c, reqLog(d.Log, c), err)
			return
		}
		c.JSON(http.StatusOK, payload)
	})

	h.GET("/api/stocks/top", func(ctx context.Context, c *app.RequestContext) {
		payload, err := d.Dashboard.TopStocks(ctx)
		if err != nil {
			writeError(c, reqLog(d.Log, c), err)
			return
		}
		c.JSON(http.StatusOK, payload)
	})

	h.POST("/api/ask-stock", func(ctx context.Context, c *app.RequestContext) {
		var req AskStockRequest
		_ = json.Unmarshal(c.Request.Body(), &req)
		req.Stock = strings.TrimSpace(req.Stock)
		req.Question = strings.TrimSpace(req.Question)
		if req.Stock == "" || req.Question == "" {
			c.JSON(http.StatusBadRequest, map[string]any{"error": "Stock and question are required."})
			return
		}
		if d.Analyst == nil || !d.Analyst.Enabled() {
			c.JSON(http.StatusServiceUnavailable, map[string]any{"error": "Language model not configured."})
			return
		}

		answer, err := d.Analyst.Answer(ctx, req.Stock, req.Question)
		if err != nil {
			reqLog(d.Log, c).WithError(err).WithField("stock", req.Stock).Warn("ask-stock failed")
			c.JSON(http.StatusBadGateway, map[string]any{"error": "Something went wrong."})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"answer": answer})
	})

	h.POST("/api/stock-analysis", func(ctx context.Context, c *app.RequestContext) {
		var req StockAnalysisRequest
		_ = json.Unmarshal(c.Request.Body(), &req)
		if req.Ticker == "" {
			req.Ticker = c.Query("ticker")
		}
		if req.CompanyName == "" {
			req.CompanyName = c.Query("companyName")
		}
		req.Ticker = strings.TrimSpace(req.Ticker)
		req.CompanyName = strings.TrimSpace(req.CompanyName)

		if !tickerPattern.MatchString(req.Ticker) {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":     false,
				"error":  "Invalid or missing 'ticker'.",
				"detail": `POST JSON like { "ticker": "AAPL" } or include ?ticker=AAPL`,
			})
			return
		}
		if d.Analyst == nil || !d.Analyst.Enabled() {
			c.JSON(http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "Language model not configured."})
			return
		}

		rep, err := d.Analyst.Analyze(ctx, req.Ticker, req.CompanyName)
		if err != nil {
			log := reqLog(d.Log, c).WithError(err).WithField("ticker", req.Ticker)
			if errors.Is(err, narrative.ErrMalformed) {
				log.Warn("stock-analysis output not json")
				c.JSON(http.StatusBadGateway, map[string]any{
					"ok":           false,
					"error":        "Model did not return valid JSON.",
					"model_output": rep.Raw,
				})
				return
			}
			log.Warn("stock-analysis failed")
			c.JSON(http.StatusBadGateway, map[string]any{"ok": false, "error": "Analysis request failed"})
			return
		}

		c.JSON(http.StatusOK, StockAnalysisResponse{
			OK:          true,
			Ticker:      strings.ToUpper(req.Ticker),
			CompanyName: req.CompanyName,
			Analysis:    rep.Analysis,
			PromptUsed:  rep.Prompt,
		})
	})

	h.POST("/api/subscribe", func(ctx context.Context, c *app.RequestContext) {
		var req subscribe.Request
		_ = json.Unmarshal(c.Request.Body(), &req)

		res, err := d.Signups.Subscribe(ctx, req, string(c.UserAgent()))
		if err != nil {
			if errors.Is(err, subscribe.ErrInvalid) {
				c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid payload"})
				return
			}
			reqLog(d.Log, c).WithError(err).Error("subscribe failed")
			c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to subscribe"})
			return
		}
		if res.Skipped {
			c.JSON(http.StatusOK, map[string]any{"ok": true, "skipped": true})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true})
	})
}

// parseSymbolsBody reads {"symbols": ...} where the value is an array of
// strings, a string holding a JSON array, or a comma separated string.
func parseSymbolsBody(body []byte) ([]string, error) {
	var req struct {
		Symbols json.RawMessage `json:"symbols"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	raw := req.Symbols
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanSymbols(list), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			return nil, err
		}
		return cleanSymbols(list), nil
	}
	return cleanSymbols(strings.Split(s, ",")), nil
}

func cleanSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
