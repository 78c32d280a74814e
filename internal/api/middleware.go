package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"

	"tickrx/internal/dashboard"
	"tickrx/internal/logger"
	"tickrx/internal/market"
)

const (
	headerRequestID = "X-Request-ID"
	keyRequestID    = "request_id"
)

func requestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.Request.Header.Peek(headerRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Response.Header.Set(headerRequestID, id)
		c.Next(ctx)
	}
}

func accessLog(log *logger.Logger) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		log.WithFields(map[string]any{
			"method":     string(c.Method()),
			"path":       string(c.Path()),
			"status":     c.Response.StatusCode(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": c.GetString(keyRequestID),
			"client_ip":  c.ClientIP(),
		}).Info("request")
	}
}

func recovery(log *logger.Logger) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				reqLog(log, c).WithField("panic", fmt.Sprint(r)).Error("handler panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, map[string]any{
					"error":  "Unexpected error",
					"detail": "internal error",
				})
			}
		}()
		c.Next(ctx)
	}
}

func reqLog(log *logger.Logger, c *app.RequestContext) *logger.Logger {
	return log.WithField(keyRequestID, c.GetString(keyRequestID))
}

// writeError maps service errors onto the public error envelope.
func writeError(c *app.RequestContext, log *logger.Logger, err error) {
	var upstream *market.UpstreamError
	switch {
	case errors.As(err, &upstream):
		log.WithFields(map[string]any{
			"source": upstream.Source,
			"status": upstream.Status,
		}).WithError(err).Warn("upstream market failure")
		detail := upstream.Detail
		if detail == "" {
			detail = upstream.Error()
		}
		c.JSON(http.StatusBadGateway, map[string]any{
			"error":  upstreamLabel(upstream.Source) + " request failed",
			"detail": detail,
		})
	case errors.Is(err, dashboard.ErrNoSymbols):
		c.JSON(http.StatusBadRequest, map[string]any{
			"error":  "Invalid request",
			"detail": `Provide body like: { "symbols": ["BCH","MNT"] }`,
		})
	case errors.Is(err, dashboard.ErrStocksDisabled):
		c.JSON(http.StatusServiceUnavailable, map[string]any{"error": "Stock quotes disabled"})
	default:
		log.WithError(err).Error("unexpected error")
		c.JSON(http.StatusInternalServerError, map[string]any{
			"error":  "Unexpected error",
			"detail": "internal error",
		})
	}
}

func upstreamLabel(source string) string {
	switch source {
	case "coingecko":
		return "CoinGecko"
	case "yahoo":
		return "Yahoo Finance"
	default:
		return source
	}
}
