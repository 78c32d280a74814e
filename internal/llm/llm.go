package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tickrx/internal/logger"
)

var ErrNotConfigured = errors.New("llm not configured")

type Request struct {
	System      string
	Prompt      string
	Temperature float32
	// JSON asks the backend for a JSON object when it supports a response format.
	JSON bool
}

// Completer sends one system+user exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

type Config struct {
	Enabled     bool
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	ByAzure     bool
	APIVersion  string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// New builds the completer for cfg.Provider. It returns ErrNotConfigured when the
// backend is disabled or has no credentials.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Completer, error) {
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: disabled by config", ErrNotConfigured)
	}
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%w: api_key or model missing", ErrNotConfigured)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}

	log = log.WithFields(map[string]any{"provider": cfg.Provider, "model": cfg.Model})

	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return newOpenAI(ctx, cfg, log)
	case "gemini":
		return newGemini(ctx, cfg, log)
	case "claude", "anthropic":
		return newClaude(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Clip shortens s to at most n bytes plus "..." without splitting a rune.
func Clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
