package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LLM_PROVIDER", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50_000_000.0, cfg.Ranking.Crypto.MinVolume)
	assert.Equal(t, 500_000_000.0, cfg.Ranking.Crypto.MinMarketCap)
	assert.Equal(t, 6.5, cfg.Ranking.Crypto.MaxAbsChange24h)
	assert.Equal(t, 2.5, cfg.Ranking.Crypto.TargetChange24h)
	assert.Equal(t, 25, cfg.Ranking.Crypto.ScanLimit)
	assert.Equal(t, 10, cfg.Ranking.Crypto.ShortlistLimit)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.NotEmpty(t, cfg.Market.Yahoo.Universe)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
ranking:
  crypto:
    min_volume: 1000
    scan_limit: 5
    shortlist_limit: 3
llm:
  provider: gemini
  model: gemini-2.0-flash
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1000.0, cfg.Ranking.Crypto.MinVolume)
	assert.Equal(t, 500_000_000.0, cfg.Ranking.Crypto.MinMarketCap, "untouched keys keep defaults")
	assert.Equal(t, 5, cfg.Ranking.Crypto.ScanLimit)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("CG_API_KEY", "cg-key")
	t.Setenv("LLM_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "cg-key", cfg.Market.CoinGecko.APIKey)
	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, "sk-ant", cfg.LLM.APIKey, "provider-specific key wins")
}

func TestOpenAIBaseURLWithKeyFromFile(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1")
	path := writeFile(t, `
llm:
  provider: openai
  api_key: sk-from-file
  base_url: https://api.openai.com/v1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.LLM.APIKey)
	assert.Equal(t, "https://proxy.example.com/v1", cfg.LLM.BaseURL)
}

func TestInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PORT")
}

func TestInvalidProvider(t *testing.T) {
	path := writeFile(t, "llm:\n  provider: mystery\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestInvalidYAML(t *testing.T) {
	path := writeFile(t, "server: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
