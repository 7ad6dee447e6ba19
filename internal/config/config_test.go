// =================================
// File: internal/config/config_test.go
// =================================
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
rpc_url: https://api.mainnet-beta.solana.com
tokens:
  - mint: DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, 30*time.Second, cfg.ValidateInterval())
	assert.Equal(t, DefaultGapMultiple, cfg.Store.GapMultiple)
	assert.Equal(t, float64(DefaultPriceCeiling), cfg.Decoders.PriceCeiling)
	assert.Equal(t, DefaultCurveExponentMin, cfg.Decoders.CurveExponentMin)
	assert.Equal(t, DefaultMinSources, cfg.Consensus.MinSources)
	assert.True(t, cfg.Providers.DexScreenerEnabled)
	assert.True(t, cfg.Providers.GeckoTerminalEnabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
rpc_url: https://rpc.example.com
postgres_url: postgres://pricer@localhost/prices
tokens: [{mint: DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263}]
poll_interval_ms: 250
store:
  gap_multiple: 5
decoders:
  price_ceiling: 500
consensus:
  min_sources: 3
  max_deviation: 0.05
providers:
  geckoterminal_enabled: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 5, cfg.Store.GapMultiple)
	assert.Equal(t, 500.0, cfg.Decoders.PriceCeiling)
	assert.Equal(t, 3, cfg.Consensus.MinSources)
	assert.Equal(t, 0.05, cfg.Consensus.MaxDeviation)
	assert.False(t, cfg.Providers.GeckoTerminalEnabled)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing rpc_url",
			content: `
tokens: [{mint: DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263}]
`,
		},
		{
			name: "bad rpc scheme",
			content: `
rpc_url: ftp://rpc.example.com
tokens: [{mint: DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263}]
`,
		},
		{
			name: "no tokens",
			content: `
rpc_url: https://rpc.example.com
tokens: []
`,
		},
		{
			name: "bad exponent bounds",
			content: `
rpc_url: https://rpc.example.com
tokens: [{mint: DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263}]
decoders:
  curve_exponent_min: 3.0
  curve_exponent_max: 1.0
`,
		},
		{
			name: "bad deviation",
			content: `
rpc_url: https://rpc.example.com
tokens: [{mint: DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263}]
consensus:
  max_deviation: 1.5
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SOLANA_PRICER_RPC_URL", "https://env-rpc.example.com")
	t.Setenv("SOLANA_PRICER_TOKENS", "MintAAA, MintBBB ,")

	path := writeConfig(t, `
rpc_url: https://file-rpc.example.com
tokens: [{mint: MintCCC}]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env-rpc.example.com", cfg.RPCURL)
	assert.Equal(t, []TokenConfig{{Mint: "MintAAA"}, {Mint: "MintBBB"}}, cfg.Tokens)
}
