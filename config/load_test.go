package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
env: dev
logging:
  level: info
  outputs: [stdout]
  format: json
metrics:
  addr: ":9108"
risk:
  singleMax: 1000
  dailyMax: 5000
  circuitOneMin: "0.05"
symbols:
  ACME:
    initialPrice: "100"
    tickSize: "0.01"
    minQty: 1
    maxQty: 10000
  BOLT:
    initialPrice: "48.5"
    halted: true
traders:
  - id: alice
    name: Alice
    balance: "10000"
    holdings:
      ACME: 100
  - id: bob
    name: Bob
    balance: "2500.50"
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "exchange.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":9108", cfg.Metrics.Addr)
	assert.Equal(t, int64(1000), cfg.Risk.SingleMax)
	assert.True(t, cfg.Risk.CircuitOneMin.Equal(decimal.RequireFromString("0.05")))
	require.Len(t, cfg.Symbols, 2)
	assert.True(t, cfg.Symbols["ACME"].TickSize.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, cfg.Symbols["BOLT"].Halted)
	require.Len(t, cfg.Traders, 2)
	assert.True(t, cfg.Traders[1].Balance.Equal(decimal.RequireFromString("2500.5")))
	assert.Equal(t, int64(100), cfg.Traders[0].Holdings["ACME"])
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	t.Setenv("EXCHANGE_ENV", "prod")
	t.Setenv("EXCHANGE_METRICS_ADDR", ":9200")
	t.Setenv("EXCHANGE_LOG_LEVEL", "debug")

	cfg, err := LoadWithEnvOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":9200", cfg.Metrics.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			Env: "dev",
			Symbols: map[string]SymbolConfig{
				"ACME": {InitialPrice: decimal.NewFromInt(100)},
			},
			Traders: []TraderConfig{{ID: "alice", Balance: decimal.NewFromInt(10)}},
		}
	}
	require.NoError(t, Validate(base()))

	cases := map[string]func(*AppConfig){
		"missing env":      func(c *AppConfig) { c.Env = "" },
		"no symbols":       func(c *AppConfig) { c.Symbols = nil },
		"zero price":       func(c *AppConfig) { c.Symbols["ACME"] = SymbolConfig{} },
		"qty bounds":       func(c *AppConfig) { c.Symbols["ACME"] = SymbolConfig{InitialPrice: decimal.NewFromInt(1), MinQty: 10, MaxQty: 5} },
		"negative limit":   func(c *AppConfig) { c.Risk.SingleMax = -1 },
		"duplicate trader": func(c *AppConfig) { c.Traders = append(c.Traders, TraderConfig{ID: "alice"}) },
		"unknown holding":  func(c *AppConfig) { c.Traders[0].Holdings = map[string]int64{"NOPE": 1} },
		"negative balance": func(c *AppConfig) { c.Traders[0].Balance = decimal.NewFromInt(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			assert.ErrorIs(t, Validate(cfg), ErrInvalid)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
