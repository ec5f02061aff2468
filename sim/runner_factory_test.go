package sim

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-exchange-go/order"
)

func TestBuildRunnerConservesAssets(t *testing.T) {
	cfg := RunnerConfig{
		Symbol:          "SIM",
		InitialPrice:    decimal.NewFromInt(50),
		TickSize:        decimal.RequireFromString("0.01"),
		MaxQty:          20,
		Traders:         6,
		Cash:            decimal.NewFromInt(50_000),
		Shares:          500,
		Workers:         4,
		OrdersPerWorker: 150,
		Band:            decimal.RequireFromString("0.03"),
		CancelRatio:     0.1,
		Seed:            42,
	}
	r, ex, err := BuildRunner(cfg)
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(600), rep.Submitted)
	assert.Equal(t, rep.Submitted, rep.Accepted+rep.Rejected)

	cash, shares := Totals(ex.Traders, "SIM")
	assert.True(t, cash.Equal(decimal.NewFromInt(6*50_000)), "cash %s", cash)
	assert.Equal(t, int64(6*500), shares)

	for _, o := range ex.Engine.OpenOrders("SIM") {
		assert.True(t, order.IsActiveState(o.Status()))
	}
	for _, tr := range ex.Traders {
		assert.False(t, tr.Account().Balance().IsNegative())
	}
}

func TestBuildRunnerDefaults(t *testing.T) {
	r, ex, err := BuildRunner(RunnerConfig{})
	require.NoError(t, err)
	assert.Len(t, r.Traders, 4)
	assert.Equal(t, "SIM", r.Stock.Symbol)
	_, ok := ex.Market.Stock("SIM")
	assert.True(t, ok)
}
