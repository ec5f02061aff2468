package container

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-exchange-go/account"
	"stock-exchange-go/config"
	"stock-exchange-go/internal/engine"
	"stock-exchange-go/internal/feed"
	"stock-exchange-go/order"
	"stock-exchange-go/risk"
)

func testConfig() config.AppConfig {
	return config.AppConfig{
		Env:     "test",
		Risk:    config.RiskConfig{SingleMax: 100},
		Symbols: map[string]config.SymbolConfig{
			"ACME": {InitialPrice: decimal.NewFromInt(100), TickSize: decimal.RequireFromString("0.5")},
			"BOLT": {InitialPrice: decimal.NewFromInt(20), Halted: true},
		},
		Traders: []config.TraderConfig{
			{ID: "alice", Balance: decimal.NewFromInt(10_000)},
			{ID: "bob", Balance: decimal.NewFromInt(0), Holdings: map[string]int64{"ACME": 50}},
		},
	}
}

func buildContainer(t *testing.T, cfg config.AppConfig) *Container {
	t.Helper()
	c := NewFromConfig(cfg)
	require.NoError(t, c.Build())
	return c
}

func TestBuildWiresTraders(t *testing.T) {
	c := buildContainer(t, testConfig())

	traders := c.Traders()
	require.Len(t, traders, 2)
	assert.Equal(t, "alice", traders[0].ID)
	assert.Equal(t, "alice", traders[0].Name)

	bob, ok := c.Trader("bob")
	require.True(t, ok)
	assert.Equal(t, int64(50), bob.Account().Holding("ACME"))

	assert.True(t, c.Engine().Halted("BOLT"))
	assert.False(t, c.Engine().Halted("ACME"))
	assert.Equal(t, []string{"ACME", "BOLT"}, c.Market().Symbols())
}

func TestOrderFlowThroughManager(t *testing.T) {
	c := buildContainer(t, testConfig())
	alice, _ := c.Trader("alice")
	bob, _ := c.Trader("bob")
	acme, _ := c.Market().Stock("ACME")

	sell, err := order.NewBuilder().Sell().Type(order.TypeLimit).Quantity(10).
		LimitPrice(decimal.NewFromInt(99)).Stock(acme).Owner(bob).Build()
	require.NoError(t, err)
	require.NoError(t, c.OrderManager().Sell(sell))

	buy, err := order.NewBuilder().Buy().Quantity(10).Stock(acme).Owner(alice).Build()
	require.NoError(t, err)
	require.NoError(t, c.OrderManager().Buy(buy))

	assert.Equal(t, order.StatusFilled, buy.Status())
	assert.Equal(t, int64(10), alice.Account().Holding("ACME"))
	assert.True(t, bob.Account().Balance().Equal(decimal.NewFromInt(990)))
	assert.Len(t, alice.History(), 1)
	assert.Empty(t, alice.ActiveOrders())
	assert.Equal(t, int64(10), c.Limits().DailyVolume("alice"))
}

func TestRejectsAreCounted(t *testing.T) {
	c := buildContainer(t, testConfig())
	alice, _ := c.Trader("alice")
	acme, _ := c.Market().Stock("ACME")
	bolt, _ := c.Market().Stock("BOLT")

	// 超过单笔上限
	o, err := order.NewBuilder().Buy().Quantity(101).Stock(acme).Owner(alice).Build()
	require.NoError(t, err)
	assert.ErrorIs(t, c.OrderManager().Buy(o), risk.ErrSingleExceed)

	// 价格不符合步长
	o, err = order.NewBuilder().Buy().Type(order.TypeLimit).Quantity(1).
		LimitPrice(decimal.RequireFromString("99.3")).Stock(acme).Owner(alice).Build()
	require.NoError(t, err)
	assert.ErrorIs(t, c.OrderManager().Buy(o), order.ErrConstraint)

	// 停牌
	o, err = order.NewBuilder().Buy().Quantity(1).Stock(bolt).Owner(alice).Build()
	require.NoError(t, err)
	assert.ErrorIs(t, c.OrderManager().Buy(o), engine.ErrSymbolHalted)

	n, err := testutil.GatherAndCount(c.Monitor().Registry(), "exchange_engine_orders_rejected_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	body := scrape(t, c)
	assert.Contains(t, body, `reason="single_limit"`)
	assert.Contains(t, body, `reason="constraint"`)
	assert.Contains(t, body, `reason="halted"`)
}

func scrape(t *testing.T, c *Container) string {
	t.Helper()
	mfs, err := c.Monitor().Registry().Gather()
	require.NoError(t, err)
	out := ""
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				out += fmt.Sprintf("%s %s=%q\n", mf.GetName(), l.GetName(), l.GetValue())
			}
		}
	}
	return out
}

func TestRejectReason(t *testing.T) {
	assert.Equal(t, "insufficient_funds", RejectReason(fmt.Errorf("wrap: %w", account.ErrInsufficientFunds)))
	assert.Equal(t, "limit_below_market", RejectReason(risk.ErrLimitBelowMarket))
	assert.Equal(t, "other", RejectReason(assert.AnError))
}

func TestApplyConfig(t *testing.T) {
	c := buildContainer(t, testConfig())

	next := testConfig()
	next.Symbols["BOLT"] = config.SymbolConfig{InitialPrice: decimal.NewFromInt(20)}
	next.Symbols["CORE"] = config.SymbolConfig{InitialPrice: decimal.NewFromInt(5)}
	next.Risk.SingleMax = 5
	next.Traders = append(next.Traders, config.TraderConfig{ID: "carol", Balance: decimal.NewFromInt(1)})
	c.ApplyConfig(next)

	assert.False(t, c.Engine().Halted("BOLT"))
	_, listed := c.Market().Stock("CORE")
	assert.True(t, listed)
	assert.Equal(t, int64(5), c.Limits().Limits().SingleMax)
	_, ok := c.Trader("carol")
	assert.True(t, ok)
}

func TestReloadKeepsCircuitHalt(t *testing.T) {
	c := buildContainer(t, testConfig())
	// 熔断组件直接调用 SetHalted，配置里 ACME 仍是 halted: false
	require.NoError(t, c.Engine().SetHalted("ACME", true))

	next := testConfig()
	next.Risk.SingleMax = 7
	c.ApplyConfig(next)
	assert.True(t, c.Engine().Halted("ACME"), "unrelated reload must not lift a circuit halt")
	assert.True(t, c.Engine().Halted("BOLT"))

	// 运维解除：先改成 true 再改回 false
	next.Symbols["ACME"] = config.SymbolConfig{InitialPrice: decimal.NewFromInt(100), TickSize: decimal.RequireFromString("0.5"), Halted: true}
	c.ApplyConfig(next)
	assert.True(t, c.Engine().Halted("ACME"))
	next = testConfig()
	next.Risk.SingleMax = 7
	c.ApplyConfig(next)
	assert.False(t, c.Engine().Halted("ACME"))
}

func TestConsoleAlertChannel(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, []string{"log"}, buildContainer(t, cfg).alerts.Channels())

	cfg.Alerts.Console = true
	assert.Equal(t, []string{"log", "console"}, buildContainer(t, cfg).alerts.Channels())
}

func TestCircuitBreakerHaltsSymbol(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.CircuitOneMin = decimal.RequireFromString("0.01")
	c := buildContainer(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	defer func() { _ = c.Stop() }()
	require.NoError(t, c.HealthCheck())

	alice, _ := c.Trader("alice")
	bob, _ := c.Trader("bob")
	acme, _ := c.Market().Stock("ACME")

	// 先以 100 成交一笔，再以 110 成交一笔：1 分钟内涨 10%
	for _, px := range []int64{100, 110} {
		buy, err := order.NewBuilder().Buy().Type(order.TypeLimit).Quantity(1).
			LimitPrice(decimal.NewFromInt(px)).Stock(acme).Owner(alice).Build()
		require.NoError(t, err)
		require.NoError(t, c.OrderManager().Buy(buy))
		sell, err := order.NewBuilder().Sell().Quantity(1).Stock(acme).Owner(bob).Build()
		require.NoError(t, err)
		require.NoError(t, c.OrderManager().Sell(sell))
	}

	require.Eventually(t, func() bool { return c.Engine().Halted("ACME") }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		st, ok := c.PostTrade().Stats("ACME")
		return ok && st.Trades == 2
	}, time.Second, 5*time.Millisecond)
	st, _ := c.PostTrade().Stats("ACME")
	assert.True(t, st.VWAP.Equal(decimal.NewFromInt(105)))
}

func TestHaltedRejectKeepsQuota(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.DailyMax = 10
	cfg.Risk.OrderRate = 1
	cfg.Risk.OrderBurst = 1
	c := buildContainer(t, cfg)
	alice, _ := c.Trader("alice")
	bolt, _ := c.Market().Stock("BOLT")
	acme, _ := c.Market().Stock("ACME")

	// BOLT 停牌：风控通过但引擎拒绝，日累计与令牌都要退回
	o, err := order.NewBuilder().Buy().Quantity(10).Stock(bolt).Owner(alice).Build()
	require.NoError(t, err)
	assert.ErrorIs(t, c.OrderManager().Buy(o), engine.ErrSymbolHalted)
	assert.Zero(t, c.Limits().DailyVolume("alice"))

	o, err = order.NewBuilder().Buy().Type(order.TypeLimit).LimitPrice(decimal.NewFromInt(90)).
		Quantity(10).Stock(acme).Owner(alice).Build()
	require.NoError(t, err)
	require.NoError(t, c.OrderManager().Buy(o))
	assert.Equal(t, int64(10), c.Limits().DailyVolume("alice"))
}

func TestRateLimitedOrdersRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.OrderRate = 1
	cfg.Risk.OrderBurst = 1
	c := buildContainer(t, cfg)
	bob, _ := c.Trader("bob")
	acme, _ := c.Market().Stock("ACME")

	for i, want := range []error{nil, risk.ErrRateLimited} {
		o, err := order.NewBuilder().Sell().Type(order.TypeLimit).Quantity(1).
			LimitPrice(decimal.NewFromInt(200)).Stock(acme).Owner(bob).Build()
		require.NoError(t, err)
		err = c.OrderManager().Sell(o)
		if want == nil {
			require.NoError(t, err, "order %d", i)
		} else {
			assert.ErrorIs(t, err, want, "order %d", i)
		}
	}
	assert.Contains(t, scrape(t, c), `reason="rate_limited"`)

	next := c.Config()
	next.Risk.OrderRate = 0
	c.ApplyConfig(next)
	o, err := order.NewBuilder().Sell().Type(order.TypeLimit).Quantity(1).
		LimitPrice(decimal.NewFromInt(200)).Stock(acme).Owner(bob).Build()
	require.NoError(t, err)
	assert.NoError(t, c.OrderManager().Sell(o))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestFeedStreamsTrades(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.Addr = freeAddr(t)
	c := buildContainer(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	defer func() { _ = c.Stop() }()

	got := make(chan feed.Message, 16)
	go func() {
		_ = feed.Subscribe(ctx, "ws://"+cfg.Feed.Addr, []string{"ACME"}, func(m feed.Message) { got <- m })
	}()
	require.Eventually(t, func() bool { return c.feed.Clients() == 1 }, 3*time.Second, 10*time.Millisecond)

	alice, _ := c.Trader("alice")
	bob, _ := c.Trader("bob")
	acme, _ := c.Market().Stock("ACME")
	sell, err := order.NewBuilder().Sell().Quantity(3).Stock(acme).Owner(bob).Build()
	require.NoError(t, err)
	require.NoError(t, c.OrderManager().Sell(sell))
	buy, err := order.NewBuilder().Buy().Quantity(3).Stock(acme).Owner(alice).Build()
	require.NoError(t, err)
	require.NoError(t, c.OrderManager().Buy(buy))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case m := <-got:
			if m.Type != feed.TypeTrade {
				continue
			}
			assert.Equal(t, "ACME", m.Symbol)
			assert.Equal(t, int64(3), m.Trade.Qty)
			assert.Equal(t, buy.ID, m.Trade.BuyOrderID)
			return
		case <-deadline:
			t.Fatal("no trade received from feed")
		}
	}
}

func TestNewFromFileStartsWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exchange.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: test
symbols:
  ACME:
    initialPrice: "100"
    halted: false
`), 0o644))

	c, err := New(path)
	require.NoError(t, err)
	require.NoError(t, c.Build())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	defer func() { _ = c.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte(`
env: test
symbols:
  ACME:
    initialPrice: "100"
    halted: true
`), 0o644))
	require.Eventually(t, func() bool { return c.Engine().Halted("ACME") }, 3*time.Second, 10*time.Millisecond)
}
