package posttrade

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stock-exchange-go/market"
)

// mockMarketSource implements MarketSource for testing
type mockMarketSource struct {
	prices map[string]decimal.Decimal
}

func (m *mockMarketSource) LastPrices() map[string]decimal.Decimal {
	return m.prices
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAnalyzer_Stats(t *testing.T) {
	src := &mockMarketSource{prices: map[string]decimal.Decimal{"ACME": dec("110")}}
	analyzer := NewAnalyzer(src)

	analyzer.OnTrade(market.Trade{Symbol: "ACME", Price: dec("95"), Qty: 10})
	analyzer.OnTrade(market.Trade{Symbol: "ACME", Price: dec("105"), Qty: 30})

	stats, ok := analyzer.Stats("ACME")
	if !ok {
		t.Fatalf("expected stats for ACME")
	}
	if stats.Trades != 2 || stats.Volume != 40 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	// (950 + 3150) / 40 = 102.5
	if !stats.VWAP.Equal(dec("102.5")) {
		t.Errorf("expected VWAP 102.5, got %s", stats.VWAP)
	}
	if !stats.High.Equal(dec("105")) || !stats.Low.Equal(dec("95")) || !stats.Last.Equal(dec("105")) {
		t.Errorf("unexpected range: %+v", stats)
	}
	// (110 - 102.5) / 102.5
	want := dec("7.5").Div(dec("102.5"))
	if !stats.Drift.Equal(want) {
		t.Errorf("expected drift %s, got %s", want, stats.Drift)
	}

	if _, ok := analyzer.Stats("BOLT"); ok {
		t.Errorf("expected no stats for BOLT")
	}
}

func TestAnalyzer_AllSorted(t *testing.T) {
	analyzer := NewAnalyzer(nil)
	analyzer.OnTrade(market.Trade{Symbol: "BOLT", Price: dec("10"), Qty: 1})
	analyzer.OnTrade(market.Trade{Symbol: "ACME", Price: dec("20"), Qty: 1})

	all := analyzer.All()
	if len(all) != 2 || all[0].Symbol != "ACME" || all[1].Symbol != "BOLT" {
		t.Fatalf("unexpected order: %+v", all)
	}
	// 没有行情源时以最后成交价计算偏离
	if !all[0].Drift.IsZero() {
		t.Errorf("expected zero drift, got %s", all[0].Drift)
	}
}

func TestAnalyzer_CleanOldRecords(t *testing.T) {
	analyzer := NewAnalyzer(nil)
	old := time.Now().Add(-2 * time.Hour)
	analyzer.OnTrade(market.Trade{Symbol: "ACME", Price: dec("90"), Qty: 5, Ts: old})
	analyzer.OnTrade(market.Trade{Symbol: "ACME", Price: dec("100"), Qty: 5})
	analyzer.OnTrade(market.Trade{Symbol: "BOLT", Price: dec("10"), Qty: 1, Ts: old})

	analyzer.CleanOldRecords(time.Hour)

	stats, ok := analyzer.Stats("ACME")
	if !ok || stats.Trades != 1 || !stats.VWAP.Equal(dec("100")) {
		t.Errorf("expected only recent ACME trade, got %+v", stats)
	}
	if _, ok := analyzer.Stats("BOLT"); ok {
		t.Errorf("expected BOLT records removed")
	}
}

func TestAnalyzer_Run(t *testing.T) {
	analyzer := NewAnalyzer(nil)
	trades := make(chan market.Trade, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		analyzer.Run(ctx, trades, time.Hour, time.Hour)
		close(done)
	}()

	trades <- market.Trade{Symbol: "ACME", Price: dec("50"), Qty: 2}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := analyzer.Stats("ACME"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("trade not consumed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}
