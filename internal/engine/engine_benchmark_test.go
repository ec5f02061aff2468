package engine

import (
	"runtime"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stock-exchange-go/account"
	"stock-exchange-go/infrastructure/logger"
	"stock-exchange-go/market"
	"stock-exchange-go/order"
	"stock-exchange-go/trader"
)

// createBenchmarkEngine 创建用于基准测试的引擎
func createBenchmarkEngine(b *testing.B) (*Engine, *market.Stock) {
	b.Helper()
	// 只记录错误，减少基准测试开销
	log, err := logger.New(logger.Config{
		Level:   "error",
		Outputs: []string{"stdout"},
		Format:  "console",
	})
	if err != nil {
		b.Fatalf("Failed to create logger: %v", err)
	}
	svc := market.NewService(nil, time.Minute)
	stock, err := svc.List("ACME", decimal.NewFromInt(100))
	if err != nil {
		b.Fatalf("Failed to list stock: %v", err)
	}
	eng, err := New(Config{}, Components{Market: svc, Logger: log})
	if err != nil {
		b.Fatalf("Failed to create engine: %v", err)
	}
	return eng, stock
}

func benchTrader(b *testing.B, id string, cash, shares int64) *trader.Trader {
	b.Helper()
	acct, err := account.New(id, decimal.NewFromInt(cash))
	if err != nil {
		b.Fatal(err)
	}
	if shares > 0 {
		if err := acct.AddHolding("ACME", shares); err != nil {
			b.Fatal(err)
		}
	}
	return trader.New(id, id, acct, nil)
}

func mustBuild(b *testing.B, bld *order.Builder) *order.Order {
	o, err := bld.Build()
	if err != nil {
		b.Fatal(err)
	}
	return o
}

// BenchmarkEngineCreation 基准测试引擎创建
func BenchmarkEngineCreation(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = createBenchmarkEngine(b)
	}
}

// BenchmarkPlaceCancel 挂一笔不可成交的限价单再撤销
func BenchmarkPlaceCancel(b *testing.B) {
	eng, stock := createBenchmarkEngine(b)
	tr := benchTrader(b, "maker", 0, 0)
	limit := decimal.NewFromInt(90)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		o := mustBuild(b, order.NewBuilder().Buy().Type(order.TypeLimit).Quantity(1).
			LimitPrice(limit).Stock(stock).Owner(tr))
		if err := eng.Place(o); err != nil {
			b.Fatal(err)
		}
		if err := eng.CancelOrder(o.ID); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMatchAndSettle 每次迭代撮合并结算一笔成交
func BenchmarkMatchAndSettle(b *testing.B) {
	eng, stock := createBenchmarkEngine(b)
	seller := benchTrader(b, "seller", 0, int64(b.N))
	buyer := benchTrader(b, "buyer", int64(b.N)*100, 0)
	limit := decimal.NewFromInt(100)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sell := mustBuild(b, order.NewBuilder().Sell().Type(order.TypeLimit).Quantity(1).
			LimitPrice(limit).Stock(stock).Owner(seller))
		if err := eng.Place(sell); err != nil {
			b.Fatal(err)
		}
		buy := mustBuild(b, order.NewBuilder().Buy().Quantity(1).Stock(stock).Owner(buyer))
		if err := eng.Place(buy); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()
	if got := seller.Account().Holding("ACME"); got != 0 {
		b.Fatalf("expected all shares sold, %d left", got)
	}
}

// BenchmarkDepth 1000 笔挂单时的盘口聚合
func BenchmarkDepth(b *testing.B) {
	eng, stock := createBenchmarkEngine(b)
	tr := benchTrader(b, "maker", 0, 1000)
	for i := 0; i < 1000; i++ {
		px := decimal.NewFromInt(int64(101 + i%50))
		o := mustBuild(b, order.NewBuilder().Sell().Type(order.TypeLimit).Quantity(1).
			LimitPrice(px).Stock(stock).Owner(tr))
		if err := eng.Place(o); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = eng.Depth("ACME", 10)
	}
}

// BenchmarkConcurrentEngineAccess 基准测试并发下单、撤单与查询
func BenchmarkConcurrentEngineAccess(b *testing.B) {
	eng, stock := createBenchmarkEngine(b)
	tr := benchTrader(b, "maker", 0, 0)
	limit := decimal.NewFromInt(90)

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			o, err := order.NewBuilder().Buy().Type(order.TypeLimit).Quantity(1).
				LimitPrice(limit).Stock(stock).Owner(tr).Build()
			if err != nil {
				b.Error(err)
				return
			}
			if err := eng.Place(o); err != nil {
				b.Error(err)
				return
			}
			_ = eng.OpenOrders("ACME")
			_ = eng.CancelOrder(o.ID)
		}
	})
}

// BenchmarkEngineMemoryFootprint 基准测试引擎内存占用
func BenchmarkEngineMemoryFootprint(b *testing.B) {
	b.ReportAllocs()

	engines := make([]*Engine, b.N)
	for i := 0; i < b.N; i++ {
		engines[i], _ = createBenchmarkEngine(b)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/float64(b.N), "bytes/engine")
}
