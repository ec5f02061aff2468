package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/shopspring/decimal"

	"stock-exchange-go/infrastructure/logger"
	"stock-exchange-go/sim"
)

// 本地压测：多个 goroutine 随机下单、撤单，结束后检查现金与持仓守恒。
// 不连接任何外部系统。
func main() {
	symbol := flag.String("symbol", "SIM", "stock symbol")
	price := flag.Float64("price", 100, "initial price")
	tick := flag.String("tick", "0.01", "tick size")
	traders := flag.Int("traders", 8, "number of simulated traders")
	cash := flag.Int64("cash", 100_000, "initial cash per trader")
	shares := flag.Int64("shares", 1_000, "initial shares per trader")
	workers := flag.Int("workers", 4, "concurrent order submitters")
	orders := flag.Int("orders", 1_000, "orders per worker")
	maxQty := flag.Int64("maxQty", 50, "max quantity per order")
	band := flag.Float64("band", 0.02, "max limit/stop offset from current price (ratio)")
	cancel := flag.Float64("cancelRatio", 0.1, "probability of cancelling an earlier order after each submit")
	singleMax := flag.Int64("singleMax", 0, "risk: single order max shares (0 to disable)")
	dailyMax := flag.Int64("dailyMax", 0, "risk: daily shares per account (0 to disable)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	logLevel := flag.String("logLevel", "warn", "log level")
	flag.Parse()

	logCfg := logger.DefaultConfig()
	logCfg.Level = *logLevel
	lg, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Close()

	tickSize, err := decimal.NewFromString(*tick)
	if err != nil {
		log.Fatalf("invalid tick: %v", err)
	}
	cfg := sim.RunnerConfig{
		Symbol:          *symbol,
		InitialPrice:    decimal.NewFromFloat(*price),
		TickSize:        tickSize,
		MaxQty:          *maxQty,
		Traders:         *traders,
		Cash:            decimal.NewFromInt(*cash),
		Shares:          *shares,
		SingleMax:       *singleMax,
		DailyMax:        *dailyMax,
		Workers:         *workers,
		OrdersPerWorker: *orders,
		Band:            decimal.NewFromFloat(*band),
		CancelRatio:     *cancel,
		Seed:            *seed,
		Logger:          lg,
	}
	runner, ex, err := sim.BuildRunner(cfg)
	if err != nil {
		log.Fatalf("build runner: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rep, err := runner.Run(ctx)
	if err != nil {
		fmt.Printf("interrupted: %v\n", err)
	}

	stock := runner.Stock
	fmt.Println(rep)
	fmt.Printf("price=%s trades=%d open=%d\n", stock.Price(), len(ex.Engine.Trades(stock.Symbol)), len(ex.Engine.OpenOrders(stock.Symbol)))

	gotCash, gotShares := sim.Totals(ex.Traders, stock.Symbol)
	wantCash := cfg.Cash.Mul(decimal.NewFromInt(int64(len(ex.Traders))))
	wantShares := cfg.Shares * int64(len(ex.Traders))
	fmt.Printf("cash=%s (want %s) shares=%d (want %d)\n", gotCash, wantCash, gotShares, wantShares)
	if !gotCash.Equal(wantCash) || gotShares != wantShares {
		log.Fatal("conservation violated")
	}
}
