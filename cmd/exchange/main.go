package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/shopspring/decimal"

	"stock-exchange-go/config"
	"stock-exchange-go/internal/container"
	"stock-exchange-go/order"
	"stock-exchange-go/trader"
)

// 两种模式：
//   - 指定 -config 时按配置启动交易所（/metrics、熔断、配置热更新），直到收到退出信号；
//   - 指定 -demo 时在内存中依次演示四个撮合场景并打印结果。
func main() {
	cfgPath := flag.String("config", "", "配置文件路径（例如 configs/exchange.example.yaml）")
	demo := flag.Bool("demo", false, "运行内置撮合场景演示")
	flag.Parse()

	if *demo || *cfgPath == "" {
		if err := runDemo(); err != nil {
			log.Fatalf("demo failed: %v", err)
		}
		return
	}

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("构建失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := c.Start(ctx); err != nil {
		log.Fatalf("启动失败: %v", err)
	}
	// 在 systemd (Type=notify) 下运行时报告就绪；其他环境下为空操作
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Printf("sd_notify: %v", err)
	}
	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err := c.Stop(); err != nil {
		log.Printf("stop: %v", err)
	}
}

type scenario struct {
	name  string
	price string
	// traders: id -> (cash, shares)
	traders map[string][2]int64
	run     func(x *demoExchange) error
}

var scenarios = []scenario{
	{
		name:    "A: market buy vs resting limit sell",
		price:   "100",
		traders: map[string][2]int64{"seller": {0, 10}, "buyer": {1000, 0}},
		run: func(x *demoExchange) error {
			if _, err := x.submit("seller", order.SideSell, order.TypeLimit, 10, "95", ""); err != nil {
				return err
			}
			_, err := x.submit("buyer", order.SideBuy, order.TypeMarket, 10, "", "")
			return err
		},
	},
	{
		name:    "B: lowest ask first",
		price:   "50",
		traders: map[string][2]int64{"seller": {0, 10}, "buyer": {1000, 0}},
		run: func(x *demoExchange) error {
			for _, px := range []string{"50", "48"} {
				if _, err := x.submit("seller", order.SideSell, order.TypeLimit, 5, px, ""); err != nil {
					return err
				}
			}
			_, err := x.submit("buyer", order.SideBuy, order.TypeMarket, 5, "", "")
			return err
		},
	},
	{
		name:    "C: stop loss triggered by unrelated trade",
		price:   "55",
		traders: map[string][2]int64{"stopper": {10000, 0}, "x": {1000, 0}, "y": {0, 1}},
		run: func(x *demoExchange) error {
			if _, err := x.submit("stopper", order.SideBuy, order.TypeStopLoss, 10, "", "60"); err != nil {
				return err
			}
			if _, err := x.submit("x", order.SideBuy, order.TypeLimit, 1, "61", ""); err != nil {
				return err
			}
			_, err := x.submit("y", order.SideSell, order.TypeMarket, 1, "", "")
			return err
		},
	},
	{
		name:    "D: insufficient funds rejected",
		price:   "100",
		traders: map[string][2]int64{"buyer": {500, 0}},
		run: func(x *demoExchange) error {
			_, err := x.submit("buyer", order.SideBuy, order.TypeLimit, 10, "100", "")
			if err == nil {
				return errors.New("expected rejection")
			}
			fmt.Printf("  rejected: %v\n", err)
			return nil
		},
	},
}

const demoSymbol = "X"

type demoExchange struct {
	c *container.Container
}

func newDemoExchange(sc scenario) (*demoExchange, error) {
	cfg := config.AppConfig{
		Env: "demo",
		Symbols: map[string]config.SymbolConfig{
			demoSymbol: {InitialPrice: decimal.RequireFromString(sc.price)},
		},
	}
	cfg.Logging.Level = "error"
	for id, assets := range sc.traders {
		tc := config.TraderConfig{ID: id, Name: id, Balance: decimal.NewFromInt(assets[0])}
		if assets[1] > 0 {
			tc.Holdings = map[string]int64{demoSymbol: assets[1]}
		}
		cfg.Traders = append(cfg.Traders, tc)
	}
	c := container.NewFromConfig(cfg)
	if err := c.Build(); err != nil {
		return nil, err
	}
	return &demoExchange{c: c}, nil
}

func (x *demoExchange) submit(traderID string, side order.Side, typ order.Type, qty int64, limit, stop string) (*order.Order, error) {
	tr, ok := x.c.Trader(traderID)
	if !ok {
		return nil, fmt.Errorf("unknown trader %s", traderID)
	}
	stock, _ := x.c.Market().Stock(demoSymbol)
	b := order.NewBuilder().Side(side).Type(typ).Quantity(qty).Stock(stock).Owner(tr)
	if limit != "" {
		b.LimitPrice(decimal.RequireFromString(limit))
	}
	if stop != "" {
		b.StopPrice(decimal.RequireFromString(stop))
	}
	o, err := b.Build()
	if err != nil {
		return nil, err
	}
	return o, x.c.OrderManager().Submit(o)
}

func (x *demoExchange) print() {
	stock, _ := x.c.Market().Stock(demoSymbol)
	fmt.Printf("  price=%s\n", stock.Price())
	for _, t := range x.c.Engine().Trades(demoSymbol) {
		fmt.Printf("  trade qty=%d price=%s buy=%s sell=%s\n", t.Qty, t.Price, short(t.BuyOrderID), short(t.SellOrderID))
	}
	for _, tr := range x.c.Traders() {
		printTrader(tr)
	}
}

func printTrader(tr *trader.Trader) {
	fmt.Printf("  %-8s cash=%s shares=%d\n", tr.ID, tr.Account().Balance(), tr.Account().Holding(demoSymbol))
	for _, o := range tr.History() {
		fmt.Printf("    %s %s %s qty=%d remaining=%d status=%s\n",
			short(o.ID), o.Side, o.Type, o.Quantity, o.Remaining(), o.Status())
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDemo() error {
	for _, sc := range scenarios {
		fmt.Println(sc.name)
		x, err := newDemoExchange(sc)
		if err != nil {
			return err
		}
		if err := sc.run(x); err != nil {
			return fmt.Errorf("%s: %w", sc.name, err)
		}
		x.print()
	}
	return nil
}
