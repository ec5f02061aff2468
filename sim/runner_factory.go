package sim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stock-exchange-go/account"
	"stock-exchange-go/infrastructure/logger"
	"stock-exchange-go/infrastructure/monitor"
	"stock-exchange-go/internal/engine"
	"stock-exchange-go/market"
	"stock-exchange-go/order"
	"stock-exchange-go/risk"
	"stock-exchange-go/trader"
)

// RunnerConfig 描述 Runner 的可选参数。
type RunnerConfig struct {
	Symbol       string
	InitialPrice decimal.Decimal
	TickSize     decimal.Decimal
	MinQty       int64
	MaxQty       int64

	Traders int
	Cash    decimal.Decimal // 每个交易员的初始资金
	Shares  int64           // 每个交易员的初始持仓

	SingleMax int64
	DailyMax  int64

	Workers         int
	OrdersPerWorker int
	Band            decimal.Decimal
	CancelRatio     float64
	Seed            int64

	Logger  *logger.Logger
	Monitor *monitor.Monitor
}

// Exchange 模拟用的内存交易所。
type Exchange struct {
	Market  *market.Service
	Engine  *engine.Engine
	Manager *order.Manager
	Traders []*trader.Trader
}

// BuildRunner 基于配置快速组装 Runner（使用内存组件，适合离线/仿真）。
func BuildRunner(cfg RunnerConfig) (*Runner, *Exchange, error) {
	if cfg.Symbol == "" {
		cfg.Symbol = "SIM"
	}
	if !cfg.InitialPrice.IsPositive() {
		cfg.InitialPrice = decimal.NewFromInt(100)
	}
	if cfg.Traders <= 0 {
		cfg.Traders = 4
	}

	svc := market.NewService(market.NewPublisher(), time.Minute)
	stock, err := svc.List(cfg.Symbol, cfg.InitialPrice)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(engine.Config{}, engine.Components{
		Market:  svc,
		Logger:  cfg.Logger,
		Monitor: cfg.Monitor,
	})
	if err != nil {
		return nil, nil, err
	}

	guard := risk.BuildGuards(risk.NewLimitChecker(risk.Limits{SingleMax: cfg.SingleMax, DailyMax: cfg.DailyMax}))
	mgr := order.NewManager(eng, guard, cfg.Logger)
	mgr.SetConstraints(map[string]order.SymbolConstraints{
		cfg.Symbol: {
			TickSize: cfg.TickSize,
			MinQty:   cfg.MinQty,
			MaxQty:   cfg.MaxQty,
		},
	})

	traders := make([]*trader.Trader, 0, cfg.Traders)
	for i := 0; i < cfg.Traders; i++ {
		id := fmt.Sprintf("sim-%02d", i+1)
		acct, err := account.New(id, cfg.Cash)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Shares > 0 {
			if err := acct.AddHolding(cfg.Symbol, cfg.Shares); err != nil {
				return nil, nil, err
			}
		}
		traders = append(traders, trader.New(id, id, acct, nil))
	}

	r := &Runner{
		Stock:           stock,
		OrderMgr:        mgr,
		Traders:         traders,
		Workers:         cfg.Workers,
		OrdersPerWorker: cfg.OrdersPerWorker,
		MaxQty:          cfg.MaxQty,
		Band:            cfg.Band,
		Tick:            cfg.TickSize,
		CancelRatio:     cfg.CancelRatio,
		Seed:            cfg.Seed,
	}
	return r, &Exchange{Market: svc, Engine: eng, Manager: mgr, Traders: traders}, nil
}
