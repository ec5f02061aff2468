package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"stock-exchange-go/infrastructure/alert"
	"stock-exchange-go/infrastructure/logger"
	"stock-exchange-go/infrastructure/monitor"
	"stock-exchange-go/market"
	"stock-exchange-go/order"
)

var (
	ErrNilOrder       = errors.New("order is nil")
	ErrSymbolHalted   = errors.New("symbol halted")
	ErrDuplicateOrder = errors.New("duplicate order id")
	ErrNotOpen        = errors.New("order is not open")
	ErrStockMismatch  = errors.New("order stock is not the listed instance")
)

// Config 引擎配置
type Config struct {
	TradeHistory int // 每只股票保留的成交记录条数
}

// Components 引擎依赖组件；Market 必填，其余可为 nil。
type Components struct {
	Market  *market.Service
	Logger  *logger.Logger
	Monitor *monitor.Monitor
	Alerts  *alert.Manager
}

// Engine 撮合引擎：每只股票一个买簿一个卖簿，价格优先、时间优先。
// 一把引擎锁保护全部簿状态，公开方法入口加锁一次，xxxLocked 方法假定已持锁。
type Engine struct {
	cfg    Config
	market *market.Service
	log    *logger.Logger
	mon    *monitor.Monitor
	alerts *alert.Manager
	orders *order.Book

	mu     sync.Mutex
	buys   map[string][]*order.Order
	sells  map[string][]*order.Order
	trades map[string][]market.Trade
	halted map[string]bool
	now    func() time.Time
}

// New 创建撮合引擎
func New(cfg Config, components Components) (*Engine, error) {
	if components.Market == nil {
		return nil, fmt.Errorf("invalid components: market service is required")
	}
	if cfg.TradeHistory <= 0 {
		cfg.TradeHistory = 1000
	}
	if components.Logger == nil {
		components.Logger = logger.NewNop()
	}
	if components.Monitor == nil {
		components.Monitor = monitor.New(monitor.DefaultConfig())
	}
	return &Engine{
		cfg:    cfg,
		market: components.Market,
		log:    components.Logger,
		mon:    components.Monitor,
		alerts: components.Alerts,
		orders: order.NewBook(),
		buys:   make(map[string][]*order.Order),
		sells:  make(map[string][]*order.Order),
		trades: make(map[string][]market.Trade),
		halted: make(map[string]bool),
		now:    time.Now,
	}, nil
}

// PlaceBuy 买单入簿并撮合。
func (e *Engine) PlaceBuy(o *order.Order) error {
	if o != nil && o.Side != order.SideBuy {
		return fmt.Errorf("%w: %s is %s", order.ErrWrongSide, o.ID, o.Side)
	}
	return e.Place(o)
}

// PlaceSell 卖单入簿并撮合。
func (e *Engine) PlaceSell(o *order.Order) error {
	if o != nil && o.Side != order.SideSell {
		return fmt.Errorf("%w: %s is %s", order.ErrWrongSide, o.ID, o.Side)
	}
	return e.Place(o)
}

// Place 按方向入簿，随后对该股票执行撮合直到没有可成交的买卖对。
// 结算失败不会作为错误返回：失败的订单转入 FAILED 并通知其所有者。
func (e *Engine) Place(o *order.Order) error {
	if o == nil {
		return ErrNilOrder
	}
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.admitLocked(o); err != nil {
		return err
	}
	sym := o.Symbol()
	if o.Side == order.SideBuy {
		e.buys[sym] = append(e.buys[sym], o)
	} else {
		e.sells[sym] = append(e.sells[sym], o)
	}
	e.orders.Set(o)
	e.mon.RecordOrderPlaced(sym, string(o.Side), string(o.Type))
	e.log.LogOrder("placed", o.ID, map[string]interface{}{
		"symbol": sym,
		"side":   string(o.Side),
		"type":   string(o.Type),
		"qty":    o.Quantity,
	})

	rounds := e.matchLocked(sym)
	e.mon.ObserveMatch(rounds, time.Since(start).Seconds())
	e.updateRestingLocked(sym)
	return nil
}

func (e *Engine) admitLocked(o *order.Order) error {
	sym := o.Symbol()
	listed, ok := e.market.Stock(sym)
	if !ok {
		return fmt.Errorf("%w: %s", market.ErrUnknownSymbol, sym)
	}
	if listed != o.Stock {
		return fmt.Errorf("%w: %s", ErrStockMismatch, sym)
	}
	if e.halted[sym] {
		return fmt.Errorf("%w: %s", ErrSymbolHalted, sym)
	}
	if st := o.Status(); st != order.StatusOpen {
		return fmt.Errorf("%w: %s is %s", ErrNotOpen, o.ID, st)
	}
	if _, dup := e.orders.Get(o.ID); dup {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
	}
	return nil
}

// CancelOrder 撤销仍在簿中的订单。终态订单返回 ErrNotCancellable。
func (e *Engine) CancelOrder(id string) error {
	return e.CancelOrderIf(id, func(st order.Status) bool { return !order.IsFinalState(st) })
}

// CancelOrderIf 在引擎锁内检查状态，allowed 不通过时返回 ErrNotCancellable。
// 检查与撤单之间不会插入撮合或止损触发。
func (e *Engine) CancelOrderIf(id string, allowed func(order.Status) bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", order.ErrUnknownOrder, id)
	}
	if st := o.Status(); order.IsFinalState(st) || !allowed(st) {
		return fmt.Errorf("%w: %s is %s", order.ErrNotCancellable, id, st)
	}
	res, err := o.Cancel()
	if err != nil {
		return err
	}
	if res.Has(order.EffectReleaseFromBook) {
		e.removeLocked(o)
	}
	sym := o.Symbol()
	e.mon.RecordOrderCancelled(sym)
	e.updateRestingLocked(sym)
	e.log.LogOrder("cancelled", id, map[string]interface{}{
		"symbol":    sym,
		"remaining": o.Remaining(),
	})
	return nil
}

// Order 按 ID 查询订单（含已终结的）。
func (e *Engine) Order(id string) (*order.Order, bool) {
	return e.orders.Get(id)
}

// OpenOrders 返回某只股票仍在簿中的订单，按创建时间排序；symbol 为空时返回全部。
func (e *Engine) OpenOrders(symbol string) []*order.Order {
	e.mu.Lock()
	res := make([]*order.Order, 0)
	for _, book := range []map[string][]*order.Order{e.buys, e.sells} {
		for sym, orders := range book {
			if symbol != "" && sym != symbol {
				continue
			}
			res = append(res, orders...)
		}
	}
	e.mu.Unlock()
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res
}

// Trades 返回某只股票最近的成交（旧的在前）。
func (e *Engine) Trades(symbol string) []market.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	src := e.trades[symbol]
	out := make([]market.Trade, len(src))
	copy(out, src)
	return out
}

// SetHalted 暂停或恢复某只股票的下单；已在簿中的订单保持不动。
func (e *Engine) SetHalted(symbol string, halted bool) error {
	if _, ok := e.market.Stock(symbol); !ok {
		return fmt.Errorf("%w: %s", market.ErrUnknownSymbol, symbol)
	}
	e.mu.Lock()
	prev := e.halted[symbol]
	e.halted[symbol] = halted
	e.mu.Unlock()
	if prev != halted {
		e.log.Info("trading halt changed", zap.String("symbol", symbol), zap.Bool("halted", halted))
	}
	return nil
}

func (e *Engine) Halted(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.halted[symbol]
}

// removeLocked 从簿中移除订单（成交完毕、撤单、失败）。
func (e *Engine) removeLocked(o *order.Order) {
	book := e.sells
	if o.Side == order.SideBuy {
		book = e.buys
	}
	sym := o.Symbol()
	orders := book[sym]
	for i, x := range orders {
		if x == o {
			book[sym] = append(orders[:i:i], orders[i+1:]...)
			return
		}
	}
}

func (e *Engine) updateRestingLocked(symbol string) {
	e.mon.SetRestingOrders(symbol, string(order.SideBuy), len(e.buys[symbol]))
	e.mon.SetRestingOrders(symbol, string(order.SideSell), len(e.sells[symbol]))
}

// alert 结算类告警，按股票限流。
func (e *Engine) alert(critical bool, symbol, msg string, fields map[string]interface{}) {
	if e.alerts == nil {
		return
	}
	send := e.alerts.Error
	if critical {
		send = e.alerts.Critical
	}
	if err := send(symbol, msg, fields); err != nil {
		e.log.Warn("alert delivery failed", zap.String("message", msg), zap.Error(err))
	}
}
