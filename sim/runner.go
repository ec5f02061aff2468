package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"stock-exchange-go/market"
	"stock-exchange-go/order"
	"stock-exchange-go/trader"
)

// Submitter 下单入口，order.Manager 满足该接口。
type Submitter interface {
	Submit(o *order.Order) error
	Cancel(id string) error
}

// Runner 并发生成随机委托，压测撮合与结算（不连接任何外部系统）。
type Runner struct {
	Stock    *market.Stock
	OrderMgr Submitter
	Traders  []*trader.Trader

	Workers         int
	OrdersPerWorker int
	MaxQty          int64
	Band            decimal.Decimal // 限价/止损价相对当前价的最大偏离比例
	Tick            decimal.Decimal
	CancelRatio     float64
	Seed            int64
}

// Report 一次模拟的统计。
type Report struct {
	Submitted int64
	Accepted  int64
	Rejected  int64
	Cancelled int64
	Elapsed   time.Duration
}

func (r Report) String() string {
	return fmt.Sprintf("submitted=%d accepted=%d rejected=%d cancelled=%d elapsed=%s",
		r.Submitted, r.Accepted, r.Rejected, r.Cancelled, r.Elapsed)
}

var orderTypes = []order.Type{order.TypeMarket, order.TypeLimit, order.TypeLimit, order.TypeStopLoss, order.TypeStopLimit}

// Run 启动 Workers 个 goroutine 各提交 OrdersPerWorker 笔委托；ctx 结束时提前返回。
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if r.Stock == nil || r.OrderMgr == nil || len(r.Traders) == 0 {
		return Report{}, errors.New("runner not initialized")
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		rep Report
		wg  sync.WaitGroup
	)
	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(r.Seed + int64(id)))
			var mine []string
			for i := 0; i < r.OrdersPerWorker; i++ {
				if ctx.Err() != nil {
					return
				}
				tr := r.Traders[rng.Intn(len(r.Traders))]
				o, err := r.randomOrder(rng, tr)
				if err != nil {
					continue
				}
				atomic.AddInt64(&rep.Submitted, 1)
				if err := r.OrderMgr.Submit(o); err != nil {
					atomic.AddInt64(&rep.Rejected, 1)
					continue
				}
				atomic.AddInt64(&rep.Accepted, 1)
				mine = append(mine, o.ID)

				if len(mine) > 0 && rng.Float64() < r.CancelRatio {
					victim := mine[rng.Intn(len(mine))]
					if err := r.OrderMgr.Cancel(victim); err == nil {
						atomic.AddInt64(&rep.Cancelled, 1)
					}
				}
			}
		}(w)
	}
	wg.Wait()
	rep.Elapsed = time.Since(start)
	return rep, ctx.Err()
}

func (r *Runner) randomOrder(rng *rand.Rand, tr *trader.Trader) (*order.Order, error) {
	maxQty := r.MaxQty
	if maxQty <= 0 {
		maxQty = 10
	}
	b := order.NewBuilder().
		Type(orderTypes[rng.Intn(len(orderTypes))]).
		Quantity(1 + rng.Int63n(maxQty)).
		Stock(r.Stock).
		Owner(tr).
		LimitPrice(r.randomPrice(rng)).
		StopPrice(r.randomPrice(rng))
	if rng.Intn(2) == 0 {
		b.Buy()
	} else {
		b.Sell()
	}
	return b.Build()
}

// randomPrice 当前价 × (1 ± Band 内的随机比例)，按 Tick 取整。
func (r *Runner) randomPrice(rng *rand.Rand) decimal.Decimal {
	px := r.Stock.Price()
	if r.Band.IsPositive() {
		shift := decimal.NewFromFloat(rng.Float64()*2 - 1).Mul(r.Band)
		px = px.Mul(decimal.NewFromInt(1).Add(shift))
	}
	if r.Tick.IsPositive() {
		px = px.Div(r.Tick).Round(0).Mul(r.Tick)
	}
	if !px.IsPositive() {
		px = r.Stock.Price()
	}
	return px
}

// Totals 统计全部交易员的现金与某只股票的持仓，用于检查守恒。
func Totals(traders []*trader.Trader, symbol string) (decimal.Decimal, int64) {
	cash := decimal.Zero
	var shares int64
	for _, t := range traders {
		cash = cash.Add(t.Account().Balance())
		shares += t.Account().Holding(symbol)
	}
	return cash, shares
}
