package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// KlineAggregator 从成交流生成固定周期的 Kline。
type KlineAggregator struct {
	Symbol   string
	Interval time.Duration
	mu       sync.Mutex
	current  *Kline
}

func NewKlineAggregator(symbol string, interval time.Duration) *KlineAggregator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &KlineAggregator{Symbol: symbol, Interval: interval}
}

// OnTrade 更新当前 Kline；跨周期时返回闭合的上一根，否则返回 nil。
func (a *KlineAggregator) OnTrade(price decimal.Decimal, qty int64, ts time.Time) *Kline {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil || ts.Sub(a.current.Ts) >= a.Interval {
		closed := a.current
		a.current = &Kline{
			Symbol: a.Symbol,
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: qty,
			Ts:     ts.Truncate(a.Interval),
		}
		return closed
	}

	if price.GreaterThan(a.current.High) {
		a.current.High = price
	}
	if price.LessThan(a.current.Low) {
		a.current.Low = price
	}
	a.current.Close = price
	a.current.Volume += qty
	return nil
}

// Current 返回当前未闭合 Kline 的拷贝。
func (a *KlineAggregator) Current() (Kline, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Kline{}, false
	}
	return *a.current, true
}
