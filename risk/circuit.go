package risk

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Tick 一笔成交的价格与时间。
type Tick struct {
	Price decimal.Decimal
	Ts    time.Time
}

// CircuitBreaker 按股票统计近 1 分钟、5 分钟的涨跌幅，超过阈值即熔断。
type CircuitBreaker struct {
	// 阈值：相对涨跌幅，0 表示该窗口不检查
	OneMinuteThresh  decimal.Decimal
	FiveMinuteThresh decimal.Decimal

	mu      sync.Mutex
	windows map[string]*tickWindows
}

type tickWindows struct {
	w1m []Tick
	w5m []Tick
}

func NewCircuitBreaker(one, five decimal.Decimal) *CircuitBreaker {
	return &CircuitBreaker{
		OneMinuteThresh:  one,
		FiveMinuteThresh: five,
		windows:          make(map[string]*tickWindows),
	}
}

// SetThresholds 热更新阈值。
func (c *CircuitBreaker) SetThresholds(one, five decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OneMinuteThresh = one
	c.FiveMinuteThresh = five
}

// OnTick 返回 (是否触发, 触发窗口 "1m"/"5m"/"")
func (c *CircuitBreaker) OnTick(symbol string, t Tick) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[symbol]
	if !ok {
		w = &tickWindows{
			w1m: make([]Tick, 0, 128),
			w5m: make([]Tick, 0, 512),
		}
		c.windows[symbol] = w
	}
	w.w1m = trim(append(w.w1m, t), t.Ts.Add(-1*time.Minute))
	w.w5m = trim(append(w.w5m, t), t.Ts.Add(-5*time.Minute))

	if check(w.w1m, c.OneMinuteThresh) {
		return true, "1m"
	}
	if check(w.w5m, c.FiveMinuteThresh) {
		return true, "5m"
	}
	return false, ""
}

// Reset 清空某只股票的窗口，恢复交易时调用。
func (c *CircuitBreaker) Reset(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.windows, symbol)
}

func trim(buf []Tick, cutoff time.Time) []Tick {
	i := 0
	for ; i < len(buf); i++ {
		if buf[i].Ts.After(cutoff) {
			break
		}
	}
	return buf[i:]
}

func check(buf []Tick, thresh decimal.Decimal) bool {
	if !thresh.IsPositive() || len(buf) == 0 {
		return false
	}
	first := buf[0].Price
	if first.IsZero() {
		return false
	}
	change := buf[len(buf)-1].Price.Sub(first).Div(first).Abs()
	return change.GreaterThan(thresh)
}
