package posttrade

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stock-exchange-go/market"
)

// Stats 某只股票在统计窗口内的成交汇总
type Stats struct {
	Symbol   string
	Trades   int
	Volume   int64
	Notional decimal.Decimal
	VWAP     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Last     decimal.Decimal
	// Drift 当前价相对 VWAP 的偏离比例，正数表示成交后价格上行
	Drift decimal.Decimal
}

// MarketSource 提供当前价格
type MarketSource interface {
	LastPrices() map[string]decimal.Decimal
}

type record struct {
	price decimal.Decimal
	qty   int64
	ts    time.Time
}

// Analyzer 按股票累积成交记录，计算 VWAP 与成交后价格偏离
type Analyzer struct {
	mu           sync.RWMutex
	trades       map[string][]record
	marketSource MarketSource
}

func NewAnalyzer(marketSource MarketSource) *Analyzer {
	return &Analyzer{
		trades:       make(map[string][]record),
		marketSource: marketSource,
	}
}

// OnTrade 记录一笔成交
func (a *Analyzer) OnTrade(t market.Trade) {
	ts := t.Ts
	if ts.IsZero() {
		ts = time.Now()
	}
	a.mu.Lock()
	a.trades[t.Symbol] = append(a.trades[t.Symbol], record{price: t.Price, qty: t.Qty, ts: ts})
	a.mu.Unlock()
}

// Run 消费成交流，并每隔 cleanEvery 清理早于 maxAge 的记录
func (a *Analyzer) Run(ctx context.Context, trades <-chan market.Trade, cleanEvery, maxAge time.Duration) {
	ticker := time.NewTicker(cleanEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-trades:
			a.OnTrade(t)
		case <-ticker.C:
			a.CleanOldRecords(maxAge)
		}
	}
}

// Stats 返回某只股票的统计；没有成交时第二个返回值为 false
func (a *Analyzer) Stats(symbol string) (Stats, bool) {
	a.mu.RLock()
	recs := a.trades[symbol]
	a.mu.RUnlock()
	if len(recs) == 0 {
		return Stats{Symbol: symbol}, false
	}

	st := Stats{Symbol: symbol, Trades: len(recs), Notional: decimal.Zero}
	st.High, st.Low = recs[0].price, recs[0].price
	for _, r := range recs {
		st.Volume += r.qty
		st.Notional = st.Notional.Add(r.price.Mul(decimal.NewFromInt(r.qty)))
		if r.price.GreaterThan(st.High) {
			st.High = r.price
		}
		if r.price.LessThan(st.Low) {
			st.Low = r.price
		}
	}
	st.Last = recs[len(recs)-1].price
	if st.Volume > 0 {
		st.VWAP = st.Notional.Div(decimal.NewFromInt(st.Volume))
	}

	current := st.Last
	if a.marketSource != nil {
		if p, ok := a.marketSource.LastPrices()[symbol]; ok {
			current = p
		}
	}
	if st.VWAP.IsPositive() {
		st.Drift = current.Sub(st.VWAP).Div(st.VWAP)
	}
	return st, true
}

// All 返回全部有成交的股票统计，按代码排序
func (a *Analyzer) All() []Stats {
	a.mu.RLock()
	symbols := make([]string, 0, len(a.trades))
	for sym := range a.trades {
		symbols = append(symbols, sym)
	}
	a.mu.RUnlock()
	sort.Strings(symbols)

	res := make([]Stats, 0, len(symbols))
	for _, sym := range symbols {
		if st, ok := a.Stats(sym); ok {
			res = append(res, st)
		}
	}
	return res
}

// CleanOldRecords 删除早于 maxAge 的记录
func (a *Analyzer) CleanOldRecords(maxAge time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for sym, recs := range a.trades {
		i := sort.Search(len(recs), func(i int) bool { return recs[i].ts.After(cutoff) })
		if i == len(recs) {
			delete(a.trades, sym)
			continue
		}
		a.trades[sym] = append([]record(nil), recs[i:]...)
	}
}
