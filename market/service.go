package market

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Service 维护上市股票的最新成交价与 Kline，并向订阅者广播成交。
type Service struct {
	pub      *Publisher
	interval time.Duration

	mu     sync.RWMutex
	stocks map[string]*Stock
	klines map[string]*KlineAggregator
	last   map[string]time.Time
}

// NewService 创建行情服务；klineInterval<=0 时默认 1 分钟。
func NewService(pub *Publisher, klineInterval time.Duration) *Service {
	if pub == nil {
		pub = NewPublisher()
	}
	if klineInterval <= 0 {
		klineInterval = time.Minute
	}
	return &Service{
		pub:      pub,
		interval: klineInterval,
		stocks:   make(map[string]*Stock),
		klines:   make(map[string]*KlineAggregator),
		last:     make(map[string]time.Time),
	}
}

// List 上市一只股票。
func (s *Service) List(symbol string, price decimal.Decimal) (*Stock, error) {
	st, err := NewStock(symbol, price)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stocks[symbol]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, symbol)
	}
	s.stocks[symbol] = st
	s.klines[symbol] = NewKlineAggregator(symbol, s.interval)
	return st, nil
}

func (s *Service) Stock(symbol string) (*Stock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stocks[symbol]
	return st, ok
}

// Symbols 返回排序后的全部代码。
func (s *Service) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]string, 0, len(s.stocks))
	for sym := range s.stocks {
		res = append(res, sym)
	}
	sort.Strings(res)
	return res
}

// LastPrices 返回全部最新成交价。
func (s *Service) LastPrices() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make(map[string]decimal.Decimal, len(s.stocks))
	for sym, st := range s.stocks {
		res[sym] = st.Price()
	}
	return res
}

// OnTrade 写入最新成交价、更新 Kline 并广播。只应由撮合引擎调用。
func (s *Service) OnTrade(t Trade) error {
	if !t.Price.IsPositive() {
		return fmt.Errorf("%w: trade %s", ErrInvalidPrice, t.ID)
	}
	s.mu.Lock()
	st, ok := s.stocks[t.Symbol]
	agg := s.klines[t.Symbol]
	if ok {
		s.last[t.Symbol] = t.Ts
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, t.Symbol)
	}
	st.setPrice(t.Price)
	s.pub.PublishTrade(t)
	if closed := agg.OnTrade(t.Price, t.Qty, t.Ts); closed != nil {
		s.pub.PublishKline(*closed)
	}
	return nil
}

// Kline 返回当前未闭合的 Kline。
func (s *Service) Kline(symbol string) (Kline, bool) {
	s.mu.RLock()
	agg, ok := s.klines[symbol]
	s.mu.RUnlock()
	if !ok {
		return Kline{}, false
	}
	return agg.Current()
}

// Staleness 返回距离上次成交的时间间隔；如无成交返回一年。
func (s *Service) Staleness(symbol string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.last[symbol]
	if !ok {
		return time.Hour * 24 * 365
	}
	return time.Since(ts)
}

func (s *Service) Publisher() *Publisher { return s.pub }
