package market

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice  = errors.New("price must be positive")
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrDuplicate     = errors.New("symbol already listed")
)

// Stock 保存股票代码与最新成交价。
// 同一代码只存在一个实例，按指针共享；价格只由成交回报写入（见 Service.OnTrade）。
type Stock struct {
	Symbol string

	mu    sync.RWMutex
	price decimal.Decimal
}

func NewStock(symbol string, price decimal.Decimal) (*Stock, error) {
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: %s %s", ErrInvalidPrice, symbol, price)
	}
	return &Stock{Symbol: symbol, price: price}, nil
}

// Price 返回最新成交价。
func (s *Stock) Price() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price
}

func (s *Stock) setPrice(p decimal.Decimal) {
	s.mu.Lock()
	s.price = p
	s.mu.Unlock()
}
