package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade 一笔撮合成交。
type Trade struct {
	ID          string
	Symbol      string
	Price       decimal.Decimal
	Qty         int64
	BuyOrderID  string
	SellOrderID string
	Ts          time.Time
}

// Notional 成交金额 = 价格 × 数量。
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Qty))
}
