package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kline represents OHLC data plus traded volume.
type Kline struct {
	Symbol string
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
	Ts     time.Time
}
