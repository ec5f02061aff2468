package market

import "github.com/shopspring/decimal"

// Level 一个价格档位的聚合挂单。
type Level struct {
	Price    decimal.Decimal
	Quantity int64
	Orders   int
}

// Depth 某只股票按价格档位聚合的盘口；Bids 价格降序，Asks 价格升序。
type Depth struct {
	Symbol string
	Bids   []Level
	Asks   []Level
}

// BestBid 返回最优买价。
func (d Depth) BestBid() (decimal.Decimal, bool) {
	if len(d.Bids) == 0 {
		return decimal.Zero, false
	}
	return d.Bids[0].Price, true
}

// BestAsk 返回最优卖价。
func (d Depth) BestAsk() (decimal.Decimal, bool) {
	if len(d.Asks) == 0 {
		return decimal.Zero, false
	}
	return d.Asks[0].Price, true
}

// Spread 返回买卖价差；任一侧缺失时第二个返回值为 false。
func (d Depth) Spread() (decimal.Decimal, bool) {
	bid, okBid := d.BestBid()
	ask, okAsk := d.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return ask.Sub(bid), true
}
