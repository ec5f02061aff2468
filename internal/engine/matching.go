package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stock-exchange-go/order"
)

// matchLocked 对一只股票循环撮合：评估止损触发，选出最优买卖，交叉则结算。
// 每一轮要么成交一定数量、要么有订单失败离簿、要么没有交叉而退出，因此必然终止。
// 返回执行的轮数。
func (e *Engine) matchLocked(symbol string) int {
	stock, ok := e.market.Stock(symbol)
	if !ok {
		return 0
	}
	rounds := 0
	for {
		rounds++
		price := stock.Price()
		e.triggerStopsLocked(symbol, price)

		buy, ok := bestOrder(e.buys[symbol], order.SideBuy, price)
		if !ok {
			return rounds
		}
		sell, ok := bestOrder(e.sells[symbol], order.SideSell, price)
		if !ok {
			return rounds
		}
		if !crosses(buy, sell, price) {
			return rounds
		}
		e.executeLocked(buy, sell, price)
	}
}

// triggerStopsLocked 按最新价评估两侧未触发的止损单。
func (e *Engine) triggerStopsLocked(symbol string, price decimal.Decimal) {
	for _, orders := range [][]*order.Order{e.buys[symbol], e.sells[symbol]} {
		for _, o := range orders {
			if !o.Type.IsStop() || o.HasTriggered() {
				continue
			}
			fired, err := o.EvaluateTrigger(price)
			if err != nil {
				e.log.Error("stop trigger failed", zap.String("order_id", o.ID), zap.Error(err))
				continue
			}
			if fired {
				e.mon.RecordStopTrigger(symbol, string(o.Type))
				e.log.LogOrder("triggered", o.ID, map[string]interface{}{
					"symbol": symbol,
					"stop":   o.StopPrice.Decimal.String(),
					"market": price.String(),
				})
			}
		}
	}
}

// bestOrder 选出一侧的最优可执行订单：
// 有限价类订单时取买方最高价、卖方最低价（同价先到先得），否则取最早到达的市价类订单。
// 没有可执行订单时返回 (nil, false)。
func bestOrder(orders []*order.Order, side order.Side, marketPrice decimal.Decimal) (*order.Order, bool) {
	var (
		priced    *order.Order
		bestPrice decimal.Decimal
		unpriced  *order.Order
	)
	for _, o := range orders {
		if !o.IsExecutable(marketPrice) {
			continue
		}
		p, ok := o.Price()
		if !ok {
			if unpriced == nil {
				unpriced = o
			}
			continue
		}
		if priced == nil || better(side, p, bestPrice) {
			priced, bestPrice = o, p
		}
	}
	if priced != nil {
		return priced, true
	}
	if unpriced != nil {
		return unpriced, true
	}
	return nil, false
}

func better(side order.Side, p, than decimal.Decimal) bool {
	if side == order.SideBuy {
		return p.GreaterThan(than)
	}
	return p.LessThan(than)
}

// effectivePrice 限价类取限价，市价类取当前市价。
func effectivePrice(o *order.Order, marketPrice decimal.Decimal) decimal.Decimal {
	if p, ok := o.Price(); ok {
		return p
	}
	return marketPrice
}

func crosses(buy, sell *order.Order, marketPrice decimal.Decimal) bool {
	return effectivePrice(buy, marketPrice).GreaterThanOrEqual(effectivePrice(sell, marketPrice))
}

// executionPrice 只有一方是限价类时用它的价格；双方都是取较低者；双方都不是取当前市价。
func executionPrice(buy, sell *order.Order, marketPrice decimal.Decimal) decimal.Decimal {
	bp, buyPriced := buy.Price()
	sp, sellPriced := sell.Price()
	switch {
	case buyPriced && sellPriced:
		return decimal.Min(bp, sp)
	case buyPriced:
		return bp
	case sellPriced:
		return sp
	default:
		return marketPrice
	}
}
