package engine

import (
	"sort"

	"stock-exchange-go/market"
	"stock-exchange-go/order"
)

// Depth 按价格档位聚合某只股票的限价挂单；levels<=0 时返回全部档位。
// 市价类订单与未触发的止损限价单没有可展示的挂单价，不计入。
func (e *Engine) Depth(symbol string, levels int) market.Depth {
	e.mu.Lock()
	bids := aggregate(e.buys[symbol])
	asks := aggregate(e.sells[symbol])
	e.mu.Unlock()

	sort.Slice(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })
	if levels > 0 {
		if len(bids) > levels {
			bids = bids[:levels]
		}
		if len(asks) > levels {
			asks = asks[:levels]
		}
	}
	return market.Depth{Symbol: symbol, Bids: bids, Asks: asks}
}

func aggregate(orders []*order.Order) []market.Level {
	byPrice := make(map[string]*market.Level)
	for _, o := range orders {
		if !order.IsActiveState(o.Status()) {
			continue
		}
		if o.Type == order.TypeStopLimit && !o.HasTriggered() {
			continue
		}
		p, ok := o.Price()
		if !ok {
			continue
		}
		key := p.String()
		lvl, ok := byPrice[key]
		if !ok {
			lvl = &market.Level{Price: p}
			byPrice[key] = lvl
		}
		lvl.Quantity += o.Remaining()
		lvl.Orders++
	}
	res := make([]market.Level, 0, len(byPrice))
	for _, lvl := range byPrice {
		res = append(res, *lvl)
	}
	return res
}
