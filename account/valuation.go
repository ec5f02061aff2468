package account

import "github.com/shopspring/decimal"

// Equity 基于最新成交价计算账户总权益（余额 + 持仓市值）。
// 缺少价格的股票不计入市值。
func (a *Account) Equity(prices map[string]decimal.Decimal) decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	total := a.balance
	for sym, qty := range a.holdings {
		p, ok := prices[sym]
		if !ok {
			continue
		}
		total = total.Add(p.Mul(decimal.NewFromInt(qty)))
	}
	return total
}
