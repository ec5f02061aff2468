package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stock-exchange-go/account"
	"stock-exchange-go/order"
)

// FundsGuard 下单前检查资金与持仓，只检查一次，不冻结资金。
//
//   - MARKET 买单不检查
//   - LIMIT 买单: 余额 >= 数量 × 限价
//   - STOP_LOSS / STOP_LIMIT 买单: 余额 >= 数量 × min(止损价, 当前价)
//   - STOP_LIMIT 买单: 限价不得低于当前价
//   - 所有卖单: 持仓 >= 数量
type FundsGuard struct{}

func (FundsGuard) Validate(o *order.Order) error {
	acct := o.Owner.Account()
	if acct == nil {
		return fmt.Errorf("%w: %s", ErrNoAccount, o.ID)
	}
	if o.Side == order.SideSell {
		held := acct.Holding(o.Symbol())
		if held < o.Quantity {
			return fmt.Errorf("%w: %s holds %d %s, sell %d",
				account.ErrInsufficientStock, acct.ID, held, o.Symbol(), o.Quantity)
		}
		return nil
	}

	qty := decimal.NewFromInt(o.Quantity)
	switch o.Type {
	case order.TypeMarket:
		return nil
	case order.TypeLimit:
		return requireBalance(acct, qty.Mul(o.LimitPrice.Decimal))
	case order.TypeStopLoss, order.TypeStopLimit:
		current := o.Stock.Price()
		if current.IsZero() {
			return fmt.Errorf("%w: %s", ErrNoPrice, o.Symbol())
		}
		if err := requireBalance(acct, qty.Mul(decimal.Min(o.StopPrice.Decimal, current))); err != nil {
			return err
		}
		if o.Type == order.TypeStopLimit && o.LimitPrice.Decimal.LessThan(current) {
			return fmt.Errorf("%w: limit %s < market %s", ErrLimitBelowMarket, o.LimitPrice.Decimal, current)
		}
	}
	return nil
}

func requireBalance(acct *account.Account, need decimal.Decimal) error {
	if bal := acct.Balance(); bal.LessThan(need) {
		return fmt.Errorf("%w: %s has %s, needs %s", account.ErrInsufficientFunds, acct.ID, bal, need)
	}
	return nil
}
