package container

import (
	"errors"

	"stock-exchange-go/account"
	"stock-exchange-go/internal/engine"
	"stock-exchange-go/market"
	"stock-exchange-go/order"
	"stock-exchange-go/risk"
)

var rejectReasons = []struct {
	err    error
	reason string
}{
	{account.ErrInsufficientFunds, "insufficient_funds"},
	{account.ErrInsufficientStock, "insufficient_stock"},
	{risk.ErrLimitBelowMarket, "limit_below_market"},
	{risk.ErrSingleExceed, "single_limit"},
	{risk.ErrDailyExceed, "daily_limit"},
	{risk.ErrRateLimited, "rate_limited"},
	{order.ErrConstraint, "constraint"},
	{order.ErrWrongSide, "wrong_side"},
	{engine.ErrSymbolHalted, "halted"},
	{engine.ErrDuplicateOrder, "duplicate"},
	{engine.ErrNotOpen, "not_open"},
	{market.ErrUnknownSymbol, "unknown_symbol"},
}

// RejectReason 把拒单错误归类为指标标签。
func RejectReason(err error) string {
	for _, r := range rejectReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}
