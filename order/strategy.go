package order

import "github.com/shopspring/decimal"

// ExecutionStrategy 每种委托类型一个实现，两个方法均为纯查询。
// 止损触发的状态修改由 Order.EvaluateTrigger 显式完成。
type ExecutionStrategy interface {
	// ShouldTrigger 止损条件是否满足且尚未触发。
	ShouldTrigger(o *Order, marketPrice decimal.Decimal) bool
	// IsExecutable 按当前市价判断是否可执行。
	IsExecutable(o *Order, marketPrice decimal.Decimal) bool
}

// StrategyFor 返回委托类型对应的策略；未知类型按不可执行处理。
func StrategyFor(t Type) ExecutionStrategy {
	switch t {
	case TypeMarket:
		return marketStrategy{}
	case TypeLimit:
		return limitStrategy{}
	case TypeStopLoss:
		return stopLossStrategy{}
	case TypeStopLimit:
		return stopLimitStrategy{}
	default:
		return neverStrategy{}
	}
}

type marketStrategy struct{}

func (marketStrategy) ShouldTrigger(*Order, decimal.Decimal) bool { return false }
func (marketStrategy) IsExecutable(*Order, decimal.Decimal) bool { return true }

type limitStrategy struct{}

func (limitStrategy) ShouldTrigger(*Order, decimal.Decimal) bool { return false }
func (limitStrategy) IsExecutable(o *Order, p decimal.Decimal) bool {
	return limitReached(o, p)
}

type stopLossStrategy struct{}

func (stopLossStrategy) ShouldTrigger(o *Order, p decimal.Decimal) bool {
	return !o.HasTriggered() && stopReached(o, p)
}

// 触发后按市价单执行，不再回看止损价。
func (stopLossStrategy) IsExecutable(o *Order, _ decimal.Decimal) bool {
	return o.HasTriggered()
}

type stopLimitStrategy struct{}

func (stopLimitStrategy) ShouldTrigger(o *Order, p decimal.Decimal) bool {
	return !o.HasTriggered() && stopReached(o, p)
}

// 触发后按限价单执行。
func (stopLimitStrategy) IsExecutable(o *Order, p decimal.Decimal) bool {
	return o.HasTriggered() && limitReached(o, p)
}

type neverStrategy struct{}

func (neverStrategy) ShouldTrigger(*Order, decimal.Decimal) bool { return false }
func (neverStrategy) IsExecutable(*Order, decimal.Decimal) bool { return false }

// limitReached BUY: 市价 <= 限价；SELL: 市价 >= 限价。
func limitReached(o *Order, p decimal.Decimal) bool {
	if !o.LimitPrice.Valid {
		return false
	}
	if o.Side == SideBuy {
		return p.LessThanOrEqual(o.LimitPrice.Decimal)
	}
	return p.GreaterThanOrEqual(o.LimitPrice.Decimal)
}

// stopReached BUY: 市价 >= 止损价；SELL: 市价 <= 止损价。
func stopReached(o *Order, p decimal.Decimal) bool {
	if !o.StopPrice.Valid {
		return false
	}
	if o.Side == SideBuy {
		return p.GreaterThanOrEqual(o.StopPrice.Decimal)
	}
	return p.LessThanOrEqual(o.StopPrice.Decimal)
}
