package order

// Side 买卖方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Type 委托类型。
type Type string

const (
	TypeMarket    Type = "MARKET"
	TypeLimit     Type = "LIMIT"
	TypeStopLoss  Type = "STOP_LOSS"
	TypeStopLimit Type = "STOP_LIMIT"
)

// IsPriced 限价类委托（LIMIT、STOP_LIMIT）带有自己的价格，参与价格优先排序。
func (t Type) IsPriced() bool {
	return t == TypeLimit || t == TypeStopLimit
}

// IsStop 带止损触发价的委托。
func (t Type) IsStop() bool {
	return t == TypeStopLoss || t == TypeStopLimit
}

func (t Type) Valid() bool {
	switch t {
	case TypeMarket, TypeLimit, TypeStopLoss, TypeStopLimit:
		return true
	}
	return false
}

// Status represents order lifecycle.
type Status string

const (
	StatusOpen            Status = "OPEN"
	StatusTriggered       Status = "TRIGGERED"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
	StatusFailed          Status = "FAILED"
)
