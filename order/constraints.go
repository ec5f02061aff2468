package order

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrConstraint = errors.New("symbol constraint violated")

// SymbolConstraints 描述股票的价格步长与数量限制。
type SymbolConstraints struct {
	TickSize decimal.Decimal
	MinQty   int64
	MaxQty   int64
}

// Validate 检查委托数量与所带价格是否符合限制。
func (c SymbolConstraints) Validate(o *Order) error {
	if c.MinQty > 0 && o.Quantity < c.MinQty {
		return fmt.Errorf("%w: qty %d < minQty %d", ErrConstraint, o.Quantity, c.MinQty)
	}
	if c.MaxQty > 0 && o.Quantity > c.MaxQty {
		return fmt.Errorf("%w: qty %d > maxQty %d", ErrConstraint, o.Quantity, c.MaxQty)
	}
	if o.LimitPrice.Valid && !isMultiple(o.LimitPrice.Decimal, c.TickSize) {
		return fmt.Errorf("%w: limit price %s not aligned to tickSize %s", ErrConstraint, o.LimitPrice.Decimal, c.TickSize)
	}
	if o.StopPrice.Valid && !isMultiple(o.StopPrice.Decimal, c.TickSize) {
		return fmt.Errorf("%w: stop price %s not aligned to tickSize %s", ErrConstraint, o.StopPrice.Decimal, c.TickSize)
	}
	return nil
}

func isMultiple(value, step decimal.Decimal) bool {
	if !step.IsPositive() {
		return true
	}
	return value.Mod(step).IsZero()
}
