package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stock-exchange-go/market"
)

var (
	ErrMissingSide       = errors.New("side is required")
	ErrInvalidType       = errors.New("invalid order type")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrMissingStock      = errors.New("stock is required")
	ErrMissingOwner      = errors.New("owner is required")
	ErrMissingLimitPrice = errors.New("limit price is required")
	ErrMissingStopPrice  = errors.New("stop price is required")
	ErrInvalidPrice      = errors.New("price must be > 0")
)

// Builder 逐项设置委托字段，Build 时统一校验。
type Builder struct {
	id    string
	typ   Type
	side  Side
	qty   int64
	limit decimal.NullDecimal
	stop  decimal.NullDecimal
	stock *market.Stock
	owner Owner
	now   func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{typ: TypeMarket, now: time.Now}
}

func (b *Builder) ID(id string) *Builder { b.id = id; return b }
func (b *Builder) Type(t Type) *Builder { b.typ = t; return b }
func (b *Builder) Side(s Side) *Builder { b.side = s; return b }
func (b *Builder) Buy() *Builder { b.side = SideBuy; return b }
func (b *Builder) Sell() *Builder { b.side = SideSell; return b }
func (b *Builder) Quantity(q int64) *Builder { b.qty = q; return b }
func (b *Builder) Stock(s *market.Stock) *Builder { b.stock = s; return b }
func (b *Builder) Owner(o Owner) *Builder { b.owner = o; return b }

func (b *Builder) LimitPrice(p decimal.Decimal) *Builder {
	b.limit = decimal.NewNullDecimal(p)
	return b
}

func (b *Builder) StopPrice(p decimal.Decimal) *Builder {
	b.stop = decimal.NewNullDecimal(p)
	return b
}

// Build 校验必填项并生成 OPEN 状态的委托；未指定 ID 时生成 UUID。
func (b *Builder) Build() (*Order, error) {
	if b.side != SideBuy && b.side != SideSell {
		return nil, ErrMissingSide
	}
	if !b.typ.Valid() {
		return nil, ErrInvalidType
	}
	if b.qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if b.stock == nil {
		return nil, ErrMissingStock
	}
	if b.owner == nil {
		return nil, ErrMissingOwner
	}
	if b.typ.IsPriced() && !b.limit.Valid {
		return nil, ErrMissingLimitPrice
	}
	if b.typ.IsStop() && !b.stop.Valid {
		return nil, ErrMissingStopPrice
	}
	if b.limit.Valid && !b.limit.Decimal.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if b.stop.Valid && !b.stop.Decimal.IsPositive() {
		return nil, ErrInvalidPrice
	}
	id := b.id
	if id == "" {
		id = uuid.NewString()
	}
	now := b.now()
	o := &Order{
		ID:        id,
		CreatedAt: now,
		Type:      b.typ,
		Side:      b.side,
		Quantity:  b.qty,
		Stock:     b.stock,
		Owner:     b.owner,
		remaining: b.qty,
		status:    StatusOpen,
		updatedAt: now,
	}
	// 只保留该类型用得到的价格
	if b.typ.IsPriced() {
		o.LimitPrice = b.limit
	}
	if b.typ.IsStop() {
		o.StopPrice = b.stop
	}
	return o, nil
}
