package order

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stock-exchange-go/account"
	"stock-exchange-go/market"
)

var (
	ErrOverfill       = errors.New("fill exceeds remaining quantity")
	ErrNotStopOrder   = errors.New("order has no stop price")
	ErrUnknownOrder   = errors.New("unknown order")
	ErrNotCancellable = errors.New("order not cancellable")
)

// Owner 订单所有者：提供结算账户，并同步接收每次状态变化与成交。
// OnOrderUpdate 在撮合引擎持锁期间调用，实现方不得回调引擎。
type Owner interface {
	Account() *account.Account
	OnOrderUpdate(s Snapshot)
}

// History 由需要维护委托历史的 Owner 实现。
type History interface {
	AddOrder(o *Order)
	RemoveActive(id string)
}

// Order 一笔委托。价格、方向等字段创建后不变；剩余数量与状态只通过状态机修改。
type Order struct {
	ID         string
	CreatedAt  time.Time
	Type       Type
	Side       Side
	Quantity   int64
	LimitPrice decimal.NullDecimal
	StopPrice  decimal.NullDecimal
	Stock      *market.Stock
	Owner      Owner

	mu            sync.RWMutex
	remaining     int64
	status        Status
	hasTriggered  bool
	lastFillQty   int64
	lastFillPrice decimal.Decimal
	lastError     string
	updatedAt     time.Time
}

// Result 一次状态转换的结果。
type Result struct {
	From    Status
	To      Status
	Effects []Effect
}

// Has 判断结果是否包含某个副作用。
func (r Result) Has(e Effect) bool {
	for _, x := range r.Effects {
		if x == e {
			return true
		}
	}
	return false
}

// Snapshot 通知给 Owner 的只读视图。
type Snapshot struct {
	ID            string
	Symbol        string
	Type          Type
	Side          Side
	Quantity      int64
	Remaining     int64
	LimitPrice    decimal.NullDecimal
	StopPrice     decimal.NullDecimal
	HasTriggered  bool
	Status        Status
	LastFillQty   int64
	LastFillPrice decimal.Decimal
	LastError     string
	UpdatedAt     time.Time
}

func (o *Order) Symbol() string {
	if o.Stock == nil {
		return ""
	}
	return o.Stock.Symbol
}

func (o *Order) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

func (o *Order) Remaining() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.remaining
}

// Filled 已成交数量。
func (o *Order) Filled() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.Quantity - o.remaining
}

func (o *Order) HasTriggered() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.hasTriggered
}

// Price 限价类委托的排序与撮合价格（limit price）。
func (o *Order) Price() (decimal.Decimal, bool) {
	if !o.Type.IsPriced() || !o.LimitPrice.Valid {
		return decimal.Zero, false
	}
	return o.LimitPrice.Decimal, true
}

func (o *Order) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshotLocked()
}

func (o *Order) snapshotLocked() Snapshot {
	return Snapshot{
		ID:            o.ID,
		Symbol:        o.Symbol(),
		Type:          o.Type,
		Side:          o.Side,
		Quantity:      o.Quantity,
		Remaining:     o.remaining,
		LimitPrice:    o.LimitPrice,
		StopPrice:     o.StopPrice,
		HasTriggered:  o.hasTriggered,
		Status:        o.status,
		LastFillQty:   o.lastFillQty,
		LastFillPrice: o.lastFillPrice,
		LastError:     o.lastError,
		UpdatedAt:     o.updatedAt,
	}
}

// Strategy 返回该委托类型对应的执行策略。
func (o *Order) Strategy() ExecutionStrategy {
	return StrategyFor(o.Type)
}

// IsExecutable 纯查询：按当前市价判断是否可执行，不修改订单。
func (o *Order) IsExecutable(marketPrice decimal.Decimal) bool {
	if !IsActiveState(o.Status()) {
		return false
	}
	return o.Strategy().IsExecutable(o, marketPrice)
}

// EvaluateTrigger 显式的触发步骤：止损条件满足且尚未触发时转入 TRIGGERED。
// 返回是否发生了触发。
func (o *Order) EvaluateTrigger(marketPrice decimal.Decimal) (bool, error) {
	if !o.Type.IsStop() {
		return false, nil
	}
	if !o.Strategy().ShouldTrigger(o, marketPrice) {
		return false, nil
	}
	if _, err := o.trigger(); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Order) trigger() (Result, error) {
	if !o.StopPrice.Valid {
		return Result{}, ErrNotStopOrder
	}
	return o.apply(EventTrigger, func() { o.hasTriggered = true })
}

// Fill 按成交数量与价格推进状态：剩余为 0 时 FILLED，否则 PARTIALLY_FILLED。
func (o *Order) Fill(qty int64, price decimal.Decimal) (Result, error) {
	o.mu.RLock()
	remaining := o.remaining
	o.mu.RUnlock()
	if qty <= 0 || qty > remaining {
		return Result{}, fmt.Errorf("%w: order %s fill %d remaining %d", ErrOverfill, o.ID, qty, remaining)
	}
	ev := EventPartialFill
	if qty == remaining {
		ev = EventFill
	}
	return o.apply(ev, func() {
		o.remaining -= qty
		o.lastFillQty = qty
		o.lastFillPrice = price
	})
}

// Fail 标记失败（结算某一腿失败）。
func (o *Order) Fail(cause error) (Result, error) {
	return o.apply(EventFail, func() {
		if cause != nil {
			o.lastError = cause.Error()
		}
	})
}

// Cancel 委托给状态机；终态上为空操作。
func (o *Order) Cancel() (Result, error) {
	return o.apply(EventCancel, nil)
}

// apply 在订单锁内完成转换与字段修改，锁外执行通知副作用。
func (o *Order) apply(ev Event, mutate func()) (Result, error) {
	o.mu.Lock()
	from := o.status
	to, effects, err := Transition(from, ev)
	if err != nil {
		o.mu.Unlock()
		return Result{From: from, To: from}, fmt.Errorf("order %s: %w", o.ID, err)
	}
	if len(effects) == 0 {
		o.mu.Unlock()
		return Result{From: from, To: to}, nil
	}
	if mutate != nil {
		mutate()
	}
	o.status = to
	o.updatedAt = time.Now()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	res := Result{From: from, To: to, Effects: effects}
	if res.Has(EffectNotifyOwner) && o.Owner != nil {
		o.Owner.OnOrderUpdate(snap)
	}
	return res, nil
}
