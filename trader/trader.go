package trader

import (
	"sort"
	"sync"

	"stock-exchange-go/account"
	"stock-exchange-go/order"
)

// EventSink 接收交易员侧事件（成交、状态变化），用于日志或推送。
type EventSink func(string, map[string]interface{})

// Trader 订单所有者：持有结算账户、委托历史与活跃委托。
// 实现 order.Owner 与 order.History。
type Trader struct {
	ID   string
	Name string

	acct  *account.Account
	fills *order.FillTracker
	sink  EventSink

	mu        sync.RWMutex
	history   []*order.Order
	active    map[string]*order.Order
	remaining map[string]int64 // 上次通知时的剩余数量，用于推算本次成交量
	updates   []order.Snapshot
	maxUpdate int
}

func New(id, name string, acct *account.Account, sink EventSink) *Trader {
	return &Trader{
		ID:        id,
		Name:      name,
		acct:      acct,
		fills:     order.NewFillTracker(500),
		sink:      sink,
		active:    make(map[string]*order.Order),
		remaining: make(map[string]int64),
		maxUpdate: 1000,
	}
}

func (t *Trader) Account() *account.Account { return t.acct }

// Fills 返回本交易员的成交统计。
func (t *Trader) Fills() *order.FillTracker { return t.fills }

// OnOrderUpdate 同步回调，撮合引擎持锁期间调用，不得回调引擎。
func (t *Trader) OnOrderUpdate(s order.Snapshot) {
	t.mu.Lock()
	prev, ok := t.remaining[s.ID]
	if !ok {
		prev = s.Quantity
	}
	filled := prev - s.Remaining
	if order.IsFinalState(s.Status) {
		delete(t.active, s.ID)
		delete(t.remaining, s.ID)
	} else {
		t.remaining[s.ID] = s.Remaining
	}
	t.updates = append(t.updates, s)
	if len(t.updates) > t.maxUpdate {
		t.updates = t.updates[len(t.updates)-t.maxUpdate:]
	}
	t.mu.Unlock()

	if filled > 0 {
		t.fills.RecordFill(order.FillEvent{
			OrderID:   s.ID,
			Symbol:    s.Symbol,
			Side:      s.Side,
			Price:     s.LastFillPrice,
			Quantity:  filled,
			Timestamp: s.UpdatedAt,
		})
	}
	t.emit("order_update", map[string]interface{}{
		"trader":    t.ID,
		"order_id":  s.ID,
		"symbol":    s.Symbol,
		"status":    string(s.Status),
		"remaining": s.Remaining,
		"filled":    filled,
	})
}

// AddOrder 下单成功后登记；下单过程中已到终态的委托只进历史。
func (t *Trader) AddOrder(o *order.Order) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, o)
	if !order.IsFinalState(o.Status()) {
		t.active[o.ID] = o
	}
}

func (t *Trader) RemoveActive(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, id)
	delete(t.remaining, id)
}

// History 返回全部委托（按提交顺序）。
func (t *Trader) History() []*order.Order {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*order.Order, len(t.history))
	copy(out, t.history)
	return out
}

// ActiveOrders 返回未到终态的委托，按创建时间排序。
func (t *Trader) ActiveOrders() []*order.Order {
	t.mu.RLock()
	out := make([]*order.Order, 0, len(t.active))
	for _, o := range t.active {
		out = append(out, o)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Updates 返回收到的通知（最多保留 maxUpdate 条）。
func (t *Trader) Updates() []order.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]order.Snapshot, len(t.updates))
	copy(out, t.updates)
	return out
}

func (t *Trader) emit(evt string, fields map[string]interface{}) {
	if t.sink != nil {
		t.sink(evt, fields)
	}
}
