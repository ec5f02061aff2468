package order

import (
	"sort"
	"sync"
)

// Book 按 ID 登记全部委托，支持查询。
type Book struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func NewBook() *Book {
	return &Book{orders: make(map[string]*Order)}
}

func (b *Book) Set(o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.ID] = o
}

func (b *Book) Get(id string) (*Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	return o, ok
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// List 返回全部委托，按创建时间排序。
func (b *Book) List() []*Order {
	b.mu.RLock()
	res := make([]*Order, 0, len(b.orders))
	for _, o := range b.orders {
		res = append(res, o)
	}
	b.mu.RUnlock()
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res
}

// Active 返回某只股票仍在簿中的委托；symbol 为空时返回全部。
func (b *Book) Active(symbol string) []*Order {
	res := make([]*Order, 0)
	for _, o := range b.List() {
		if symbol != "" && o.Symbol() != symbol {
			continue
		}
		if IsActiveState(o.Status()) {
			res = append(res, o)
		}
	}
	return res
}
