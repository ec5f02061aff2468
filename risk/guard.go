package risk

import "stock-exchange-go/order"

// Guard 是通用接口，资金、限额等都可实现；满足 order.Validator。
type Guard interface {
	Validate(o *order.Order) error
}

// GuardFunc 让普通函数实现 Guard。
type GuardFunc func(o *order.Order) error

func (f GuardFunc) Validate(o *order.Order) error { return f(o) }

// MultiGuard 顺序执行多个 Guard，只要有一个返回错误则中止，
// 并归还前面已通过的 Guard 预占的额度。
type MultiGuard struct {
	Guards []Guard
}

func (m MultiGuard) Validate(o *order.Order) error {
	for i, g := range m.Guards {
		if g == nil {
			continue
		}
		if err := g.Validate(o); err != nil {
			release(m.Guards[:i], o)
			return err
		}
	}
	return nil
}

// Release 实现 order.Releaser。
func (m MultiGuard) Release(o *order.Order) {
	release(m.Guards, o)
}

func release(guards []Guard, o *order.Order) {
	for _, g := range guards {
		if r, ok := g.(order.Releaser); ok {
			r.Release(o)
		}
	}
}
