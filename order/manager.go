package order

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"stock-exchange-go/infrastructure/logger"
)

// Gateway 撮合引擎入口；由 internal/engine.Engine 实现。
type Gateway interface {
	Place(o *Order) error
	// CancelOrderIf 原子地检查状态并撤单
	CancelOrderIf(id string, allowed func(Status) bool) error
	Order(id string) (*Order, bool)
}

// Validator 下单前检查（资金、持仓等），见 risk 包。
type Validator interface {
	Validate(o *Order) error
}

// Releaser 由会预占额度（日累计量、下单令牌）的校验器实现：
// 订单通过校验却没能进入引擎时归还预占。
type Releaser interface {
	Release(o *Order)
}

var ErrWrongSide = errors.New("order side does not match command")

// Manager 执行买入、卖出、撤单三个命令：先校验，再交给撮合引擎。
type Manager struct {
	gw        Gateway
	validator Validator
	log       *logger.Logger

	mu          sync.RWMutex
	constraints map[string]SymbolConstraints
	onReject    func(o *Order, err error)
}

func NewManager(gw Gateway, v Validator, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		gw:        gw,
		validator: v,
		log:       log,
	}
}

// SetConstraints 设置各股票的价格步长与数量限制。
func (m *Manager) SetConstraints(c map[string]SymbolConstraints) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = make(map[string]SymbolConstraints, len(c))
	for sym, sc := range c {
		m.constraints[sym] = sc
	}
}

// SetRejectHandler 校验失败时回调（告警、指标）。
func (m *Manager) SetRejectHandler(fn func(o *Order, err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReject = fn
}

// Buy 买入命令。
func (m *Manager) Buy(o *Order) error {
	if o.Side != SideBuy {
		return fmt.Errorf("%w: %s is %s", ErrWrongSide, o.ID, o.Side)
	}
	return m.submit(o)
}

// Sell 卖出命令。
func (m *Manager) Sell(o *Order) error {
	if o.Side != SideSell {
		return fmt.Errorf("%w: %s is %s", ErrWrongSide, o.ID, o.Side)
	}
	return m.submit(o)
}

// Submit 按方向分派到 Buy 或 Sell。
func (m *Manager) Submit(o *Order) error {
	if o.Side == SideBuy {
		return m.Buy(o)
	}
	return m.Sell(o)
}

func (m *Manager) submit(o *Order) error {
	if err := m.validate(o); err != nil {
		m.reject(o, err)
		return err
	}
	if err := m.gw.Place(o); err != nil {
		if r, ok := m.validator.(Releaser); ok {
			r.Release(o)
		}
		m.reject(o, err)
		return err
	}
	if h, ok := o.Owner.(History); ok {
		h.AddOrder(o)
	}
	m.log.LogOrder("submitted", o.ID, map[string]interface{}{
		"symbol": o.Symbol(),
		"side":   string(o.Side),
		"type":   string(o.Type),
		"qty":    o.Quantity,
		"status": string(o.Status()),
	})
	return nil
}

func (m *Manager) validate(o *Order) error {
	m.mu.RLock()
	c, ok := m.constraints[o.Symbol()]
	m.mu.RUnlock()
	if ok {
		if err := c.Validate(o); err != nil {
			return fmt.Errorf("constraint: %w", err)
		}
	}
	if m.validator == nil {
		return nil
	}
	return m.validator.Validate(o)
}

func (m *Manager) reject(o *Order, err error) {
	m.log.LogReject("order_rejected", map[string]interface{}{
		"order_id": o.ID,
		"symbol":   o.Symbol(),
		"side":     string(o.Side),
		"type":     string(o.Type),
		"reason":   err.Error(),
	})
	m.mu.RLock()
	fn := m.onReject
	m.mu.RUnlock()
	if fn != nil {
		fn(o, err)
	}
}

// Cancel 撤单命令：只接受 OPEN 与 PARTIALLY_FILLED。
func (m *Manager) Cancel(id string) error {
	o, ok := m.gw.Order(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	// 状态检查交给引擎在锁内完成，避免与止损触发竞争
	if err := m.gw.CancelOrderIf(id, CanCancel); err != nil {
		return err
	}
	if h, ok := o.Owner.(History); ok {
		h.RemoveActive(id)
	}
	m.log.Info("order cancelled", zap.String("order_id", id), zap.String("symbol", o.Symbol()))
	return nil
}

// Status 返回订单当前状态，如不存在则第二个返回值为 false。
func (m *Manager) Status(id string) (Status, bool) {
	o, ok := m.gw.Order(id)
	if !ok {
		return "", false
	}
	return o.Status(), true
}
