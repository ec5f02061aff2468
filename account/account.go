package account

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Account 维护资金余额与按股票代码划分的持仓。
// 四个变更操作在同一把锁下串行执行，并发成交不会交错修改同一账户。
type Account struct {
	ID string

	mu       sync.RWMutex
	balance  decimal.Decimal
	holdings map[string]int64
}

// New 创建账户；初始余额不能为负。
func New(id string, balance decimal.Decimal) (*Account, error) {
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance %s", ErrInvalidAmount, balance)
	}
	return &Account{
		ID:       id,
		balance:  balance,
		holdings: make(map[string]int64),
	}, nil
}

// Debit 扣减余额，余额不足时返回 ErrInsufficientFunds 且不做任何修改。
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: debit %s", ErrInvalidAmount, amount)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if amount.GreaterThan(a.balance) {
		return fmt.Errorf("%w: account %s need %s, have %s", ErrInsufficientFunds, a.ID, amount, a.balance)
	}
	a.balance = a.balance.Sub(amount)
	return nil
}

// Credit 增加余额。
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: credit %s", ErrInvalidAmount, amount)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = a.balance.Add(amount)
	return nil
}

// AddHolding 增加某只股票的持仓。
func (a *Account) AddHolding(symbol string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: add holding %d", ErrInvalidAmount, qty)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.holdings[symbol] += qty
	return nil
}

// RemoveHolding 减少持仓；归零时删除该条目。
func (a *Account) RemoveHolding(symbol string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: remove holding %d", ErrInvalidAmount, qty)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	held := a.holdings[symbol]
	if held < qty {
		return fmt.Errorf("%w: account %s holds %d %s, need %d", ErrInsufficientStock, a.ID, held, symbol, qty)
	}
	if held == qty {
		delete(a.holdings, symbol)
		return nil
	}
	a.holdings[symbol] = held - qty
	return nil
}

func (a *Account) Balance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balance
}

func (a *Account) Holding(symbol string) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.holdings[symbol]
}

// Holdings 返回持仓拷贝。
func (a *Account) Holdings() map[string]int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	res := make(map[string]int64, len(a.holdings))
	for sym, qty := range a.holdings {
		res[sym] = qty
	}
	return res
}

// Snapshot 账户只读视图。
type Snapshot struct {
	ID       string
	Balance  decimal.Decimal
	Holdings map[string]int64
}

func (a *Account) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h := make(map[string]int64, len(a.holdings))
	for sym, qty := range a.holdings {
		h[sym] = qty
	}
	return Snapshot{ID: a.ID, Balance: a.balance, Holdings: h}
}
