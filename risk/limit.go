package risk

import (
	"fmt"
	"sync"
	"time"

	"stock-exchange-go/order"
)

// Limits 配置；0 表示不限制。
type Limits struct {
	SingleMax int64
	DailyMax  int64
}

// LimitChecker 单笔数量上限与每个账户的日累计下单量上限。
type LimitChecker struct {
	mu       sync.Mutex
	cfg      Limits
	dayVol   map[string]int64 // account id -> 当日累计数量
	dayStart time.Time
	clock    Clock
}

func NewLimitChecker(cfg Limits) *LimitChecker {
	return NewLimitCheckerWithClock(cfg, NowUTC)
}

func NewLimitCheckerWithClock(cfg Limits, clock Clock) *LimitChecker {
	return &LimitChecker{
		cfg:      cfg,
		dayVol:   make(map[string]int64),
		dayStart: dayOf(clock.Now()),
		clock:    clock,
	}
}

// SetLimits 热更新限额，不清空当日累计。
func (lc *LimitChecker) SetLimits(cfg Limits) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.cfg = cfg
}

func (lc *LimitChecker) Limits() Limits {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.cfg
}

// Validate 通过时预占当日累计，被拒的订单不计入；订单最终没有进入引擎时由 Release 归还。
func (lc *LimitChecker) Validate(o *order.Order) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if today := dayOf(lc.clock.Now()); today.After(lc.dayStart) {
		lc.dayVol = make(map[string]int64)
		lc.dayStart = today
	}

	if lc.cfg.SingleMax > 0 && o.Quantity > lc.cfg.SingleMax {
		return fmt.Errorf("%w: %d > single %d", ErrSingleExceed, o.Quantity, lc.cfg.SingleMax)
	}
	key := ownerKey(o)
	next := lc.dayVol[key] + o.Quantity
	if lc.cfg.DailyMax > 0 && next > lc.cfg.DailyMax {
		return fmt.Errorf("%w: %s %d > daily %d", ErrDailyExceed, key, next, lc.cfg.DailyMax)
	}
	lc.dayVol[key] = next
	return nil
}

// Release 归还 Validate 预占的数量。跨日后当日累计已清零，不会减成负数。
func (lc *LimitChecker) Release(o *order.Order) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	key := ownerKey(o)
	left := lc.dayVol[key] - o.Quantity
	if left <= 0 {
		delete(lc.dayVol, key)
		return
	}
	lc.dayVol[key] = left
}

// DailyVolume 返回账户当日已计入的数量。
func (lc *LimitChecker) DailyVolume(accountID string) int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.dayVol[accountID]
}

func ownerKey(o *order.Order) string {
	if acct := o.Owner.Account(); acct != nil {
		return acct.ID
	}
	return ""
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
