package order

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// FillEvent 成交事件
type FillEvent struct {
	OrderID   string
	Symbol    string
	Side      Side
	Price     decimal.Decimal
	Quantity  int64
	Timestamp time.Time
}

// FillTracker 保存最近的成交记录（定长环形截断）与累计统计。
type FillTracker struct {
	mu sync.RWMutex

	recentFills []FillEvent
	maxHistory  int

	totalFills    int
	totalQty      int64
	totalNotional decimal.Decimal
}

// NewFillTracker 创建成交跟踪器
func NewFillTracker(maxHistory int) *FillTracker {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &FillTracker{
		recentFills: make([]FillEvent, 0, maxHistory),
		maxHistory:  maxHistory,
	}
}

// RecordFill 记录成交
func (f *FillTracker) RecordFill(ev FillEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	f.recentFills = append(f.recentFills, ev)
	if len(f.recentFills) > f.maxHistory {
		f.recentFills = f.recentFills[len(f.recentFills)-f.maxHistory:]
	}
	f.totalFills++
	f.totalQty += ev.Quantity
	f.totalNotional = f.totalNotional.Add(ev.Price.Mul(decimal.NewFromInt(ev.Quantity)))
}

// GetRecentFills 获取 duration 内的成交记录（只读副本）
func (f *FillTracker) GetRecentFills(duration time.Duration) []FillEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cutoff := time.Now().Add(-duration)
	var result []FillEvent
	for _, fill := range f.recentFills {
		if fill.Timestamp.After(cutoff) {
			result = append(result, fill)
		}
	}
	return result
}

// GetTotalFills 获取总成交次数
func (f *FillTracker) GetTotalFills() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.totalFills
}

// Reset 重置跟踪器
func (f *FillTracker) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recentFills = make([]FillEvent, 0, f.maxHistory)
	f.totalFills = 0
	f.totalQty = 0
	f.totalNotional = decimal.Zero
}

// GetStats 获取统计信息
func (f *FillTracker) GetStats() FillTrackerStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := FillTrackerStats{
		TotalFills:    f.totalFills,
		RecentFills:   len(f.recentFills),
		TotalQuantity: f.totalQty,
		TotalNotional: f.totalNotional,
	}
	if f.totalQty > 0 {
		stats.AvgPrice = f.totalNotional.Div(decimal.NewFromInt(f.totalQty))
	}
	return stats
}

// FillTrackerStats 成交跟踪器统计
type FillTrackerStats struct {
	TotalFills    int
	RecentFills   int
	TotalQuantity int64
	TotalNotional decimal.Decimal
	AvgPrice      decimal.Decimal
}
