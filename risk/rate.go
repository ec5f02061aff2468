package risk

import (
	"fmt"
	"sync"
	"time"

	"stock-exchange-go/order"
)

// tokenBucket 一个简单的令牌桶；不阻塞，令牌不足时直接拒绝。
type tokenBucket struct {
	tokens float64
	last   time.Time
}

// RateGuard 按账户限制下单频率：每秒 rate 个令牌，最多积攒 burst 个。
type RateGuard struct {
	mu      sync.Mutex
	rate    float64
	burst   int
	buckets map[string]*tokenBucket
	clock   Clock
}

func NewRateGuard(rate float64, burst int) *RateGuard {
	return NewRateGuardWithClock(rate, burst, NowUTC)
}

func NewRateGuardWithClock(rate float64, burst int, clock Clock) *RateGuard {
	g := &RateGuard{buckets: make(map[string]*tokenBucket), clock: clock}
	g.SetRate(rate, burst)
	return g
}

// SetRate 热更新速率；rate<=0 关闭限流。
func (g *RateGuard) SetRate(rate float64, burst int) {
	if burst <= 0 {
		burst = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rate = rate
	g.burst = burst
}

func (g *RateGuard) Validate(o *order.Order) error {
	key := ownerKey(o)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rate <= 0 {
		return nil
	}
	now := g.clock.Now()
	b, ok := g.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(g.burst), last: now}
		g.buckets[key] = b
	}
	b.tokens += now.Sub(b.last).Seconds() * g.rate
	b.last = now
	if b.tokens > float64(g.burst) {
		b.tokens = float64(g.burst)
	}
	if b.tokens < 1 {
		return fmt.Errorf("%w: %s %.0f/s", ErrRateLimited, key, g.rate)
	}
	b.tokens--
	return nil
}

// Release 退还 Validate 消耗的令牌，不超过 burst。
func (g *RateGuard) Release(o *order.Order) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.buckets[ownerKey(o)]
	if !ok {
		return
	}
	b.tokens++
	if b.tokens > float64(g.burst) {
		b.tokens = float64(g.burst)
	}
}
