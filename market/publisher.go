package market

import "sync"

// Publisher 一个轻量事件分发器；订阅者处理不及时时丢弃事件，不阻塞撮合。
type Publisher struct {
	mu        sync.RWMutex
	tradeSubs []chan Trade
	klineSubs []chan Kline
}

func NewPublisher() *Publisher {
	return &Publisher{
		tradeSubs: make([]chan Trade, 0),
		klineSubs: make([]chan Kline, 0),
	}
}

// SubscribeTrade 订阅成交；buf<=0 时使用 1。
func (p *Publisher) SubscribeTrade(buf int) <-chan Trade {
	if buf <= 0 {
		buf = 1
	}
	ch := make(chan Trade, buf)
	p.mu.Lock()
	p.tradeSubs = append(p.tradeSubs, ch)
	p.mu.Unlock()
	return ch
}

func (p *Publisher) SubscribeKline(buf int) <-chan Kline {
	if buf <= 0 {
		buf = 1
	}
	ch := make(chan Kline, buf)
	p.mu.Lock()
	p.klineSubs = append(p.klineSubs, ch)
	p.mu.Unlock()
	return ch
}

func (p *Publisher) PublishTrade(t Trade) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.tradeSubs {
		select {
		case ch <- t:
		default:
		}
	}
}

func (p *Publisher) PublishKline(k Kline) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.klineSubs {
		select {
		case ch <- k:
		default:
		}
	}
}
