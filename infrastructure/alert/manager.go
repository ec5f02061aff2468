package alert

import (
	"fmt"
	"sync"
	"time"
)

// Level 告警级别
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// Alert 一条交易所告警。Symbol 可为空。
type Alert struct {
	Level     Level
	Message   string
	Symbol    string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// 同一条告警按股票分别限流，一只股票刷屏不会压住另一只。
func (a Alert) throttleKey() string {
	return string(a.Level) + "|" + a.Message + "|" + a.Symbol
}

// Channel 告警通道
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Manager 把告警扇出到所有通道，并按 throttleKey 限流。
type Manager struct {
	channels []Channel
	interval time.Duration
	now      func() time.Time

	mu         sync.Mutex
	lastSent   map[string]time.Time
	suppressed int64
}

func NewManager(channels []Channel, throttle time.Duration) *Manager {
	return &Manager{
		channels: channels,
		interval: throttle,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Send 发送告警；被限流时返回 nil。只有全部通道都失败才返回错误。
func (m *Manager) Send(a Alert) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = m.now()
	}
	if !m.allow(a.throttleKey(), a.Timestamp) {
		return nil
	}

	var lastErr error
	delivered := 0
	for _, ch := range m.channels {
		if err := ch.Send(a); err != nil {
			lastErr = fmt.Errorf("channel %s: %w", ch.Name(), err)
			continue
		}
		delivered++
	}
	if delivered == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

func (m *Manager) allow(key string, ts time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastSent[key]; ok && ts.Sub(last) < m.interval {
		m.suppressed++
		return false
	}
	m.lastSent[key] = ts
	return true
}

func (m *Manager) Info(symbol, message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: LevelInfo, Symbol: symbol, Message: message, Fields: fields})
}

func (m *Manager) Warn(symbol, message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: LevelWarning, Symbol: symbol, Message: message, Fields: fields})
}

func (m *Manager) Error(symbol, message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: LevelError, Symbol: symbol, Message: message, Fields: fields})
}

func (m *Manager) Critical(symbol, message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: LevelCritical, Symbol: symbol, Message: message, Fields: fields})
}

// Suppressed 被限流丢弃的告警数。
func (m *Manager) Suppressed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suppressed
}

// Channels 通道名称，按注册顺序。
func (m *Manager) Channels() []string {
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}
