package alert

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"stock-exchange-go/infrastructure/logger"
)

// LogChannel 按告警级别写入结构化日志
type LogChannel struct {
	log  *logger.Logger
	name string
}

func NewLogChannel(name string, log *logger.Logger) *LogChannel {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogChannel{log: log, name: name}
}

func (c *LogChannel) Send(a Alert) error {
	fields := make([]zap.Field, 0, len(a.Fields)+3)
	fields = append(fields, zap.String("level", string(a.Level)), zap.Time("alert_ts", a.Timestamp))
	if a.Symbol != "" {
		fields = append(fields, zap.String("symbol", a.Symbol))
	}
	for k, v := range a.Fields {
		if k == "symbol" && a.Symbol != "" {
			continue
		}
		fields = append(fields, zap.Any(k, v))
	}

	switch a.Level {
	case LevelCritical, LevelError:
		c.log.Error(a.Message, fields...)
	case LevelWarning:
		c.log.Warn(a.Message, fields...)
	default:
		c.log.Info(a.Message, fields...)
	}
	return nil
}

func (c *LogChannel) Name() string { return c.name }

// WriterChannel 每条告警写一行纯文本，值班终端（stderr）用。
//
//	2026-01-02T15:04:05Z CRITICAL ACME settlement_compensation_failed leg=remove_shares order_id=o-1
type WriterChannel struct {
	name string
	mu   sync.Mutex
	w    io.Writer
}

func NewWriterChannel(name string, w io.Writer) *WriterChannel {
	return &WriterChannel{name: name, w: w}
}

func (c *WriterChannel) Send(a Alert) error {
	var b strings.Builder
	b.WriteString(a.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"))
	b.WriteByte(' ')
	b.WriteString(string(a.Level))
	if a.Symbol != "" {
		b.WriteByte(' ')
		b.WriteString(a.Symbol)
	}
	b.WriteByte(' ')
	b.WriteString(a.Message)

	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		if k == "symbol" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, a.Fields[k])
	}
	b.WriteByte('\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, b.String())
	return err
}

func (c *WriterChannel) Name() string { return c.name }

var errMockChannel = errors.New("mock channel failure")

// MockChannel 记录收到的告警，供其他包的测试断言。
type MockChannel struct {
	mu        sync.Mutex
	name      string
	alerts    []Alert
	shouldErr bool
}

func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldErr {
		return errMockChannel
	}
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *MockChannel) Name() string { return c.name }

// GetAlerts 返回已收到告警的副本
func (c *MockChannel) GetAlerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

func (c *MockChannel) SetShouldError(shouldErr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldErr = shouldErr
}

func (c *MockChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}
