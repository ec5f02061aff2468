package risk

import "time"

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// NowUTC 默认时钟。
var NowUTC Clock = utcClock{}

// ClockFunc 让函数实现 Clock，测试里用来拨动时间。
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
