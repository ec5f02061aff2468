package order

import (
	"errors"
	"fmt"
)

var ErrIllegalTransition = errors.New("illegal state transition")

// Event 驱动订单状态变化的事件。
type Event string

const (
	EventTrigger     Event = "TRIGGER"
	EventPartialFill Event = "PARTIAL_FILL"
	EventFill        Event = "FILL"
	EventCancel      Event = "CANCEL"
	EventFail        Event = "FAIL"
)

// Effect 状态转换附带的副作用，由调用方在转换完成后显式执行。
type Effect string

const (
	EffectNotifyOwner     Effect = "NOTIFY_OWNER"
	EffectReleaseFromBook Effect = "RELEASE_FROM_BOOK"
)

// StateTransition 状态转换键
type StateTransition struct {
	From  Status
	Event Event
}

type rule struct {
	to      Status
	effects []Effect
}

var (
	notify  = []Effect{EffectNotifyOwner}
	release = []Effect{EffectNotifyOwner, EffectReleaseFromBook}
)

// transitions 全部合法转换。终态只接受 CANCEL，且为空操作。
var transitions = map[StateTransition]rule{
	{StatusOpen, EventTrigger}:     {StatusTriggered, notify},
	{StatusOpen, EventPartialFill}: {StatusPartiallyFilled, notify},
	{StatusOpen, EventFill}:        {StatusFilled, release},
	{StatusOpen, EventCancel}:      {StatusCancelled, release},
	{StatusOpen, EventFail}:        {StatusFailed, release},

	{StatusTriggered, EventPartialFill}: {StatusPartiallyFilled, notify},
	{StatusTriggered, EventFill}:        {StatusFilled, release},
	{StatusTriggered, EventCancel}:      {StatusCancelled, release},
	{StatusTriggered, EventFail}:        {StatusFailed, release},

	// 多次部分成交
	{StatusPartiallyFilled, EventPartialFill}: {StatusPartiallyFilled, notify},
	{StatusPartiallyFilled, EventFill}:        {StatusFilled, release},
	{StatusPartiallyFilled, EventCancel}:      {StatusCancelled, release},
	{StatusPartiallyFilled, EventFail}:        {StatusFailed, release},

	{StatusFilled, EventCancel}:    {StatusFilled, nil},
	{StatusFailed, EventCancel}:    {StatusFailed, nil},
	{StatusCancelled, EventCancel}: {StatusCancelled, nil},
}

// Transition 返回 (新状态, 副作用)。非法转换返回 ErrIllegalTransition。
func Transition(from Status, ev Event) (Status, []Effect, error) {
	r, ok := transitions[StateTransition{From: from, Event: ev}]
	if !ok {
		return from, nil, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, from)
	}
	return r.to, r.effects, nil
}

// IsFinalState 判断是否是终态
func IsFinalState(status Status) bool {
	switch status {
	case StatusFilled, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// IsActiveState 判断是否是活跃状态（仍在簿中、可能产生成交）
func IsActiveState(status Status) bool {
	switch status {
	case StatusOpen, StatusTriggered, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// CanCancel 撤单命令只接受 OPEN 与 PARTIALLY_FILLED。
func CanCancel(status Status) bool {
	return status == StatusOpen || status == StatusPartiallyFilled
}

// AllowedEvents 返回当前状态所有合法事件
func AllowedEvents(current Status) []Event {
	allowed := make([]Event, 0)
	for t := range transitions {
		if t.From == current {
			allowed = append(allowed, t.Event)
		}
	}
	return allowed
}
