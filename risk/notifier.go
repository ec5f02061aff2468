package risk

import (
	"go.uber.org/zap"

	"stock-exchange-go/infrastructure/logger"
	"stock-exchange-go/order"
)

// AlertClient 抽象告警发送，alert.Manager 满足该接口。
type AlertClient interface {
	Info(symbol, message string, fields map[string]interface{}) error
	Warn(symbol, message string, fields map[string]interface{}) error
	Critical(symbol, message string, fields map[string]interface{}) error
}

type Notifier struct {
	alert AlertClient
	log   *logger.Logger
}

func NewNotifier(alert AlertClient, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &Notifier{alert: alert, log: log}
}

// NotifyRejected 订单被风控拒绝。
func (n *Notifier) NotifyRejected(o *order.Order, err error) {
	n.log.Warn("risk reject",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol()),
		zap.Error(err))
	if n.alert != nil {
		_ = n.alert.Warn(o.Symbol(), "order_rejected", map[string]interface{}{
			"order_id": o.ID,
			"reason":   err.Error(),
		})
	}
}

// NotifyCircuitTrip 股票熔断。
func (n *Notifier) NotifyCircuitTrip(symbol, span string, t Tick) {
	n.log.Warn("circuit breaker triggered",
		zap.String("symbol", symbol),
		zap.String("span", span),
		zap.String("price", t.Price.String()))
	if n.alert != nil {
		_ = n.alert.Critical(symbol, "circuit_breaker", map[string]interface{}{
			"span":  span,
			"price": t.Price.String(),
		})
	}
}

// NotifyHaltChanged 停牌状态被人工修改（配置热更新）。
func (n *Notifier) NotifyHaltChanged(symbol string, halted bool, source string) {
	msg := "halt_lifted"
	if halted {
		msg = "halt_set"
	}
	n.log.Info("symbol halt changed",
		zap.String("symbol", symbol),
		zap.Bool("halted", halted),
		zap.String("source", source))
	if n.alert != nil {
		_ = n.alert.Info(symbol, msg, map[string]interface{}{"source": source})
	}
}
