package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor 撮合引擎的Prometheus指标集合，使用独立registry便于测试
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	ordersPlaced    *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	ordersFilled    *prometheus.CounterVec
	ordersFailed    *prometheus.CounterVec
	restingOrders   *prometheus.GaugeVec

	// 成交指标
	tradesTotal    *prometheus.CounterVec
	tradedShares   *prometheus.CounterVec
	tradedNotional *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec

	// 撮合指标
	stopTriggers  *prometheus.CounterVec
	cascadeRounds prometheus.Histogram
	matchLatency  prometheus.Histogram
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "exchange",
		Subsystem: "engine",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &Monitor{
		registry: reg,

		ordersPlaced:    counter("orders_placed_total", "进入撮合的订单数", "symbol", "side", "type"),
		ordersRejected:  counter("orders_rejected_total", "校验或风控拒绝的订单数", "reason"),
		ordersCancelled: counter("orders_cancelled_total", "撤单数", "symbol"),
		ordersFilled:    counter("orders_filled_total", "完全成交的订单数", "symbol"),
		ordersFailed:    counter("orders_failed_total", "结算失败的订单数", "symbol", "leg"),
		restingOrders:   gauge("resting_orders", "当前挂单数", "symbol", "side"),

		tradesTotal:    counter("trades_total", "成交笔数", "symbol"),
		tradedShares:   counter("traded_shares_total", "累计成交股数", "symbol"),
		tradedNotional: counter("traded_notional_total", "累计成交金额", "symbol"),
		lastPrice:      gauge("last_price", "最新成交价", "symbol"),

		stopTriggers: counter("stop_triggers_total", "止损单触发次数", "symbol", "type"),
		cascadeRounds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cascade_rounds",
			Help:      "一次下单引发的撮合轮数",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		matchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "match_latency_seconds",
			Help:      "下单到撮合结束的耗时（秒）",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

// RecordOrderPlaced 记录进入撮合的订单
func (m *Monitor) RecordOrderPlaced(symbol, side, typ string) {
	m.ordersPlaced.WithLabelValues(symbol, side, typ).Inc()
}

// RecordOrderRejected 记录拒单
func (m *Monitor) RecordOrderRejected(reason string) {
	m.ordersRejected.WithLabelValues(reason).Inc()
}

func (m *Monitor) RecordOrderCancelled(symbol string) {
	m.ordersCancelled.WithLabelValues(symbol).Inc()
}

func (m *Monitor) RecordOrderFilled(symbol string) {
	m.ordersFilled.WithLabelValues(symbol).Inc()
}

// RecordOrderFailed 记录结算失败，leg为失败的结算步骤
func (m *Monitor) RecordOrderFailed(symbol, leg string) {
	m.ordersFailed.WithLabelValues(symbol, leg).Inc()
}

// SetRestingOrders 更新挂单数量
func (m *Monitor) SetRestingOrders(symbol, side string, n int) {
	m.restingOrders.WithLabelValues(symbol, side).Set(float64(n))
}

// RecordTrade 记录一笔成交
func (m *Monitor) RecordTrade(symbol string, price float64, qty int64) {
	m.tradesTotal.WithLabelValues(symbol).Inc()
	m.tradedShares.WithLabelValues(symbol).Add(float64(qty))
	m.tradedNotional.WithLabelValues(symbol).Add(price * float64(qty))
	m.lastPrice.WithLabelValues(symbol).Set(price)
}

// SetLastPrice 更新最新价（上市时使用）
func (m *Monitor) SetLastPrice(symbol string, price float64) {
	m.lastPrice.WithLabelValues(symbol).Set(price)
}

func (m *Monitor) RecordStopTrigger(symbol, typ string) {
	m.stopTriggers.WithLabelValues(symbol, typ).Inc()
}

// ObserveMatch 记录一次撮合的轮数与耗时
func (m *Monitor) ObserveMatch(rounds int, seconds float64) {
	m.cascadeRounds.Observe(float64(rounds))
	m.matchLatency.Observe(seconds)
}

// Handler 返回Prometheus HTTP处理器
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回Prometheus注册表
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
