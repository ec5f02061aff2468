package container

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"stock-exchange-go/account"
	"stock-exchange-go/config"
	"stock-exchange-go/infrastructure/alert"
	"stock-exchange-go/infrastructure/logger"
	"stock-exchange-go/infrastructure/monitor"
	"stock-exchange-go/internal/engine"
	"stock-exchange-go/internal/feed"
	"stock-exchange-go/market"
	"stock-exchange-go/order"
	"stock-exchange-go/posttrade"
	"stock-exchange-go/risk"
	"stock-exchange-go/trader"
)

// Container 依赖注入容器，按配置组装交易所的全部组件并管理生命周期
type Container struct {
	// 配置
	cfg        *config.AppConfig
	configPath string

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager

	// 核心服务
	marketData   *market.Service
	engine       *engine.Engine
	limits       *risk.LimitChecker
	rate         *risk.RateGuard
	breaker      *risk.CircuitBreaker
	notifier     *risk.Notifier
	orderManager *order.Manager
	analyzer     *posttrade.Analyzer
	feed         *feed.Server

	mu      sync.RWMutex
	traders map[string]*trader.Trader

	// 配置文件里最近一次的停牌标记；熔断停牌不记在这里
	configHalted map[string]bool

	// HTTP服务器
	metricsServer *http.Server
	feedServer    *http.Server

	// 生命周期管理
	lifecycle *LifecycleManager
}

// New 从配置文件创建 Container，并在启动后监听该文件的修改
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	c := NewFromConfig(cfg)
	c.configPath = configPath
	return c, nil
}

// NewFromConfig 使用内存中的配置创建 Container（不监听文件）
func NewFromConfig(cfg config.AppConfig) *Container {
	return &Container{
		cfg:          &cfg,
		traders:      make(map[string]*trader.Trader),
		configHalted: make(map[string]bool),
		lifecycle:    NewLifecycleManager(),
	}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := config.Validate(*c.cfg); err != nil {
		return err
	}
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}
	if err := c.buildCoreServices(); err != nil {
		return fmt.Errorf("build core services failed: %w", err)
	}
	if err := c.buildTraders(); err != nil {
		return fmt.Errorf("build traders failed: %w", err)
	}

	c.registerLifecycleComponents()
	c.logger.Info("container built successfully",
		zap.String("env", c.cfg.Env),
		zap.Int("symbols", len(c.cfg.Symbols)),
		zap.Int("traders", len(c.cfg.Traders)))
	return nil
}

func (c *Container) buildInfrastructure() error {
	logCfg := c.cfg.Logging
	if len(logCfg.Outputs) == 0 {
		logCfg.Outputs = logger.DefaultConfig().Outputs
	}

	var err error
	c.logger, err = logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}

	monitorCfg := monitor.DefaultConfig()
	if c.cfg.Metrics.Namespace != "" {
		monitorCfg.Namespace = c.cfg.Metrics.Namespace
	}
	c.monitor = monitor.New(monitorCfg)

	throttle := time.Duration(c.cfg.Alerts.ThrottleSeconds) * time.Second
	if throttle <= 0 {
		throttle = time.Minute
	}
	channels := []alert.Channel{alert.NewLogChannel("log", c.logger)}
	if c.cfg.Alerts.Console {
		channels = append(channels, alert.NewWriterChannel("console", os.Stderr))
	}
	c.alerts = alert.NewManager(channels, throttle)
	c.logger.Info("alerts ready", zap.Strings("channels", c.alerts.Channels()), zap.Duration("throttle", throttle))

	c.logger.Info("infrastructure built")
	return nil
}

func (c *Container) buildCoreServices() error {
	kline := time.Duration(c.cfg.Market.KlineSeconds) * time.Second
	c.marketData = market.NewService(market.NewPublisher(), kline)

	var err error
	c.engine, err = engine.New(engine.Config{TradeHistory: c.cfg.Engine.TradeHistory}, engine.Components{
		Market:  c.marketData,
		Logger:  c.logger,
		Monitor: c.monitor,
		Alerts:  c.alerts,
	})
	if err != nil {
		return err
	}

	c.limits = risk.NewLimitChecker(risk.Limits{SingleMax: c.cfg.Risk.SingleMax, DailyMax: c.cfg.Risk.DailyMax})
	c.rate = risk.NewRateGuard(c.cfg.Risk.OrderRate, c.cfg.Risk.OrderBurst)
	c.breaker = risk.NewCircuitBreaker(c.cfg.Risk.CircuitOneMin, c.cfg.Risk.CircuitFiveMin)
	c.notifier = risk.NewNotifier(c.alerts, c.logger)
	c.orderManager = order.NewManager(c.engine, risk.BuildGuards(c.limits, c.rate), c.logger)
	c.orderManager.SetRejectHandler(func(o *order.Order, err error) {
		c.monitor.RecordOrderRejected(RejectReason(err))
		c.notifier.NotifyRejected(o, err)
	})

	c.analyzer = posttrade.NewAnalyzer(c.marketData)
	if c.cfg.Feed.Addr != "" {
		c.feed = feed.NewServer(c.marketData.Publisher(), c.logger)
	}

	if err := c.applySymbols(*c.cfg); err != nil {
		return err
	}
	c.logger.Info("core services built")
	return nil
}

// applySymbols 上市新股票并同步约束。停牌标记只在配置值变化时下发，
// 所以无关的配置修改不会解除熔断停牌；要解除，把 halted 改成 true 再改回 false。
func (c *Container) applySymbols(cfg config.AppConfig) error {
	constraints := make(map[string]order.SymbolConstraints, len(cfg.Symbols))
	for _, sym := range sortedSymbols(cfg.Symbols) {
		sc := cfg.Symbols[sym]
		if _, ok := c.marketData.Stock(sym); !ok {
			if _, err := c.marketData.List(sym, sc.InitialPrice); err != nil {
				return fmt.Errorf("list %s: %w", sym, err)
			}
			f, _ := sc.InitialPrice.Float64()
			c.monitor.SetLastPrice(sym, f)
		}
		if err := c.applyHalt(sym, sc.Halted); err != nil {
			return err
		}
		constraints[sym] = order.SymbolConstraints{
			TickSize: sc.TickSize,
			MinQty:   sc.MinQty,
			MaxQty:   sc.MaxQty,
		}
	}
	c.orderManager.SetConstraints(constraints)
	return nil
}

func (c *Container) applyHalt(sym string, halted bool) error {
	c.mu.Lock()
	prev, seen := c.configHalted[sym]
	c.mu.Unlock()
	if seen && prev == halted {
		return nil
	}
	if err := c.engine.SetHalted(sym, halted); err != nil {
		return err
	}
	c.mu.Lock()
	c.configHalted[sym] = halted
	c.mu.Unlock()
	if seen {
		c.notifier.NotifyHaltChanged(sym, halted, "config")
	}
	return nil
}

func (c *Container) buildTraders() error {
	for _, tc := range c.cfg.Traders {
		if _, err := c.addTrader(tc); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) addTrader(tc config.TraderConfig) (*trader.Trader, error) {
	acct, err := account.New(tc.ID, tc.Balance)
	if err != nil {
		return nil, fmt.Errorf("trader %s: %w", tc.ID, err)
	}
	for sym, qty := range tc.Holdings {
		if qty == 0 {
			continue
		}
		if err := acct.AddHolding(sym, qty); err != nil {
			return nil, fmt.Errorf("trader %s holding %s: %w", tc.ID, sym, err)
		}
	}
	name := tc.Name
	if name == "" {
		name = tc.ID
	}
	log := c.logger.WithFields(map[string]interface{}{"trader": tc.ID})
	t := trader.New(tc.ID, name, acct, func(evt string, fields map[string]interface{}) {
		log.LogEvent(evt, fields)
	})

	c.mu.Lock()
	c.traders[tc.ID] = t
	c.mu.Unlock()
	return t, nil
}

// ApplyConfig 应用热更新的配置：停牌状态、下单约束、风控限额、新股票与新交易员。
// 已有交易员的资金与持仓不受影响。
func (c *Container) ApplyConfig(cfg config.AppConfig) {
	if err := c.applySymbols(cfg); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "apply_symbols"})
		return
	}
	c.limits.SetLimits(risk.Limits{SingleMax: cfg.Risk.SingleMax, DailyMax: cfg.Risk.DailyMax})
	c.rate.SetRate(cfg.Risk.OrderRate, cfg.Risk.OrderBurst)
	c.breaker.SetThresholds(cfg.Risk.CircuitOneMin, cfg.Risk.CircuitFiveMin)
	for _, tc := range cfg.Traders {
		if _, ok := c.Trader(tc.ID); ok {
			continue
		}
		if _, err := c.addTrader(tc); err != nil {
			c.logger.LogError(err, map[string]interface{}{"action": "add_trader", "trader": tc.ID})
		}
	}
	c.mu.Lock()
	c.cfg = &cfg
	c.mu.Unlock()
	c.logger.Info("config applied", zap.Int("symbols", len(cfg.Symbols)))
}

func (c *Container) registerLifecycleComponents() {
	if c.cfg.Metrics.Addr != "" {
		c.lifecycle.Register(&httpServerComponent{
			name:    "metrics_server",
			handler: c.monitor.Handler(),
			addr:    c.cfg.Metrics.Addr,
			logger:  c.logger,
			server:  &c.metricsServer,
		})
	}
	if c.feed != nil {
		c.lifecycle.Register(&feedComponent{
			server: c.feed,
			http: &httpServerComponent{
				name:    "feed_server",
				handler: c.feed.Handler(),
				addr:    c.cfg.Feed.Addr,
				logger:  c.logger,
				server:  &c.feedServer,
			},
		})
	}
	c.lifecycle.Register(&analyzerComponent{
		publisher: c.marketData.Publisher(),
		analyzer:  c.analyzer,
	})
	c.lifecycle.Register(&circuitComponent{
		publisher: c.marketData.Publisher(),
		breaker:   c.breaker,
		engine:    c.engine,
		notifier:  c.notifier,
		logger:    c.logger,
	})
	if c.configPath != "" {
		c.lifecycle.Register(&watcherComponent{
			path:   c.configPath,
			logger: c.logger,
			apply:  c.ApplyConfig,
		})
	}
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")

	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	c.logger.Info("container started")
	return nil
}

// Stop 停止全部组件；挂单不撤销，进程退出后随之消失。
func (c *Container) Stop() error {
	c.logger.Info("stopping container...",
		zap.Int("open_orders", len(c.engine.OpenOrders(""))))

	err := c.lifecycle.StopAll()
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
	}
	_ = c.logger.Close()
	return err
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

func (c *Container) Config() config.AppConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.cfg
}

func (c *Container) Logger() *logger.Logger { return c.logger }
func (c *Container) Monitor() *monitor.Monitor { return c.monitor }
func (c *Container) Market() *market.Service { return c.marketData }
func (c *Container) Engine() *engine.Engine { return c.engine }
func (c *Container) OrderManager() *order.Manager { return c.orderManager }
func (c *Container) Limits() *risk.LimitChecker { return c.limits }
func (c *Container) PostTrade() *posttrade.Analyzer { return c.analyzer }

// Trader 按 ID 查找交易员。
func (c *Container) Trader(id string) (*trader.Trader, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.traders[id]
	return t, ok
}

// Traders 返回全部交易员，按 ID 排序。
func (c *Container) Traders() []*trader.Trader {
	c.mu.RLock()
	out := make([]*trader.Trader, 0, len(c.traders))
	for _, t := range c.traders {
		out = append(out, t)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedSymbols(m map[string]config.SymbolConfig) []string {
	out := make([]string, 0, len(m))
	for sym := range m {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
