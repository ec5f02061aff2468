package container

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"stock-exchange-go/config"
	"stock-exchange-go/infrastructure/logger"
	"stock-exchange-go/internal/engine"
	"stock-exchange-go/internal/feed"
	"stock-exchange-go/market"
	"stock-exchange-go/posttrade"
	"stock-exchange-go/risk"
)

// Lifecycle 生命周期接口
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
	Health() error
}

// LifecycleManager 生命周期管理器
type LifecycleManager struct {
	components []Lifecycle
	mu         sync.RWMutex
}

// NewLifecycleManager 创建新的生命周期管理器
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		components: make([]Lifecycle, 0),
	}
}

// Register 注册组件
func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// StartAll 按顺序启动所有组件
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Start(ctx); err != nil {
			// 启动失败，回滚已启动的组件
			for j := i - 1; j >= 0; j-- {
				_ = m.components[j].Stop()
			}
			return fmt.Errorf("start component %d failed: %w", i, err)
		}
	}
	return nil
}

// StopAll 逆序停止所有组件
func (m *LifecycleManager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	// 逆序停止
	for i := len(m.components) - 1; i >= 0; i-- {
		if err := m.components[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// CheckHealth 检查所有组件健康状态
func (m *LifecycleManager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Health(); err != nil {
			return fmt.Errorf("component %d unhealthy: %w", i, err)
		}
	}
	return nil
}

// httpServerComponent HTTP服务器组件
type httpServerComponent struct {
	name    string
	handler http.Handler
	addr    string
	logger  *logger.Logger
	server  **http.Server
	started bool
	mu      sync.Mutex
}

func (h *httpServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}

	// 同步绑定端口，端口被占用等错误直接返回给调用方
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("%s listen %s: %w", h.name, h.addr, err)
	}
	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: h.handler,
	}
	*h.server = srv

	h.logger.Info("http server listening", zap.String("name", h.name), zap.String("addr", srv.Addr))
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.LogError(err, map[string]interface{}{
				"component": h.name,
				"action":    "serve",
			})
		}
	}()

	h.started = true
	return nil
}

func (h *httpServerComponent) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started || *h.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := (*h.server).Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", h.name, err)
	}

	h.logger.Info("http server stopped", zap.String("name", h.name))
	h.started = false
	return nil
}

func (h *httpServerComponent) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return fmt.Errorf("%s not started", h.name)
	}
	return nil
}

// circuitComponent 订阅成交，价格异动时暂停该股票下单
type circuitComponent struct {
	publisher *market.Publisher
	breaker   *risk.CircuitBreaker
	engine    *engine.Engine
	notifier  *risk.Notifier
	logger    *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (c *circuitComponent) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}
	trades := c.publisher.SubscribeTrade(1024)
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, trades, c.done)
	return nil
}

func (c *circuitComponent) run(ctx context.Context, trades <-chan market.Trade, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-trades:
			tick := risk.Tick{Price: t.Price, Ts: t.Ts}
			trip, span := c.breaker.OnTick(t.Symbol, tick)
			if !trip || c.engine.Halted(t.Symbol) {
				continue
			}
			if err := c.engine.SetHalted(t.Symbol, true); err != nil {
				c.logger.LogError(err, map[string]interface{}{"component": "circuit", "symbol": t.Symbol})
				continue
			}
			c.breaker.Reset(t.Symbol)
			c.notifier.NotifyCircuitTrip(t.Symbol, span, tick)
		}
	}
}

func (c *circuitComponent) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	return nil
}

func (c *circuitComponent) Health() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return fmt.Errorf("circuit breaker not started")
	}
	return nil
}

// watcherComponent 监听配置文件并应用热更新
type watcherComponent struct {
	path   string
	logger *logger.Logger
	apply  func(config.AppConfig)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *watcherComponent) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}
	watcher, err := config.NewWatcher(w.path, time.Second, w.logger)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = watcher.Start(runCtx, w.apply)
	}(w.done)
	return nil
}

func (w *watcherComponent) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	return nil
}

func (w *watcherComponent) Health() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return fmt.Errorf("config watcher not started")
	}
	return nil
}

// analyzerComponent 把成交流交给 posttrade.Analyzer，并定期清理一天前的记录
type analyzerComponent struct {
	publisher *market.Publisher
	analyzer  *posttrade.Analyzer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (a *analyzerComponent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return nil
	}
	trades := a.publisher.SubscribeTrade(1024)
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		a.analyzer.Run(runCtx, trades, time.Minute, 24*time.Hour)
	}(a.done)
	return nil
}

func (a *analyzerComponent) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel == nil {
		return nil
	}
	a.cancel()
	<-a.done
	a.cancel = nil
	return nil
}

func (a *analyzerComponent) Health() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel == nil {
		return fmt.Errorf("post-trade analyzer not started")
	}
	return nil
}

// feedComponent 行情推送：转发循环加上 WebSocket 服务
type feedComponent struct {
	server *feed.Server
	http   *httpServerComponent

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (f *feedComponent) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return nil
	}
	if err := f.http.Start(ctx); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		f.server.Run(runCtx)
	}(f.done)
	return nil
}

func (f *feedComponent) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel == nil {
		return nil
	}
	f.cancel()
	<-f.done
	f.cancel = nil
	return f.http.Stop()
}

func (f *feedComponent) Health() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel == nil {
		return fmt.Errorf("feed not started")
	}
	return f.http.Health()
}
