package feed

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stock-exchange-go/infrastructure/logger"
	"stock-exchange-go/market"
)

const (
	TypeTrade = "trade"
	TypeKline = "kline"
)

// Message 推送给订阅者的一条行情消息；Trade 与 Kline 只有一个非空。
type Message struct {
	Type   string        `json:"type"`
	Symbol string        `json:"symbol"`
	Trade  *market.Trade `json:"trade,omitempty"`
	Kline  *market.Kline `json:"kline,omitempty"`
}

type client struct {
	symbols map[string]bool // 为空表示订阅全部
	out     chan Message
}

func (c *client) wants(symbol string) bool {
	return len(c.symbols) == 0 || c.symbols[symbol]
}

// Server 订阅 market.Publisher，把成交与 K 线通过 WebSocket 推送给客户端。
// 客户端连接 /ws?symbols=ACME,BOLT；发送缓冲满时丢弃消息，不阻塞撮合。
type Server struct {
	trades       <-chan market.Trade
	klines       <-chan market.Kline
	log          *logger.Logger
	upgrader     websocket.Upgrader
	buf          int
	writeTimeout time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewServer(pub *market.Publisher, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		trades: pub.SubscribeTrade(1024),
		klines: pub.SubscribeKline(256),
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		buf:          256,
		writeTimeout: 5 * time.Second,
		clients:      make(map[*client]struct{}),
	}
}

// Clients 当前连接数。
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Run 转发 Publisher 的事件直到 ctx 结束。
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.trades:
			s.broadcast(Message{Type: TypeTrade, Symbol: t.Symbol, Trade: &t})
		case k := <-s.klines:
			s.broadcast(Message{Type: TypeKline, Symbol: k.Symbol, Kline: &k})
		}
	}
}

func (s *Server) broadcast(m Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		if !c.wants(m.Symbol) {
			continue
		}
		select {
		case c.out <- m:
		default:
			s.log.Debug("feed client lagging, message dropped", zap.String("symbol", m.Symbol))
		}
	}
}

// Handler 返回处理 /ws 的 http.Handler。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("feed upgrade failed", zap.Error(err))
		return
	}
	c := &client{symbols: parseSymbols(r.URL.Query().Get("symbols")), out: make(chan Message, s.buf)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("feed client connected", zap.String("remote", r.RemoteAddr), zap.Int("symbols", len(c.symbols)))

	done := make(chan struct{})
	go s.readLoop(conn, done)
	s.writeLoop(conn, c, done)

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	_ = conn.Close()
	s.log.Info("feed client disconnected", zap.String("remote", r.RemoteAddr))
}

// readLoop 只用于感知对端关闭。
func (s *Server) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case m := <-c.out:
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
	}
}

func parseSymbols(raw string) map[string]bool {
	res := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			res[s] = true
		}
	}
	return res
}
