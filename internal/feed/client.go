package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Subscribe 连接行情推送并逐条回调，直到连接断开或 ctx 结束。
// endpoint 形如 ws://127.0.0.1:9110；symbols 为空时订阅全部股票。
func Subscribe(ctx context.Context, endpoint string, symbols []string, handler func(Message)) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	u.Path = "/ws"
	if len(symbols) > 0 {
		q := u.Query()
		q.Set("symbols", strings.Join(symbols, ","))
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if handler != nil {
			handler(m)
		}
	}
}
