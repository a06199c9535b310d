package service

import (
	"context"
	"time"

	"github.com/bytedance/sonic"

	"capital_tracker/internal/models"
	"capital_tracker/pkg/logger"
)

// StreamTicks — живой поток тиков по пачке инструментов через один
// WebSocket. Переподключается сам, канал закрывается по ctx (при пустом
// списке символов — сразу).
func (c *Client) StreamTicks(ctx context.Context, symbols []string) <-chan models.Tick {
	ch := make(chan models.Tick, 4096)

	go func() {
		defer close(ch)

		if len(symbols) == 0 {
			return
		}

		args := make([]map[string]string, 0, len(symbols))
		for _, s := range symbols {
			args = append(args, map[string]string{
				"channel": "ticks",
				"symbol":  s,
			})
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			logger.Info("[WS] connect %s, %d symbols", c.cfg.Fetcher.WSURL, len(symbols))
			conn, _, err := c.wsDialer.DialContext(ctx, c.cfg.Fetcher.WSURL, nil)
			if err != nil {
				logger.Error("[WS] dial error: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			sub := map[string]any{
				"op":   "subscribe",
				"args": args,
			}
			if err := conn.WriteJSON(sub); err != nil {
				logger.Error("[WS] subscribe error: %v", err)
				_ = conn.Close()
				continue
			}

			// keepalive, иначе источник рвёт соединение по таймауту
			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(c.cfg.Fetcher.PingEvery)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-stopPing:
						return
					case <-t.C:
						_ = conn.WriteJSON(map[string]string{"op": "ping"})
					}
				}
			}()

			c.readLoop(ctx, conn, ch)
			close(stopPing)
			_ = conn.Close()

			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()

	return ch
}

type wsConn interface {
	ReadMessage() (int, []byte, error)
}

func (c *Client) readLoop(ctx context.Context, conn wsConn, out chan<- models.Tick) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Error("[WS] read error: %v", err)
			return
		}

		var frame struct {
			Channel string     `json:"channel"`
			Data    []wireTick `json:"data"`
		}
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Channel != "ticks" || len(frame.Data) == 0 {
			continue
		}

		for _, t := range decodeTicks(frame.Data) {
			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
	}
}
