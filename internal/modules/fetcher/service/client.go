package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"capital_tracker/internal/models"
	"capital_tracker/internal/modules/config"
)

// Client — адаптер источника Level-2 данных: история по HTTP, живой
// поток по WebSocket. Ядру всё равно, откуда тики, лишь бы по времени.
type Client struct {
	cfg *config.Config

	http     *http.Client
	wsDialer *websocket.Dialer
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Fetcher.Timeout},
		wsDialer: &websocket.Dialer{},
	}
}

// FetchTicks забирает дневную историю тиков одного инструмента.
func (c *Client) FetchTicks(ctx context.Context, symbol, date string) ([]models.Tick, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("date", date)
	endpoint := c.cfg.Fetcher.BaseURL + "/api/v1/ticks?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "FetchTicks new request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "FetchTicks do")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "FetchTicks read body")
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("FetchTicks http %d: %s", resp.StatusCode, string(data))
	}

	var r struct {
		Code int        `json:"code"`
		Msg  string     `json:"msg"`
		Data []wireTick `json:"data"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "FetchTicks decode")
	}
	if r.Code != 0 {
		return nil, fmt.Errorf("FetchTicks error: code=%d msg=%s", r.Code, r.Msg)
	}

	return decodeTicks(r.Data), nil
}

func decodeTicks(wire []wireTick) []models.Tick {
	ticks := make([]models.Tick, 0, len(wire))
	for _, w := range wire {
		if w.Symbol == "" || w.TsMs <= 0 {
			continue
		}
		ticks = append(ticks, w.toTick())
	}
	return ticks
}
