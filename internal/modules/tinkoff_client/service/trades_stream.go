package service

import (
	"context"
	"net/http"
	"time"

	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/logger"

	"github.com/tidwall/gjson"
)

const tradesStreamMethod = "OrdersStreamService/TradesStream"

// StreamTrades: поток исполнений по счёту. Переподключается сам, пока жив ctx.
// onState (может быть nil) получает статус соединения.
func (c *Client) StreamTrades(ctx context.Context, onState func(connected bool)) <-chan models.TradeEvent {
	ch := make(chan models.TradeEvent, 16)
	setState := func(v bool) {
		if onState != nil {
			onState(v)
		}
	}

	go func() {
		defer close(ch)
		defer setState(false)

		url := c.streamURL + contractPrefix + tradesStreamMethod
		header := http.Header{}
		header.Set("Authorization", "Bearer "+c.token)
		header.Set("x-app-name", appName)

		backoff := time.Second
		for {
			if ctx.Err() != nil {
				return
			}

			logger.Info("[WS] trades connect")
			conn, _, err := c.wsDialer.DialContext(ctx, url, header)
			if err != nil {
				logger.Error("[WS] trades dial error: %v", err)
				if !sleepCtx(ctx, backoff) {
					return
				}
				backoff = nextBackoff(backoff)
				continue
			}

			if err := conn.WriteJSON(map[string]any{"accounts": []string{c.accountID}}); err != nil {
				logger.Error("[WS] trades subscribe error: %v", err)
				_ = conn.Close()
				if !sleepCtx(ctx, backoff) {
					return
				}
				continue
			}
			setState(true)
			backoff = time.Second

			// ReadMessage не смотрит на ctx: закрываем соединение сами
			stop := make(chan struct{})
			go func() {
				select {
				case <-ctx.Done():
					_ = conn.Close()
				case <-stop:
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() == nil {
						logger.Error("[WS] trades read error: %v", err)
					}
					break
				}

				ev, ok := parseTradeFrame(msg)
				if !ok {
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
				}
			}

			close(stop)
			_ = conn.Close()
			setState(false)

			if !sleepCtx(ctx, time.Second) {
				return
			}
		}
	}()

	return ch
}

// кадр: {"result":{"orderTrades":{"orderId":"...","figi":"...","direction":"ORDER_DIRECTION_BUY",...}}}
// пинги {"result":{"ping":{...}}} и подтверждения подписки пропускаем
func parseTradeFrame(msg []byte) (models.TradeEvent, bool) {
	trades := gjson.GetBytes(msg, "result.orderTrades")
	if !trades.Exists() {
		return models.TradeEvent{}, false
	}
	figi := trades.Get("figi").String()
	if figi == "" {
		return models.TradeEvent{}, false
	}
	return models.TradeEvent{
		FIGI:      figi,
		OrderID:   trades.Get("orderId").String(),
		Direction: trades.Get("direction").String(),
	}, true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}
