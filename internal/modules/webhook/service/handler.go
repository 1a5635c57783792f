package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tinkoff_bot/internal/helper"
	"tinkoff_bot/internal/metrics"
	"tinkoff_bot/internal/models"
	executor "tinkoff_bot/internal/modules/executor/service"
	"tinkoff_bot/internal/notify"
	"tinkoff_bot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

const (
	ActionBuy      = "buy"
	ActionSell     = "sell"
	ActionClose    = "close"
	ActionCloseAll = "close_all"
	ActionBalance  = "balance"
)

var ErrBadSignal = errors.New("bad signal")

// Trader: то, что вебхук умеет дергать у исполнителя.
type Trader interface {
	ExecuteSmartOrder(ctx context.Context, req executor.SmartOrder) models.OrderResult
	CloseAll(ctx context.Context) executor.CloseAllReport
	Balance(ctx context.Context) (decimal.Decimal, error)
	BaseCurrency() string
}

type EventLogger interface {
	Log(ctx context.Context, ev models.Event)
}

// Signal: тело вебхука. Проценты человеческие: 30 значит 30%.
type Signal struct {
	Action      string   `json:"action" binding:"required"`
	Symbol      string   `json:"symbol"`
	Quantity    *int64   `json:"quantity" binding:"omitempty,gt=0"`
	RiskPercent *float64 `json:"risk_percent" binding:"omitempty,gt=0,lte=100"`
	TPPercent   *float64 `json:"tp_percent" binding:"omitempty,gt=0,lte=100"`
	SLPercent   *float64 `json:"sl_percent" binding:"omitempty,gt=0,lte=100"`
}

// Handler: POST /webhook.
type Handler struct {
	secret   string
	trader   Trader
	notifier notify.Notifier
	events   EventLogger
	timeout  time.Duration
}

func NewHandler(secret string, trader Trader, n notify.Notifier, events EventLogger) *Handler {
	return &Handler{secret: secret, trader: trader, notifier: n, events: events, timeout: 2 * time.Minute}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/webhook", h.handle)
}

func (h *Handler) handle(c *gin.Context) {
	if c.ContentType() != binding.MIMEJSON {
		h.reject(c, "", http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.reject(c, "", http.StatusBadRequest, "cannot read body")
		return
	}

	if err := Authenticate(h.secret, body, c.GetHeader(SignatureHeader), c.Query("token")); err != nil {
		logger.Warn("[WEBHOOK] auth failed ip=%s: %v", c.ClientIP(), err)
		h.reject(c, "", http.StatusUnauthorized, err.Error())
		return
	}

	var sig Signal
	if err := binding.JSON.BindBody(body, &sig); err != nil {
		h.reject(c, "", http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	sig.Action = strings.ToLower(strings.TrimSpace(sig.Action))

	// исполнение не должно обрываться вместе с HTTP-соединением
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
	defer cancel()

	result, err := h.Process(ctx, sig)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, ErrBadSignal) {
			status = http.StatusBadRequest
		}
		logger.Error("[WEBHOOK] %s %s: %v", sig.Action, sig.Symbol, err)
		if h.notifier != nil {
			h.notifier.Sendf(ctx, "❌ Ошибка обработки вебхука: %v", err)
		}
		h.reject(c, sig.Action, status, err.Error())
		return
	}

	metrics.RecordWebhook(sig.Action, http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
}

func (h *Handler) reject(c *gin.Context, action string, status int, msg string) {
	if action == "" {
		action = "unknown"
	}
	metrics.RecordWebhook(action, status)
	c.JSON(status, gin.H{"status": "error", "error": msg})
}

// Process исполняет сигнал и возвращает текст для ответа и чата.
func (h *Handler) Process(ctx context.Context, sig Signal) (string, error) {
	symbol := helper.NormTicker(sig.Symbol)
	logger.Info("[WEBHOOK] signal %s %s", sig.Action, symbol)

	if h.events != nil {
		h.events.Log(ctx, models.Event{
			Type:    models.EventWebhook,
			Symbol:  symbol,
			Details: map[string]any{"action": sig.Action, "quantity": sig.Quantity},
			Message: "webhook " + sig.Action,
		})
	}

	switch sig.Action {
	case ActionBuy, ActionSell:
		if symbol == "" {
			return "", fmt.Errorf("%w: missing required field: symbol", ErrBadSignal)
		}
		return h.trade(ctx, sig, symbol)
	case ActionClose:
		if symbol == "" {
			return "", fmt.Errorf("%w: missing required field: symbol", ErrBadSignal)
		}
		res := h.trader.ExecuteSmartOrder(ctx, executor.SmartOrder{Ticker: symbol, CloseOnly: true, Source: "webhook"})
		return h.outcome(ctx, res)
	case ActionCloseAll:
		msg := h.trader.CloseAll(ctx).Summary()
		h.notify(ctx, msg)
		return msg, nil
	case ActionBalance:
		bal, err := h.trader.Balance(ctx)
		if err != nil {
			return "", fmt.Errorf("balance: %w", err)
		}
		msg := fmt.Sprintf("💰 Текущий баланс: %s %s", helper.FormatMoney(bal), strings.ToUpper(h.trader.BaseCurrency()))
		h.notify(ctx, msg)
		return msg, nil
	default:
		return "", fmt.Errorf("%w: unknown action: %q", ErrBadSignal, sig.Action)
	}
}

func (h *Handler) trade(ctx context.Context, sig Signal, symbol string) (string, error) {
	dir := models.Long
	if sig.Action == ActionSell {
		dir = models.Short
	}

	req := executor.SmartOrder{
		Ticker:            symbol,
		Direction:         dir,
		RiskPercent:       percentOption(sig.RiskPercent),
		TakeProfitPercent: percentOption(sig.TPPercent),
		StopLossPercent:   percentOption(sig.SLPercent),
		Source:            "webhook",
	}
	if sig.Quantity != nil {
		req.Lots = *sig.Quantity
	}

	return h.outcome(ctx, h.trader.ExecuteSmartOrder(ctx, req))
}

func (h *Handler) outcome(ctx context.Context, res models.OrderResult) (string, error) {
	if !res.Success {
		return "", errors.New(res.Message)
	}
	h.notify(ctx, res.Message)
	return res.Message, nil
}

func (h *Handler) notify(ctx context.Context, msg string) {
	if h.notifier != nil {
		h.notifier.Send(ctx, msg)
	}
}

func percentOption(p *float64) optional.Option[decimal.Decimal] {
	if p == nil {
		return optional.None[decimal.Decimal]()
	}
	return optional.Some(decimal.NewFromFloat(*p))
}
