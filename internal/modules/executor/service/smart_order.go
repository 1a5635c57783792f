package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tinkoff_bot/internal/helper"
	"tinkoff_bot/internal/metrics"
	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/logger"
	"tinkoff_bot/pkg/tracing"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// SmartOrder: торговое намерение из чата, вебхука или планировщика.
type SmartOrder struct {
	// Ticker или FIGI; если задан FIGI, тикер не резолвится
	Ticker    string
	FIGI      string
	Direction models.Direction
	CloseOnly bool
	// 0: считать по риску
	Lots int64

	// Проценты в человеческом виде; None: из настроек.
	RiskPercent       optional.Option[decimal.Decimal]
	TakeProfitPercent optional.Option[decimal.Decimal]
	StopLossPercent   optional.Option[decimal.Decimal]

	Source string
}

func (o SmartOrder) target() string {
	if o.Ticker != "" {
		return helper.NormTicker(o.Ticker)
	}
	return o.FIGI
}

// ExecuteSmartOrder всегда возвращает результат: любая ошибка или паника превращается в Success=false.
func (e *Executor) ExecuteSmartOrder(ctx context.Context, req SmartOrder) (res models.OrderResult) {
	span, ctx := tracing.StartSpan(ctx, "executor.ExecuteSmartOrder")
	span.SetTag("target", req.target())
	span.SetTag("direction", string(req.Direction))
	span.SetTag("close_only", req.CloseOnly)

	mode := "open"
	if req.CloseOnly {
		mode = "close"
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("[EXECUTOR] panic in smart order %s: %v", req.target(), r)
			res = models.Failed(fmt.Sprintf("❌ Внутренняя ошибка при операции по %s: %v", req.target(), r))
			res.Ticker = req.target()
		}
		var spanErr error
		if !res.Success {
			spanErr = errors.New(res.Message)
		}
		tracing.Finish(span, spanErr)
		metrics.RecordSmartOrder(mode, res.Success)
	}()

	res, err := e.executeSmartOrder(ctx, req)
	if err != nil {
		logger.Error("[EXECUTOR] smart order %s %s: %v", req.target(), req.Direction, err)
		e.audit(ctx, models.Event{
			Type:    models.EventError,
			Symbol:  req.target(),
			Details: map[string]any{"direction": string(req.Direction), "close_only": req.CloseOnly, "source": req.Source},
			Message: err.Error(),
		})
		res = models.Failed(userMessage(req.target(), err))
		res.Ticker = req.target()
		return res
	}
	return res
}

func (e *Executor) executeSmartOrder(ctx context.Context, req SmartOrder) (models.OrderResult, error) {
	figi, ticker, err := e.resolveTarget(ctx, req)
	if err != nil {
		return models.OrderResult{}, err
	}

	if req.CloseOnly {
		return e.closePosition(ctx, figi, ticker)
	}

	if req.Direction != models.Long && req.Direction != models.Short {
		return models.OrderResult{}, fmt.Errorf("unknown direction %q", req.Direction)
	}
	if at, blocked := e.TradingBlocked(); blocked {
		return models.OrderResult{}, fmt.Errorf("%w: автоликвидация в %s", ErrTradingBlocked, at.Format("15:04"))
	}

	settings := e.settings.Get()

	in, err := e.resolver.Instrument(ctx, figi)
	if err != nil {
		return models.OrderResult{}, err
	}
	if in.Ticker != "" {
		ticker = in.Ticker
	}

	pos, hasPos, err := e.position(ctx, figi)
	if err != nil {
		return models.OrderResult{}, err
	}

	var closed *models.OrderResult
	if hasPos && pos.Direction != req.Direction {
		logger.Info("[EXECUTOR] %s: closing opposing %s x%d before %s", ticker, pos.Direction, pos.Lots, req.Direction)
		cr, err := e.closePosition(ctx, figi, ticker)
		if err != nil {
			return models.OrderResult{}, fmt.Errorf("close opposing position: %w", err)
		}
		if !cr.Success {
			res := models.Failed(fmt.Sprintf("❌ Не удалось закрыть встречную позицию %s: %s. Новый вход не выполнен", ticker, cr.Message))
			res.Ticker = ticker
			res.FIGI = figi
			return res, nil
		}
		if err := e.waitFlat(ctx, figi); err != nil {
			return models.OrderResult{}, err
		}
		closed = &cr
	}

	lots, err := e.targetLots(ctx, req, in, settings)
	if err != nil {
		return models.OrderResult{}, err
	}

	// после отмены вызывающего новый вход не начинаем
	if err := ctx.Err(); err != nil {
		return models.OrderResult{}, err
	}

	entry := e.PlaceMarket(ctx, figi, req.Direction.EntrySide(), lots)
	entry.Ticker = ticker
	if closed != nil {
		entry.SetDetail("closed_opposing_lots", closed.Lots)
		entry.SetDetail("closed_opposing_order_id", closed.OrderID)
	}
	if !entry.Success {
		e.audit(ctx, models.Event{
			Type:    models.EventError,
			Symbol:  ticker,
			Details: map[string]any{"direction": string(req.Direction), "lots": lots, "source": req.Source},
			Message: entry.Message,
		})
		return entry, nil
	}

	e.audit(ctx, models.Event{
		Type:   models.EventTrade,
		Symbol: ticker,
		Details: map[string]any{
			"direction": string(req.Direction),
			"lots":      entry.Lots,
			"price":     entry.Price.String(),
			"order_id":  entry.OrderID,
			"figi":      figi,
			"source":    req.Source,
		},
		Message: fmt.Sprintf("%s %s x%d", ticker, strings.ToUpper(string(req.Direction)), entry.Lots),
	})

	// вход уже исполнен: защиту ставим даже если вызывающий отвалился
	protectCtx := context.WithoutCancel(ctx)

	entryPrice := entry.Price
	if !entryPrice.IsPositive() {
		entryPrice, err = e.resolver.ReferencePrice(protectCtx, figi)
		if err != nil {
			logger.Error("[EXECUTOR] %s: no entry price for protection: %v", ticker, err)
			entry.SetDetail("protection_error", err.Error())
			entry.Message = fmt.Sprintf("✅ %s %s %d лот(ов) открыт, но SL/TP не выставлены: нет цены", ticker, directionLabel(req.Direction), entry.Lots)
			return entry, nil
		}
		entry.Price = entryPrice
	}

	slPercent := settings.StopLossPercent
	if req.StopLossPercent.IsSome() {
		slPercent = req.StopLossPercent.Unwrap()
	}

	entry.Legs = e.placeProtection(protectCtx, protectionPlan{
		in:        in,
		dir:       req.Direction,
		qty:       entry.Lots,
		entry:     entryPrice,
		slPercent: slPercent,
		tps:       takeProfitPlan(settings, req.TakeProfitPercent),
	})
	for _, leg := range entry.Legs {
		if leg.Placed() {
			entry.SetDetail(strings.ToLower(leg.Tag)+"_order_id", leg.OrderID)
			entry.SetDetail(strings.ToLower(leg.Tag)+"_price", leg.Price.String())
		} else {
			entry.SetDetail(strings.ToLower(leg.Tag)+"_error", leg.Err)
		}
	}
	entry.Message = entryMessage(ticker, req.Direction, entry, closed)
	return entry, nil
}

func (e *Executor) resolveTarget(ctx context.Context, req SmartOrder) (figi, ticker string, err error) {
	if req.FIGI != "" {
		return req.FIGI, e.resolver.TickerFor(ctx, req.FIGI), nil
	}
	ticker = helper.NormTicker(req.Ticker)
	figi, err = e.resolver.ResolveFIGI(ctx, ticker)
	if err != nil {
		return "", "", err
	}
	return figi, ticker, nil
}

// targetLots: явные лоты или по риску от баланса.
func (e *Executor) targetLots(ctx context.Context, req SmartOrder, in models.Instrument, s models.BotSettings) (int64, error) {
	if req.Lots != 0 {
		return SizeByExplicitLots(req.Lots)
	}

	balance, err := e.Balance(ctx)
	if err != nil {
		return 0, err
	}
	if !balance.IsPositive() {
		return 0, ErrInsufficientFunds
	}

	risk := s.RiskFraction(req.Direction)
	if req.RiskPercent.IsSome() {
		risk = models.PercentToFraction(req.RiskPercent.Unwrap())
	}

	price, err := e.resolver.ReferencePrice(ctx, in.FIGI)
	if err != nil {
		return 0, err
	}
	lots, err := SizeByRisk(balance, risk, price, in.Lot)
	if err != nil {
		return 0, err
	}
	logger.Info("[EXECUTOR] %s sizing: balance=%s risk=%s price=%s lot=%d -> %d lots",
		in.Ticker, balance, risk, price, in.Lot, lots)
	return lots, nil
}

// waitFlat опрашивает позиции, пока инструмент не станет плоским или не выйдет settle-таймаут.
func (e *Executor) waitFlat(ctx context.Context, figi string) error {
	deadline := e.now().Add(e.opts.SettleTimeout)
	for {
		net, err := e.NetQuantities(ctx)
		if err == nil && net[figi] == 0 {
			return nil
		}
		if err != nil {
			logger.Warn("[EXECUTOR] settle poll %s: %v", figi, err)
		}
		if !e.now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrSettleTimeout, figi, e.opts.SettleTimeout)
		}
		if err := e.sleep(ctx, e.opts.SettlePoll); err != nil {
			return err
		}
	}
}

// ClosePosition закрывает позицию по FIGI целиком (close-only).
func (e *Executor) ClosePosition(ctx context.Context, figi string) models.OrderResult {
	return e.ExecuteSmartOrder(ctx, SmartOrder{FIGI: figi, CloseOnly: true})
}

// closePosition: нет позиции → успех "закрывать нечего"; иначе снять заявки по инструменту и закрыть рынком.
func (e *Executor) closePosition(ctx context.Context, figi, ticker string) (models.OrderResult, error) {
	pos, ok, err := e.position(ctx, figi)
	if err != nil {
		return models.OrderResult{}, err
	}
	if !ok {
		return models.OrderResult{
			Success: true,
			Message: fmt.Sprintf("ℹ️ Позиции по %s нет, закрывать нечего", ticker),
			Ticker:  ticker,
			FIGI:    figi,
			Details: map[string]any{"nothing_to_close": true},
		}, nil
	}

	cancelled := e.CancelForInstrument(ctx, figi)

	res := e.PlaceMarket(ctx, figi, pos.Direction.ExitSide(), pos.Lots)
	res.Ticker = ticker
	res.SetDetail("closed_direction", string(pos.Direction))
	res.SetDetail("cancelled_limit", cancelled.Limit)
	res.SetDetail("cancelled_stop", cancelled.Stop)
	if !res.Success {
		return res, nil
	}

	res.Message = fmt.Sprintf("✅ Позиция %s %s %d лот(ов) закрыта", ticker, directionLabel(pos.Direction), pos.Lots)
	e.audit(ctx, models.Event{
		Type:   models.EventClose,
		Symbol: ticker,
		Details: map[string]any{
			"direction": string(pos.Direction),
			"lots":      pos.Lots,
			"price":     res.Price.String(),
			"order_id":  res.OrderID,
			"figi":      figi,
		},
		Message: res.Message,
	})
	return res, nil
}

func directionLabel(d models.Direction) string {
	if d == models.Short {
		return "SHORT"
	}
	return "LONG"
}

func entryMessage(ticker string, dir models.Direction, entry models.OrderResult, closed *models.OrderResult) string {
	var b strings.Builder
	if closed != nil {
		fmt.Fprintf(&b, "🔄 Встречная позиция %s закрыта (%d лот(ов))\n", ticker, closed.Lots)
	}
	fmt.Fprintf(&b, "✅ %s %s %d лот(ов) @ %s", ticker, directionLabel(dir), entry.Lots, entry.Price.String())
	for _, leg := range entry.Legs {
		if leg.Placed() {
			fmt.Fprintf(&b, "\n%s: %s x%d", leg.Tag, leg.Price.String(), leg.Lots)
		} else {
			fmt.Fprintf(&b, "\n⚠️ %s не выставлен: %s", leg.Tag, leg.Err)
		}
	}
	return b.String()
}
