package service

import (
	"context"
	"fmt"

	"tinkoff_bot/internal/metrics"
	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/logger"
)

// CancelAll снимает все лимитные и стоп-заявки на счёте.
func (e *Executor) CancelAll(ctx context.Context) models.CancelCounts {
	return e.cancelWhere(ctx, "", func(models.RestingOrder) bool { return true })
}

// CancelForInstrument снимает заявки одного инструмента.
func (e *Executor) CancelForInstrument(ctx context.Context, figi string) models.CancelCounts {
	return e.cancelWhere(ctx, figi, func(o models.RestingOrder) bool { return o.FIGI == figi })
}

// cancelWhere: каждая отмена независима, ошибки только логируются.
func (e *Executor) cancelWhere(ctx context.Context, figi string, match func(models.RestingOrder) bool) models.CancelCounts {
	var counts models.CancelCounts

	cctx, cancel := e.withTimeout(ctx)
	limits, err := e.broker.GetOrders(cctx)
	cancel()
	if err != nil {
		logger.Error("[EXECUTOR] GetOrders: %v", err)
	}
	for _, o := range limits {
		if !match(o) {
			continue
		}
		cctx, cancel := e.withTimeout(ctx)
		err := e.broker.CancelOrder(cctx, o.ID)
		cancel()
		if err != nil {
			logger.Error("[EXECUTOR] cancel limit order %s (%s): %v", o.ID, o.FIGI, err)
			continue
		}
		counts.Limit++
	}

	cctx, cancel = e.withTimeout(ctx)
	stops, err := e.broker.GetStopOrders(cctx)
	cancel()
	if err != nil {
		logger.Error("[EXECUTOR] GetStopOrders: %v", err)
	}
	for _, o := range stops {
		if !match(o) {
			continue
		}
		cctx, cancel := e.withTimeout(ctx)
		err := e.broker.CancelStopOrder(cctx, o.ID)
		cancel()
		if err != nil {
			logger.Error("[EXECUTOR] cancel stop order %s (%s): %v", o.ID, o.FIGI, err)
			continue
		}
		counts.Stop++
	}

	metrics.RecordCancelled(counts.Limit, counts.Stop)
	if counts.Total() > 0 {
		symbol := ""
		if figi != "" {
			symbol = e.resolver.TickerFor(ctx, figi)
		}
		e.audit(ctx, models.Event{
			Type:    models.EventCancelOrders,
			Symbol:  symbol,
			Details: map[string]any{"limit": counts.Limit, "stop": counts.Stop, "figi": figi},
			Message: fmt.Sprintf("cancelled limit=%d stop=%d", counts.Limit, counts.Stop),
		})
	}
	return counts
}
