package service

import (
	"context"
	"fmt"

	"tinkoff_bot/internal/models"
	"tinkoff_bot/internal/notify"
	"tinkoff_bot/pkg/logger"
)

type OrderCanceller interface {
	CancelForInstrument(ctx context.Context, figi string) models.CancelCounts
}

type TickerResolver interface {
	TickerFor(ctx context.Context, figi string) string
}

type EventLogger interface {
	Log(ctx context.Context, ev models.Event)
}

// Reconciler снимает осиротевшие заявки по обнулившимся позициям.
// Перед отменой позиция перечитывается: событие могло устареть, пока лежало в очереди.
type Reconciler struct {
	positions PositionSource
	canceller OrderCanceller
	tickers   TickerResolver
	notifier  notify.Notifier
	events    EventLogger
}

func NewReconciler(p PositionSource, c OrderCanceller, t TickerResolver, n notify.Notifier, ev EventLogger) *Reconciler {
	return &Reconciler{positions: p, canceller: c, tickers: t, notifier: n, events: ev}
}

// Run обрабатывает события, пока канал открыт.
func (r *Reconciler) Run(ctx context.Context, events <-chan FlatEvent) {
	for ev := range events {
		r.Handle(ctx, ev)
	}
}

func (r *Reconciler) Handle(ctx context.Context, ev FlatEvent) {
	if !r.stillFlat(ctx, ev.FIGI) {
		return
	}

	ticker := r.tickers.TickerFor(ctx, ev.FIGI)
	counts := r.canceller.CancelForInstrument(ctx, ev.FIGI)

	msg := fmt.Sprintf("ℹ️ Позиция по %s закрыта. Все стопы и лимиты сняты (стоп: %d, лимит: %d)",
		ticker, counts.Stop, counts.Limit)
	logger.Info("[RECONCILER] %s", msg)

	if r.notifier != nil {
		r.notifier.Send(ctx, msg)
	}
	if r.events != nil {
		r.events.Log(ctx, models.Event{
			Time:   ev.At,
			Type:   models.EventPositionClosed,
			Symbol: ticker,
			Details: map[string]any{
				"figi":            ev.FIGI,
				"previous_lots":   ev.Previous,
				"cancelled_stop":  counts.Stop,
				"cancelled_limit": counts.Limit,
			},
			Message: msg,
		})
	}
}

// stillFlat: по инструменту сейчас нет позиции. При ошибке опроса заявки не трогаем.
func (r *Reconciler) stillFlat(ctx context.Context, figi string) bool {
	if r.positions == nil {
		return true
	}
	net, err := r.positions.NetQuantities(ctx)
	if err != nil {
		logger.Warn("[RECONCILER] %s: recheck failed, skip cancel: %v", figi, err)
		return false
	}
	if lots := net[figi]; lots != 0 {
		logger.Info("[RECONCILER] %s reopened (%d lots), orders kept", figi, lots)
		return false
	}
	return true
}
