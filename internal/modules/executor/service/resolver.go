package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinkoff_bot/internal/helper"
	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type figiEntry struct {
	figi    string
	expires time.Time
}

// Resolver: тикер → FIGI, параметры инструмента и опорная цена.
// FIGI кэшируется на ttl, инструменты на всё время жизни процесса.
type Resolver struct {
	broker      Broker
	ttl         time.Duration
	callTimeout time.Duration
	now         func() time.Time

	mu          sync.RWMutex
	figis       map[string]figiEntry
	instruments map[string]models.Instrument

	group singleflight.Group
}

func NewResolver(broker Broker, ttl, callTimeout time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Resolver{
		broker:      broker,
		ttl:         ttl,
		callTimeout: callTimeout,
		now:         time.Now,
		figis:       make(map[string]figiEntry),
		instruments: make(map[string]models.Instrument),
	}
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.callTimeout)
}

// ResolveFIGI ищет инструмент по тикеру: точное совпадение тикера, иначе первый результат поиска.
func (r *Resolver) ResolveFIGI(ctx context.Context, ticker string) (string, error) {
	ticker = helper.NormTicker(ticker)
	if ticker == "" {
		return "", fmt.Errorf("%w: empty ticker", ErrInstrumentNotFound)
	}

	r.mu.RLock()
	e, ok := r.figis[ticker]
	r.mu.RUnlock()
	if ok && r.now().Before(e.expires) {
		return e.figi, nil
	}

	v, err, _ := r.group.Do("figi:"+ticker, func() (any, error) {
		cctx, cancel := r.withTimeout(ctx)
		defer cancel()

		found, err := r.broker.FindInstrument(cctx, ticker)
		if err != nil {
			return "", fmt.Errorf("%w: FindInstrument %s: %w", ErrInstrumentLookupFailed, ticker, err)
		}
		figi := pickFIGI(ticker, found)
		if figi == "" {
			return "", fmt.Errorf("%w: %s", ErrInstrumentNotFound, ticker)
		}

		r.mu.Lock()
		r.figis[ticker] = figiEntry{figi: figi, expires: r.now().Add(r.ttl)}
		r.mu.Unlock()

		logger.Debug("[RESOLVER] %s -> %s", ticker, figi)
		return figi, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func pickFIGI(ticker string, found []models.InstrumentShort) string {
	if len(found) == 0 {
		return ""
	}
	// среди одноимённых предпочитаем доступные для торговли через API
	var exact string
	for _, in := range found {
		if !strings.EqualFold(in.Ticker, ticker) {
			continue
		}
		if in.TradeAvailable {
			return in.FIGI
		}
		if exact == "" {
			exact = in.FIGI
		}
	}
	if exact != "" {
		return exact
	}
	return found[0].FIGI
}

// Instrument: лот и шаг цены. Лот всегда >= 1, шаг > 0.
func (r *Resolver) Instrument(ctx context.Context, figi string) (models.Instrument, error) {
	r.mu.RLock()
	in, ok := r.instruments[figi]
	r.mu.RUnlock()
	if ok {
		return in, nil
	}

	v, err, _ := r.group.Do("instrument:"+figi, func() (any, error) {
		cctx, cancel := r.withTimeout(ctx)
		defer cancel()

		in, err := r.broker.GetInstrumentByFIGI(cctx, figi)
		if err != nil {
			return models.Instrument{}, fmt.Errorf("%w: GetInstrumentBy %s: %w", ErrInstrumentLookupFailed, figi, err)
		}
		if in.Lot < 1 {
			in.Lot = 1
		}
		if !in.MinPriceIncrement.IsPositive() {
			return models.Instrument{}, fmt.Errorf("%w: %s has no price increment", ErrInstrumentLookupFailed, figi)
		}

		r.mu.Lock()
		r.instruments[figi] = in
		r.mu.Unlock()
		return in, nil
	})
	if err != nil {
		return models.Instrument{}, err
	}
	return v.(models.Instrument), nil
}

// TickerFor: тикер для сообщений; при ошибке отдаёт сам FIGI.
func (r *Resolver) TickerFor(ctx context.Context, figi string) string {
	in, err := r.Instrument(ctx, figi)
	if err != nil || in.Ticker == "" {
		return figi
	}
	return in.Ticker
}

// ReferencePrice: середина лучших bid/ask, иначе цена последней сделки.
func (r *Resolver) ReferencePrice(ctx context.Context, figi string) (decimal.Decimal, error) {
	cctx, cancel := r.withTimeout(ctx)
	book, err := r.broker.GetOrderBook(cctx, figi, 1)
	cancel()
	if err != nil {
		logger.Warn("[RESOLVER] order book %s: %v, fallback to last price", figi, err)
	} else if len(book.Bids) > 0 && len(book.Asks) > 0 {
		return book.Bids[0].Add(book.Asks[0]).Div(decimal.NewFromInt(2)), nil
	}

	cctx, cancel = r.withTimeout(ctx)
	defer cancel()
	last, ok, err := r.broker.GetLastPrice(cctx, figi)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, figi, err)
	}
	if !ok || !last.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceUnavailable, figi)
	}
	return last, nil
}
