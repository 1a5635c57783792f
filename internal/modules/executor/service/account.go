package service

import (
	"context"
	"fmt"

	"tinkoff_bot/internal/models"

	"github.com/shopspring/decimal"
)

// Positions: открытые фьючерсные позиции. Количество = свободное + заблокированное, нулевые отброшены.
func (e *Executor) Positions(ctx context.Context) ([]models.Position, error) {
	holdings, err := e.futures(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Position, 0, len(holdings))
	for _, h := range holdings {
		p, ok := models.PositionFromNet(h.FIGI, "", h.Net())
		if !ok {
			continue
		}
		p.Ticker = e.resolver.TickerFor(ctx, h.FIGI)
		out = append(out, p)
	}
	return out, nil
}

// NetQuantities: FIGI → лоты со знаком, только ненулевые.
func (e *Executor) NetQuantities(ctx context.Context) (map[string]int64, error) {
	holdings, err := e.futures(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(holdings))
	for _, h := range holdings {
		if n := h.Net(); n != 0 {
			out[h.FIGI] += n
		}
	}
	return out, nil
}

// Balance: деньги в базовой валюте счёта.
func (e *Executor) Balance(ctx context.Context) (decimal.Decimal, error) {
	cctx, cancel := e.withTimeout(ctx)
	defer cancel()

	pos, err := e.broker.GetPositions(cctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetPositions: %w", err)
	}
	total := decimal.Zero
	for _, m := range pos.Money {
		if m.Currency == e.opts.BaseCurrency {
			total = total.Add(m.Amount)
		}
	}
	return total, nil
}

func (e *Executor) BaseCurrency() string { return e.opts.BaseCurrency }

// position: текущая позиция по одному инструменту.
func (e *Executor) position(ctx context.Context, figi string) (models.Position, bool, error) {
	holdings, err := e.futures(ctx)
	if err != nil {
		return models.Position{}, false, err
	}
	var net int64
	for _, h := range holdings {
		if h.FIGI == figi {
			net += h.Net()
		}
	}
	p, ok := models.PositionFromNet(figi, "", net)
	if ok {
		p.Ticker = e.resolver.TickerFor(ctx, figi)
	}
	return p, ok, nil
}

func (e *Executor) futures(ctx context.Context) ([]models.FuturesHolding, error) {
	cctx, cancel := e.withTimeout(ctx)
	defer cancel()

	pos, err := e.broker.GetPositions(cctx)
	if err != nil {
		return nil, fmt.Errorf("GetPositions: %w", err)
	}
	return pos.Futures, nil
}
