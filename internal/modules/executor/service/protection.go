package service

import (
	"context"
	"fmt"

	"tinkoff_bot/internal/helper"
	"tinkoff_bot/internal/metrics"
	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/logger"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// StopLossPrice: long: entry*(1-sl%), short: entry*(1+sl%). Всегда вниз к шагу цены.
func StopLossPrice(entry, percent, tick decimal.Decimal, dir models.Direction) decimal.Decimal {
	k := percent.Div(hundred)
	raw := entry.Mul(decimal.NewFromInt(1).Sub(k))
	if dir == models.Short {
		raw = entry.Mul(decimal.NewFromInt(1).Add(k))
	}
	return helper.RoundDownToTick(raw, tick)
}

// TakeProfitPrice: long: entry*(1+tp%), short: entry*(1-tp%). Всегда вниз к шагу цены.
func TakeProfitPrice(entry, percent, tick decimal.Decimal, dir models.Direction) decimal.Decimal {
	k := percent.Div(hundred)
	raw := entry.Mul(decimal.NewFromInt(1).Add(k))
	if dir == models.Short {
		raw = entry.Mul(decimal.NewFromInt(1).Sub(k))
	}
	return helper.RoundDownToTick(raw, tick)
}

// SplitTakeProfits раскладывает qty по уровням: max(1, round(qty*portion)) с потолком по остатку,
// последний уровень забирает остаток. Уровни с нулём лотов остаются нулями.
func SplitTakeProfits(qty int64, levels []models.TPLevel) []int64 {
	out := make([]int64, len(levels))
	remaining := qty
	for i, lvl := range levels {
		if remaining <= 0 {
			break
		}
		if i == len(levels)-1 {
			out[i] = remaining
			break
		}
		n := decimal.NewFromInt(qty).Mul(lvl.Portion).Round(0).IntPart()
		if n < 1 {
			n = 1
		}
		if n > remaining {
			n = remaining
		}
		out[i] = n
		remaining -= n
	}
	return out
}

// takeProfitPlan: явный процент → один тейк на весь объём; иначе уровни из настроек или базовый тейк.
func takeProfitPlan(s models.BotSettings, override optional.Option[decimal.Decimal]) []models.TPLevel {
	one := decimal.NewFromInt(1)
	if override.IsSome() {
		return []models.TPLevel{{Percent: override.Unwrap(), Portion: one}}
	}
	if s.MultiTPEnabled {
		if levels := s.TakeProfitLevels(); len(levels) > 0 {
			return levels
		}
	}
	return []models.TPLevel{{Percent: s.TakeProfitPercent, Portion: one}}
}

type protectionPlan struct {
	in        models.Instrument
	dir       models.Direction
	qty       int64
	entry     decimal.Decimal
	slPercent decimal.Decimal
	tps       []models.TPLevel
}

// legs: SL на весь объём и по тейку на каждый непустой уровень.
func (p protectionPlan) legs() []models.ProtectiveLeg {
	tick := p.in.MinPriceIncrement
	out := make([]models.ProtectiveLeg, 0, len(p.tps)+1)

	if p.slPercent.IsPositive() {
		out = append(out, models.ProtectiveLeg{
			Kind:    models.StopLoss,
			Tag:     "SL",
			Percent: p.slPercent,
			Price:   StopLossPrice(p.entry, p.slPercent, tick, p.dir),
			Lots:    p.qty,
		})
	}

	split := SplitTakeProfits(p.qty, p.tps)
	for i, lvl := range p.tps {
		if split[i] <= 0 || !lvl.Percent.IsPositive() {
			continue
		}
		tag := "TP"
		if len(p.tps) > 1 {
			tag = fmt.Sprintf("TP%d", i+1)
		}
		out = append(out, models.ProtectiveLeg{
			Kind:    models.TakeProfit,
			Tag:     tag,
			Percent: lvl.Percent,
			Price:   TakeProfitPrice(p.entry, lvl.Percent, tick, p.dir),
			Lots:    split[i],
		})
	}
	return out
}

// placeProtection ставит каждую ногу независимо. Ошибка одной ноги не мешает остальным и не откатывает вход.
func (e *Executor) placeProtection(ctx context.Context, p protectionPlan) []models.ProtectiveLeg {
	legs := p.legs()
	for i := range legs {
		leg := &legs[i]

		cctx, cancel := e.withTimeout(ctx)
		id, err := e.broker.PostStopOrder(cctx, models.StopOrderRequest{
			FIGI:      p.in.FIGI,
			Side:      p.dir.ExitSide(),
			Lots:      leg.Lots,
			StopPrice: leg.Price,
			Kind:      leg.Kind,
		})
		cancel()
		metrics.RecordOrder(string(leg.Kind), err == nil)

		if err != nil {
			leg.Err = rejectionMessage(err)
			logger.Warn("[EXECUTOR] %s %s %s x%d @ %s failed: %v", p.in.Ticker, leg.Tag, p.dir, leg.Lots, leg.Price, err)
			continue
		}
		leg.OrderID = id

		logger.Info("[EXECUTOR] %s %s x%d @ %s placed id=%s", p.in.Ticker, leg.Tag, leg.Lots, leg.Price, id)
		e.audit(ctx, models.Event{
			Type:   models.EventProtectiveOrder,
			Symbol: p.in.Ticker,
			Details: map[string]any{
				"level":    leg.Tag,
				"kind":     string(leg.Kind),
				"price":    leg.Price.String(),
				"lots":     leg.Lots,
				"order_id": id,
				"figi":     p.in.FIGI,
			},
			Message: fmt.Sprintf("%s %s x%d @ %s", p.in.Ticker, leg.Tag, leg.Lots, leg.Price),
		})
	}
	return legs
}
