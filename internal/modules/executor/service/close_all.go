package service

import (
	"context"
	"fmt"
	"strings"

	"tinkoff_bot/internal/helper"
	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/logger"

	"github.com/shopspring/decimal"
)

// CloseAllReport: итог закрытия всех позиций.
type CloseAllReport struct {
	Closed       int
	Failures     []string
	Cancelled    models.CancelCounts
	Balance      decimal.Decimal
	Currency     string
	BalanceErr   error
	PositionsErr error
}

// CloseAll закрывает позиции по одной с паузой, затем снимает все заявки и читает итоговый баланс.
func (e *Executor) CloseAll(ctx context.Context) CloseAllReport {
	rep := CloseAllReport{Currency: e.opts.BaseCurrency}

	positions, err := e.Positions(ctx)
	if err != nil {
		logger.Error("[EXECUTOR] close all: positions: %v", err)
		rep.PositionsErr = err
	}
	logger.Info("[EXECUTOR] close all: %d positions", len(positions))

	for i, p := range positions {
		res := e.ExecuteSmartOrder(ctx, SmartOrder{FIGI: p.FIGI, CloseOnly: true, Source: "close_all"})
		if res.Success {
			rep.Closed++
		} else {
			rep.Failures = append(rep.Failures, fmt.Sprintf("%s: %s", p.Ticker, res.Message))
		}
		if i < len(positions)-1 {
			if err := e.sleep(ctx, e.opts.ClosePause); err != nil {
				logger.Warn("[EXECUTOR] close all interrupted: %v", err)
				break
			}
		}
	}

	rep.Cancelled = e.CancelAll(ctx)

	rep.Balance, rep.BalanceErr = e.Balance(ctx)
	if rep.BalanceErr != nil {
		logger.Error("[EXECUTOR] close all: final balance: %v", rep.BalanceErr)
	}

	logger.Info("[EXECUTOR] close all done: closed=%d failed=%d limit=%d stop=%d",
		rep.Closed, len(rep.Failures), rep.Cancelled.Limit, rep.Cancelled.Stop)
	return rep
}

func (r CloseAllReport) Summary() string {
	var b strings.Builder
	b.WriteString("✅ Операция завершена!\n\n")
	if r.PositionsErr != nil {
		fmt.Fprintf(&b, "⚠️ Не удалось получить позиции: %v\n", r.PositionsErr)
	}
	fmt.Fprintf(&b, "📊 Закрыто позиций: %d\n", r.Closed)
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "⚠️ %s\n", f)
	}
	fmt.Fprintf(&b, "🚫 Отменено лимитных ордеров: %d\n", r.Cancelled.Limit)
	fmt.Fprintf(&b, "🛑 Отменено стоп-ордеров: %d\n", r.Cancelled.Stop)
	if r.BalanceErr != nil {
		b.WriteString("💰 Баланс: ошибка получения")
	} else {
		fmt.Fprintf(&b, "💰 Итоговый баланс: %s %s", helper.FormatMoney(r.Balance), strings.ToUpper(r.Currency))
	}
	return b.String()
}
