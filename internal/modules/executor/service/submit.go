package service

import (
	"context"
	"fmt"
	"strings"

	"tinkoff_bot/internal/metrics"
	"tinkoff_bot/internal/models"
	tinkoff "tinkoff_bot/internal/modules/tinkoff_client/service"
	"tinkoff_bot/pkg/logger"
)

const shortMarginMessage = "❌ Брокер отклонил заявку: недостаточно маржи для короткой позиции. " +
	"Уменьшите риск или количество лотов, либо проверьте, доступен ли шорт по инструменту"

// PlaceMarket: рыночная заявка. Ошибку не возвращает: отказ брокера попадает в Message.
func (e *Executor) PlaceMarket(ctx context.Context, figi string, side models.Side, lots int64) models.OrderResult {
	cctx, cancel := e.withTimeout(ctx)
	defer cancel()

	po, err := e.broker.PostMarketOrder(cctx, figi, side, lots)
	metrics.RecordOrder("market", err == nil)
	if err != nil {
		logger.Error("[EXECUTOR] market %s %s x%d: %v", side, figi, lots, err)
		res := models.Failed(rejectionMessage(err))
		res.FIGI = figi
		res.SetDetail("side", string(side))
		res.SetDetail("lots", lots)
		return res
	}

	executed := po.LotsExecuted
	if executed <= 0 {
		executed = lots
	}
	res := models.OrderResult{
		Success: true,
		Message: fmt.Sprintf("Ордер %s исполнен", po.OrderID),
		OrderID: po.OrderID,
		FIGI:    figi,
		Price:   po.ExecutedPrice,
		Lots:    executed,
		Details: map[string]any{"side": string(side), "status": po.Status},
	}
	if po.ExecutedPrice.IsPositive() {
		res.Message = fmt.Sprintf("Ордер %s исполнен по %s", po.OrderID, po.ExecutedPrice.String())
	}
	logger.Info("[EXECUTOR] market %s %s x%d ok order=%s price=%s", side, figi, executed, po.OrderID, po.ExecutedPrice)
	return res
}

// rejectionMessage: текст брокера как есть, кроме нехватки маржи под шорт.
func rejectionMessage(err error) string {
	msg := err.Error()
	if apiErr, ok := tinkoff.AsAPIError(err); ok {
		msg = apiErr.BrokerMessage()
	}
	if isShortMarginError(msg) {
		return shortMarginMessage
	}
	return msg
}

func isShortMarginError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "30042") ||
		strings.Contains(lower, "not enough assets for a margin trade") ||
		strings.Contains(lower, "недостаточно активов")
}
