package service

import (
	"errors"
	"fmt"

	"tinkoff_bot/internal/helper"

	"github.com/shopspring/decimal"
)

var (
	ErrInstrumentNotFound     = errors.New("instrument not found")
	ErrInstrumentLookupFailed = errors.New("instrument lookup failed")
	ErrPriceUnavailable       = errors.New("price unavailable")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidLots            = errors.New("lots must be >= 1")
	ErrSettleTimeout          = errors.New("opposing position did not settle")
	ErrTradingBlocked         = errors.New("entries blocked before auto-liquidation")
)

// SizingError: на сумму под сделку не набирается ни одного лота.
type SizingError struct {
	Amount      decimal.Decimal
	PricePerLot decimal.Decimal
}

func (e *SizingError) Error() string {
	return fmt.Sprintf("amount %s is below one lot price %s", e.Amount.StringFixed(2), e.PricePerLot.StringFixed(2))
}

// userMessage: текст для чата/вебхука по ошибке исполнения.
func userMessage(target string, err error) string {
	var sizing *SizingError
	switch {
	case errors.As(err, &sizing):
		return fmt.Sprintf("⚠️ Сумма %s ₽ недостаточна: один лот %s стоит %s ₽",
			helper.FormatMoney(sizing.Amount), target, helper.FormatMoney(sizing.PricePerLot))
	case errors.Is(err, ErrInstrumentNotFound):
		return fmt.Sprintf("⚠️ Инструмент %s не найден", target)
	case errors.Is(err, ErrInstrumentLookupFailed):
		return fmt.Sprintf("❗️ Не удалось получить данные инструмента %s: %v", target, err)
	case errors.Is(err, ErrPriceUnavailable):
		return fmt.Sprintf("⚠️ Нет цены по %s: стакан и последняя сделка пусты", target)
	case errors.Is(err, ErrInsufficientFunds):
		return "⚠️ Недостаточно средств на счёте"
	case errors.Is(err, ErrInvalidLots):
		return "⚠️ Количество лотов должно быть не меньше 1"
	case errors.Is(err, ErrSettleTimeout):
		return fmt.Sprintf("⚠️ Встречная позиция по %s закрыта, но брокер не подтвердил это вовремя. Новый вход не выполнен", target)
	case errors.Is(err, ErrTradingBlocked):
		return fmt.Sprintf("⛔️ Новые входы запрещены: %v", err)
	}
	return fmt.Sprintf("❌ Ошибка операции по %s: %v", target, err)
}
