package service

import (
	"tinkoff_bot/internal/helper"

	"github.com/shopspring/decimal"
)

// SizeByRisk: lots = floor(trunc2(balance*risk) / (price*lot)). Чистая функция.
func SizeByRisk(balance, riskFraction, price decimal.Decimal, lot int64) (int64, error) {
	if lot < 1 {
		lot = 1
	}
	pricePerLot := price.Mul(decimal.NewFromInt(lot))
	if !pricePerLot.IsPositive() {
		return 0, ErrPriceUnavailable
	}

	amount := helper.TruncateMoney(balance.Mul(riskFraction))
	if !amount.IsPositive() {
		return 0, &SizingError{Amount: amount, PricePerLot: pricePerLot}
	}

	// QuoRem с точностью 0 даёт точное целочисленное деление без округления
	q, _ := amount.QuoRem(pricePerLot, 0)
	lots := q.IntPart()
	if lots < 1 {
		return 0, &SizingError{Amount: amount, PricePerLot: pricePerLot}
	}
	return lots, nil
}

func SizeByExplicitLots(lots int64) (int64, error) {
	if lots < 1 {
		return 0, ErrInvalidLots
	}
	return lots, nil
}
