package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Int64: int64 в protobuf JSON приходит строкой; число тоже принимаем.
type Int64 int64

func (v *Int64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("int64 %s: %w", string(b), err)
	}
	*v = Int64(n)
	return nil
}

func (v Int64) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatInt(int64(v), 10) + `"`), nil
}

// Quotation: units + nano (1e-9), так брокер передаёт цены.
type Quotation struct {
	Units Int64 `json:"units"`
	Nano  int32 `json:"nano"`
}

type MoneyValue struct {
	Currency string `json:"currency"`
	Units    Int64  `json:"units"`
	Nano     int32  `json:"nano"`
}

func (q Quotation) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(q.Units)).Add(decimal.New(int64(q.Nano), -9))
}

func (q Quotation) IsZero() bool { return q.Units == 0 && q.Nano == 0 }

func (m MoneyValue) Decimal() decimal.Decimal {
	return Quotation{Units: m.Units, Nano: m.Nano}.Decimal()
}

// QuotationFromDecimal режет всё мельче 1e-9. Знак у units и nano общий.
func QuotationFromDecimal(d decimal.Decimal) Quotation {
	units := d.Truncate(0)
	nano := d.Sub(units).Shift(9).Truncate(0)
	return Quotation{
		Units: Int64(units.IntPart()),
		Nano:  int32(nano.IntPart()),
	}
}
