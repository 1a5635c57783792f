package helper

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormTicker: тикеры у брокера в верхнем регистре, без пробелов.
func NormTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// RoundDownToTick: ближайшее кратное шагу цены снизу. Для неположительного шага цена не трогается.
func RoundDownToTick(px, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return px
	}
	steps := px.Div(tick).Floor()
	if steps.IsNegative() {
		steps = decimal.Zero
	}
	return steps.Mul(tick)
}

// TruncateMoney: деньги до копеек, всегда вниз.
func TruncateMoney(v decimal.Decimal) decimal.Decimal {
	return v.Truncate(2)
}

// FormatMoney: "12 345.67" для сообщений в чат. Копейки отбрасываются, не округляются.
func FormatMoney(v decimal.Decimal) string {
	s := TruncateMoney(v).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
