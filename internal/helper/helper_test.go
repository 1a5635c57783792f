package helper

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundDownToTick(t *testing.T) {
	cases := []struct {
		name string
		px   string
		tick string
		want string
	}{
		{"already on grid", "250.5", "0.5", "250.5"},
		{"between ticks", "248.7249", "0.01", "248.72"},
		{"coarse tick", "101397", "5", "101395"},
		{"tick bigger than price", "0.3", "1", "0"},
		{"zero tick untouched", "12.345", "0", "12.345"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RoundDownToTick(decimal.RequireFromString(tc.px), decimal.RequireFromString(tc.tick))
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestRoundDownToTick_Property(t *testing.T) {
	ticks := []string{"0.01", "0.02", "0.5", "1", "5", "0.0001"}
	for _, tk := range ticks {
		tick := decimal.RequireFromString(tk)
		for i := 0; i < 500; i++ {
			raw := decimal.NewFromInt(int64(i*7919 + 13)).Div(decimal.NewFromInt(97))
			got := RoundDownToTick(raw, tick)

			assert.True(t, got.LessThanOrEqual(raw), "%s > %s", got, raw)
			assert.False(t, got.IsNegative())
			assert.True(t, got.Mod(tick).IsZero(), "%s not multiple of %s", got, tick)
			assert.True(t, raw.Sub(got).LessThan(tick))
		}
	}
}

func TestTruncateMoney(t *testing.T) {
	assert.Equal(t, "30000.99", TruncateMoney(decimal.RequireFromString("30000.999")).String())
	assert.Equal(t, "1.5", TruncateMoney(decimal.RequireFromString("1.5")).String())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "100 000.00", FormatMoney(decimal.NewFromInt(100000)))
	assert.Equal(t, "999.50", FormatMoney(decimal.RequireFromString("999.5")))
	assert.Equal(t, "-1 234.10", FormatMoney(decimal.RequireFromString("-1234.1")))
	assert.Equal(t, "100 000.55", FormatMoney(decimal.RequireFromString("100000.559")))
}

func TestNormTicker(t *testing.T) {
	assert.Equal(t, "GAZP", NormTicker("  gazp "))
}
