package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSizeByRisk(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		risk    string
		price   string
		lot     int64
		want    int64
	}{
		{name: "30% of 100k at 250", balance: "100000", risk: "0.3", price: "250", lot: 1, want: 120},
		{name: "lot multiplier", balance: "100000", risk: "0.3", price: "250", lot: 10, want: 12},
		{name: "floor", balance: "100000", risk: "0.3", price: "251", lot: 1, want: 119},
		{name: "money truncated to kopecks", balance: "1000.999", risk: "0.5", price: "500.49", lot: 1, want: 1},
		{name: "exact one lot", balance: "1000", risk: "0.25", price: "250", lot: 1, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SizeByRisk(d(tt.balance), d(tt.risk), d(tt.price), tt.lot)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// без скрытого состояния
			again, err := SizeByRisk(d(tt.balance), d(tt.risk), d(tt.price), tt.lot)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestSizeByRisk_Insufficient(t *testing.T) {
	_, err := SizeByRisk(d("1000"), d("0.3"), d("500"), 1)

	var sizing *SizingError
	require.ErrorAs(t, err, &sizing)
	assert.Equal(t, "300", sizing.Amount.String())
	assert.Equal(t, "500", sizing.PricePerLot.String())

	msg := userMessage("GAZP", err)
	assert.Contains(t, msg, "300.00")
	assert.Contains(t, msg, "500.00")
}

func TestSizeByRisk_NoPrice(t *testing.T) {
	_, err := SizeByRisk(d("1000"), d("0.3"), decimal.Zero, 1)
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestSizeByExplicitLots(t *testing.T) {
	lots, err := SizeByExplicitLots(5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), lots)

	_, err = SizeByExplicitLots(0)
	assert.ErrorIs(t, err, ErrInvalidLots)
}
