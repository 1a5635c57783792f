package service

import (
	"context"

	"tinkoff_bot/internal/models"

	"github.com/shopspring/decimal"
)

func (c *Client) GetOrderBook(ctx context.Context, figi string, depth int32) (models.OrderBook, error) {
	var r orderBookResponse
	if err := c.call(ctx, "MarketDataService/GetOrderBook", orderBookRequest{FIGI: figi, Depth: depth}, &r); err != nil {
		return models.OrderBook{}, err
	}

	book := models.OrderBook{
		FIGI:      figi,
		Bids:      make([]decimal.Decimal, 0, len(r.Bids)),
		Asks:      make([]decimal.Decimal, 0, len(r.Asks)),
		LastPrice: r.LastPrice.Decimal(),
	}
	for _, b := range r.Bids {
		book.Bids = append(book.Bids, b.Price.Decimal())
	}
	for _, a := range r.Asks {
		book.Asks = append(book.Asks, a.Price.Decimal())
	}
	return book, nil
}

// GetLastPrice: цена последней сделки; false, если брокер её не отдал.
func (c *Client) GetLastPrice(ctx context.Context, figi string) (decimal.Decimal, bool, error) {
	var r lastPricesResponse
	if err := c.call(ctx, "MarketDataService/GetLastPrices", lastPricesRequest{FIGI: []string{figi}}, &r); err != nil {
		return decimal.Zero, false, err
	}
	for _, lp := range r.LastPrices {
		if lp.FIGI == figi && !lp.Price.IsZero() {
			return lp.Price.Decimal(), true, nil
		}
	}
	return decimal.Zero, false, nil
}
