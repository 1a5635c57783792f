package service

import (
	"context"
	"fmt"

	"tinkoff_bot/internal/models"
)

func (c *Client) FindInstrument(ctx context.Context, query string) ([]models.InstrumentShort, error) {
	var r findInstrumentResponse
	err := c.call(ctx, "InstrumentsService/FindInstrument", findInstrumentRequest{Query: query}, &r)
	if err != nil {
		return nil, err
	}

	out := make([]models.InstrumentShort, 0, len(r.Instruments))
	for _, in := range r.Instruments {
		out = append(out, models.InstrumentShort{
			FIGI:           in.FIGI,
			Ticker:         in.Ticker,
			ClassCode:      in.ClassCode,
			Name:           in.Name,
			InstrumentType: in.InstrumentType,
			TradeAvailable: in.APITradeAvailableFlag,
		})
	}
	return out, nil
}

func (c *Client) GetInstrumentByFIGI(ctx context.Context, figi string) (models.Instrument, error) {
	var r instrumentResponse
	err := c.call(ctx, "InstrumentsService/GetInstrumentBy", instrumentRequest{
		IDType: "INSTRUMENT_ID_TYPE_FIGI",
		ID:     figi,
	}, &r)
	if err != nil {
		return models.Instrument{}, err
	}

	in := r.Instrument
	if in.FIGI == "" {
		return models.Instrument{}, fmt.Errorf("GetInstrumentBy: empty instrument for %s", figi)
	}
	lot := int64(in.Lot)
	if lot < 1 {
		lot = 1
	}
	return models.Instrument{
		FIGI:              in.FIGI,
		Ticker:            in.Ticker,
		ClassCode:         in.ClassCode,
		Name:              in.Name,
		Currency:          in.Currency,
		Lot:               lot,
		MinPriceIncrement: in.MinPriceIncrement.Decimal(),
		TradeAvailable:    in.APITradeAvailableFlag,
	}, nil
}
