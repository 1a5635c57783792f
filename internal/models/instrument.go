package models

import "github.com/shopspring/decimal"

type Instrument struct {
	FIGI              string
	Ticker            string
	ClassCode         string
	Name              string
	Currency          string
	Lot               int64
	MinPriceIncrement decimal.Decimal
	TradeAvailable    bool
}

// InstrumentShort: строка из поиска инструментов.
type InstrumentShort struct {
	FIGI           string
	Ticker         string
	ClassCode      string
	Name           string
	InstrumentType string
	TradeAvailable bool
}

type OrderBook struct {
	FIGI      string
	Bids      []decimal.Decimal
	Asks      []decimal.Decimal
	LastPrice decimal.Decimal
}

type Money struct {
	Currency string
	Amount   decimal.Decimal
}

// FuturesHolding: сырое состояние фьючерса: свободная и заблокированная заявками части.
type FuturesHolding struct {
	FIGI    string
	Balance int64
	Blocked int64
}

func (h FuturesHolding) Net() int64 { return h.Balance + h.Blocked }

type PortfolioPositions struct {
	Money   []Money
	Futures []FuturesHolding
}

type Account struct {
	ID     string
	Name   string
	Type   string
	Status string
}

// TradeEvent: сделка по счёту из стрима (используется только как сигнал "что-то исполнилось").
type TradeEvent struct {
	FIGI      string
	OrderID   string
	Direction string
}
