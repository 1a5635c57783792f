package models

import "github.com/shopspring/decimal"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type StopKind string

const (
	StopLoss   StopKind = "stop_loss"
	TakeProfit StopKind = "take_profit"
)

type OrderKind string

const (
	LimitOrder OrderKind = "limit"
	StopOrder  OrderKind = "stop"
)

// PostedOrder: ответ брокера на рыночную заявку.
type PostedOrder struct {
	OrderID       string
	Status        string
	LotsRequested int64
	LotsExecuted  int64
	ExecutedPrice decimal.Decimal
	Message       string
}

type StopOrderRequest struct {
	FIGI      string
	Side      Side
	Lots      int64
	StopPrice decimal.Decimal
	Kind      StopKind
}

// RestingOrder: активная лимитная или стоп-заявка на счёте.
type RestingOrder struct {
	ID   string
	FIGI string
	Kind OrderKind
	Side Side
	Lots int64
}

type CancelCounts struct {
	Limit int
	Stop  int
}

func (c CancelCounts) Add(o CancelCounts) CancelCounts {
	return CancelCounts{Limit: c.Limit + o.Limit, Stop: c.Stop + o.Stop}
}

func (c CancelCounts) Total() int { return c.Limit + c.Stop }

// ProtectiveLeg: одна защитная заявка (SL или один из TP).
type ProtectiveLeg struct {
	Kind    StopKind
	Tag     string // "SL", "TP1", "TP2" ...
	Percent decimal.Decimal
	Price   decimal.Decimal
	Lots    int64
	OrderID string
	Err     string
}

func (l ProtectiveLeg) Placed() bool { return l.Err == "" && l.OrderID != "" }

// OrderResult: итог любой попытки выставить заявку.
// Success=false не гарантирует валидный OrderID.
// Ошибки защитных ног не переворачивают успех входа.
type OrderResult struct {
	Success bool
	Message string
	OrderID string
	Ticker  string
	FIGI    string
	Price   decimal.Decimal
	Lots    int64
	Legs    []ProtectiveLeg
	Details map[string]any
}

func Failed(msg string) OrderResult {
	return OrderResult{Success: false, Message: msg, Details: map[string]any{}}
}

func (r *OrderResult) SetDetail(key string, v any) {
	if r.Details == nil {
		r.Details = make(map[string]any)
	}
	r.Details[key] = v
}
