package service

import (
	"context"
	"fmt"

	"tinkoff_bot/internal/models"
)

func stopOrderType(kind models.StopKind) (string, error) {
	switch kind {
	case models.StopLoss:
		return "STOP_ORDER_TYPE_STOP_LOSS", nil
	case models.TakeProfit:
		return "STOP_ORDER_TYPE_TAKE_PROFIT", nil
	}
	return "", fmt.Errorf("PostStopOrder: unsupported kind=%q", kind)
}

// PostStopOrder: условная заявка (SL или TP), исполняется по рынку, живёт до отмены.
func (c *Client) PostStopOrder(ctx context.Context, req models.StopOrderRequest) (string, error) {
	if req.Lots <= 0 {
		return "", fmt.Errorf("PostStopOrder: lots <= 0")
	}
	if !req.StopPrice.IsPositive() {
		return "", fmt.Errorf("PostStopOrder: stop price <= 0")
	}
	typ, err := stopOrderType(req.Kind)
	if err != nil {
		return "", err
	}

	direction := "STOP_ORDER_DIRECTION_SELL"
	if req.Side == models.Buy {
		direction = "STOP_ORDER_DIRECTION_BUY"
	}

	var r postStopOrderResponse
	err = c.call(ctx, "StopOrdersService/PostStopOrder", postStopOrderRequest{
		FIGI:           req.FIGI,
		Quantity:       Int64(req.Lots),
		StopPrice:      QuotationFromDecimal(req.StopPrice),
		Direction:      direction,
		AccountID:      c.accountID,
		ExpirationType: "STOP_ORDER_EXPIRATION_TYPE_GOOD_TILL_CANCEL",
		StopOrderType:  typ,
	}, &r)
	if err != nil {
		return "", err
	}
	if r.StopOrderID == "" {
		return "", fmt.Errorf("PostStopOrder: empty stopOrderId")
	}
	return r.StopOrderID, nil
}

func (c *Client) GetStopOrders(ctx context.Context) ([]models.RestingOrder, error) {
	var r stopOrdersResponse
	if err := c.call(ctx, "StopOrdersService/GetStopOrders", accountRequest{AccountID: c.accountID}, &r); err != nil {
		return nil, err
	}
	out := make([]models.RestingOrder, 0, len(r.StopOrders))
	for _, o := range r.StopOrders {
		out = append(out, models.RestingOrder{
			ID:   o.StopOrderID,
			FIGI: o.FIGI,
			Kind: models.StopOrder,
			Side: sideFromDirection(o.Direction),
			Lots: int64(o.LotsRequested),
		})
	}
	return out, nil
}

func (c *Client) CancelStopOrder(ctx context.Context, stopOrderID string) error {
	return c.call(ctx, "StopOrdersService/CancelStopOrder", cancelStopOrderRequest{
		AccountID:   c.accountID,
		StopOrderID: stopOrderID,
	}, nil)
}
