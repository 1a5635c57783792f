package service

import (
	"context"
	"fmt"

	"tinkoff_bot/internal/models"

	"github.com/google/uuid"
)

func orderDirection(side models.Side) string {
	if side == models.Buy {
		return "ORDER_DIRECTION_BUY"
	}
	return "ORDER_DIRECTION_SELL"
}

func sideFromDirection(dir string) models.Side {
	switch dir {
	case "ORDER_DIRECTION_BUY", "STOP_ORDER_DIRECTION_BUY":
		return models.Buy
	}
	return models.Sell
}

// PostMarketOrder: рыночная заявка. orderId: ключ идемпотентности, новый на каждый вызов.
func (c *Client) PostMarketOrder(ctx context.Context, figi string, side models.Side, lots int64) (models.PostedOrder, error) {
	if lots <= 0 {
		return models.PostedOrder{}, fmt.Errorf("PostOrder: lots <= 0")
	}

	var r postOrderResponse
	err := c.call(ctx, "OrdersService/PostOrder", postOrderRequest{
		FIGI:      figi,
		Quantity:  Int64(lots),
		Direction: orderDirection(side),
		AccountID: c.accountID,
		OrderType: "ORDER_TYPE_MARKET",
		OrderID:   uuid.NewString(),
	}, &r)
	if err != nil {
		return models.PostedOrder{}, err
	}
	if r.OrderID == "" {
		return models.PostedOrder{}, fmt.Errorf("PostOrder: empty orderId")
	}
	if r.ExecutionReportStatus == "EXECUTION_REPORT_STATUS_REJECTED" {
		return models.PostedOrder{}, &APIError{
			Method:     "OrdersService/PostOrder",
			HTTPStatus: 200,
			Message:    r.Message,
		}
	}

	return models.PostedOrder{
		OrderID:       r.OrderID,
		Status:        r.ExecutionReportStatus,
		LotsRequested: int64(r.LotsRequested),
		LotsExecuted:  int64(r.LotsExecuted),
		ExecutedPrice: r.ExecutedOrderPrice.Decimal(),
		Message:       r.Message,
	}, nil
}

func (c *Client) GetOrders(ctx context.Context) ([]models.RestingOrder, error) {
	var r ordersResponse
	if err := c.call(ctx, "OrdersService/GetOrders", accountRequest{AccountID: c.accountID}, &r); err != nil {
		return nil, err
	}
	out := make([]models.RestingOrder, 0, len(r.Orders))
	for _, o := range r.Orders {
		out = append(out, models.RestingOrder{
			ID:   o.OrderID,
			FIGI: o.FIGI,
			Kind: models.LimitOrder,
			Side: sideFromDirection(o.Direction),
			Lots: int64(o.LotsRequested - o.LotsExecuted),
		})
	}
	return out, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.call(ctx, "OrdersService/CancelOrder", cancelOrderRequest{
		AccountID: c.accountID,
		OrderID:   orderID,
	}, nil)
}
