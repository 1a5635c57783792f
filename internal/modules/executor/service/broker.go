package service

import (
	"context"

	"tinkoff_bot/internal/models"

	"github.com/shopspring/decimal"
)

// Broker: то, что исполнителю нужно от брокерского клиента.
type Broker interface {
	AccountID() string

	FindInstrument(ctx context.Context, query string) ([]models.InstrumentShort, error)
	GetInstrumentByFIGI(ctx context.Context, figi string) (models.Instrument, error)
	GetOrderBook(ctx context.Context, figi string, depth int32) (models.OrderBook, error)
	GetLastPrice(ctx context.Context, figi string) (decimal.Decimal, bool, error)

	GetPositions(ctx context.Context) (models.PortfolioPositions, error)

	PostMarketOrder(ctx context.Context, figi string, side models.Side, lots int64) (models.PostedOrder, error)
	GetOrders(ctx context.Context) ([]models.RestingOrder, error)
	CancelOrder(ctx context.Context, orderID string) error

	PostStopOrder(ctx context.Context, req models.StopOrderRequest) (string, error)
	GetStopOrders(ctx context.Context) ([]models.RestingOrder, error)
	CancelStopOrder(ctx context.Context, stopOrderID string) error
}

// SettingsSource отдаёт актуальные настройки (перечитываются при каждом обращении).
type SettingsSource interface {
	Get() models.BotSettings
}

// EventLogger: аудит. Ошибки записи остаются внутри реализации.
type EventLogger interface {
	Log(ctx context.Context, ev models.Event)
}
