package models

import "time"

const (
	EventTrade           = "trade"
	EventClose           = "close_position"
	EventProtectiveOrder = "protective_order"
	EventCancelOrders    = "cancel_orders"
	EventPositionClosed  = "position_closed"
	EventAutoLiquidation = "auto_liquidation"
	EventSettings        = "settings_update"
	EventWebhook         = "webhook"
	EventError           = "error"
)

// Event: запись аудита: тип, опционально тикер, детали и человекочитаемое сообщение.
type Event struct {
	Time    time.Time
	Type    string
	Symbol  string
	Details map[string]any
	Message string
}
