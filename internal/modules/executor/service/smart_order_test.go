package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tinkoff_bot/internal/models"
	tinkoff "tinkoff_bot/internal/modules/tinkoff_client/service"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(b *fakeBroker, s models.BotSettings) (*Executor, *recordedEvents) {
	ev := &recordedEvents{}
	e := New(b, staticSettings{s: s}, ev, Options{
		BaseCurrency:  "rub",
		CallTimeout:   time.Second,
		SettleTimeout: 50 * time.Millisecond,
		SettlePoll:    time.Millisecond,
	})
	return e, ev
}

func gazpBroker() *fakeBroker {
	b := newFakeBroker()
	b.addInstrument("GAZP", "FUTGAZP", 1, "0.01")
	b.setBook("FUTGAZP", "124.9", "125.1")
	b.fillPrice = d("125")
	b.money = []models.Money{{Currency: "rub", Amount: d("100000")}}
	return b
}

func sumTP(legs []models.ProtectiveLeg) int64 {
	var n int64
	for _, l := range legs {
		if l.Kind == models.TakeProfit {
			n += l.Lots
		}
	}
	return n
}

func TestExecuteSmartOrder_RiskSizing(t *testing.T) {
	b := newFakeBroker()
	b.addInstrument("SBER", "FUTSBER", 1, "0.01")
	b.setBook("FUTSBER", "249.9", "250.1")
	b.fillPrice = d("250")
	b.money = []models.Money{{Currency: "rub", Amount: d("100000")}, {Currency: "usd", Amount: d("500")}}

	e, ev := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "sber", Direction: models.Long})
	require.True(t, res.Success, res.Message)

	require.Len(t, b.market, 1)
	assert.Equal(t, marketCall{FIGI: "FUTSBER", Side: models.Buy, Lots: 120}, b.market[0])
	assert.Equal(t, int64(120), res.Lots)
	assert.Equal(t, "SBER", res.Ticker)

	require.Len(t, res.Legs, 4)
	assert.Equal(t, "SL", res.Legs[0].Tag)
	assert.Equal(t, "248.72", res.Legs[0].Price.String())
	assert.Equal(t, int64(120), res.Legs[0].Lots)
	assert.Equal(t, int64(120), sumTP(res.Legs))

	for _, req := range b.stopReqs {
		assert.Equal(t, models.Sell, req.Side)
	}
	assert.Len(t, ev.byType(models.EventTrade), 1)
	assert.Len(t, ev.byType(models.EventProtectiveOrder), 4)
}

func TestExecuteSmartOrder_RiskOverride(t *testing.T) {
	b := newFakeBroker()
	b.addInstrument("SBER", "FUTSBER", 1, "0.01")
	b.setBook("FUTSBER", "250", "250")
	b.fillPrice = d("250")
	b.money = []models.Money{{Currency: "rub", Amount: d("100000")}}

	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{
		Ticker:            "SBER",
		Direction:         models.Short,
		RiskPercent:       optional.Some(d("10")),
		TakeProfitPercent: optional.Some(d("2")),
	})
	require.True(t, res.Success, res.Message)
	require.Len(t, b.market, 1)
	assert.Equal(t, int64(40), b.market[0].Lots)

	// явный тейк: одна нога на весь объём
	require.Len(t, res.Legs, 2)
	assert.Equal(t, "TP", res.Legs[1].Tag)
	assert.Equal(t, int64(40), res.Legs[1].Lots)
	assert.Equal(t, "245", res.Legs[1].Price.String())
	assert.Equal(t, models.Buy, b.stopReqs[0].Side)
}

func TestExecuteSmartOrder_FlipClosesOpposingFirst(t *testing.T) {
	b := gazpBroker()
	b.setHolding("FUTGAZP", 1, 2) // long 3: один свободный, два под заявками
	b.orders = []models.RestingOrder{
		{ID: "lim-gazp", FIGI: "FUTGAZP", Kind: models.LimitOrder},
		{ID: "lim-other", FIGI: "FUTSBER", Kind: models.LimitOrder},
	}
	b.stops = []models.RestingOrder{{ID: "stop-gazp", FIGI: "FUTGAZP", Kind: models.StopOrder}}

	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", Direction: models.Short, Lots: 5})
	require.True(t, res.Success, res.Message)

	require.Len(t, b.market, 2)
	assert.Equal(t, marketCall{FIGI: "FUTGAZP", Side: models.Sell, Lots: 3}, b.market[0])
	assert.Equal(t, marketCall{FIGI: "FUTGAZP", Side: models.Sell, Lots: 5}, b.market[1])

	assert.ElementsMatch(t, []string{"lim-gazp"}, b.cancelledOrders)
	assert.ElementsMatch(t, []string{"stop-gazp"}, b.cancelledStops)

	// заявки по старой позиции сняты до закрывающего ордера
	assert.Equal(t, []string{"cancel lim-gazp", "cancel stop-gazp", "market SELL FUTGAZP 3", "market SELL FUTGAZP 5"}, b.seq[:4])

	var slLots int64
	for _, req := range b.stopReqs {
		assert.Equal(t, models.Buy, req.Side)
		if req.Kind == models.StopLoss {
			slLots += req.Lots
		}
	}
	assert.Equal(t, int64(5), slLots)
	assert.Equal(t, int64(5), sumTP(res.Legs))
	assert.Equal(t, []int64{2, 2, 1}, []int64{res.Legs[1].Lots, res.Legs[2].Lots, res.Legs[3].Lots})

	assert.Equal(t, int64(-5), b.holdings["FUTGAZP"].Net())
	assert.Equal(t, int64(3), res.Details["closed_opposing_lots"])
}

func TestExecuteSmartOrder_FailedOpposingCloseBlocksEntry(t *testing.T) {
	b := gazpBroker()
	b.setHolding("FUTGAZP", 3, 0)
	b.marketErr = func(n int, c marketCall) error {
		return &tinkoff.APIError{Method: "OrdersService/PostOrder", HTTPStatus: 400, Message: "instrument halted"}
	}

	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", Direction: models.Short, Lots: 5})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "instrument halted")
	assert.Len(t, b.market, 1)
	assert.Empty(t, b.stopReqs)
}

func TestExecuteSmartOrder_SettleTimeout(t *testing.T) {
	b := gazpBroker()
	b.setHolding("FUTGAZP", 3, 0)
	b.applyFills = false // брокер так и не показал закрытие

	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", Direction: models.Short, Lots: 5})
	assert.False(t, res.Success)
	assert.Len(t, b.market, 1)
	assert.Empty(t, b.stopReqs)
}

func TestExecuteSmartOrder_CloseOnly_NothingToClose(t *testing.T) {
	b := gazpBroker()
	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", CloseOnly: true})
	assert.True(t, res.Success)
	assert.Equal(t, true, res.Details["nothing_to_close"])
	assert.Empty(t, b.market)
	assert.Empty(t, b.cancelledOrders)
}

func TestExecuteSmartOrder_CloseOnly_Short(t *testing.T) {
	b := gazpBroker()
	b.setHolding("FUTGAZP", -4, 0)
	e, ev := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", CloseOnly: true})
	require.True(t, res.Success, res.Message)
	require.Len(t, b.market, 1)
	assert.Equal(t, marketCall{FIGI: "FUTGAZP", Side: models.Buy, Lots: 4}, b.market[0])
	assert.Empty(t, b.stopReqs)
	assert.Len(t, ev.byType(models.EventClose), 1)
}

func TestExecuteSmartOrder_ShortMarginRephrased(t *testing.T) {
	b := gazpBroker()
	b.marketErr = func(n int, c marketCall) error {
		return &tinkoff.APIError{HTTPStatus: 400, Code: 3, Message: "30042", Description: "Not enough assets for a margin trade"}
	}
	e, ev := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", Direction: models.Short, Lots: 1})
	assert.False(t, res.Success)
	assert.Equal(t, shortMarginMessage, res.Message)
	assert.Len(t, ev.byType(models.EventError), 1)
}

func TestExecuteSmartOrder_ProtectiveFailureKeepsEntry(t *testing.T) {
	b := gazpBroker()
	b.stopErr = func(req models.StopOrderRequest) error {
		if req.Kind == models.StopLoss {
			return errors.New("stop rejected")
		}
		return nil
	}
	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", Direction: models.Long, Lots: 10})
	require.True(t, res.Success)
	require.Len(t, res.Legs, 4)
	assert.False(t, res.Legs[0].Placed())
	assert.Equal(t, "stop rejected", res.Legs[0].Err)
	for _, l := range res.Legs[1:] {
		assert.True(t, l.Placed())
	}
	assert.Equal(t, []int64{3, 3, 4}, []int64{res.Legs[1].Lots, res.Legs[2].Lots, res.Legs[3].Lots})
	assert.Contains(t, res.Message, "SL не выставлен")
}

func TestExecuteSmartOrder_InsufficientAmount(t *testing.T) {
	b := gazpBroker()
	b.money = []models.Money{{Currency: "rub", Amount: d("100")}}
	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", Direction: models.Long})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "125.00")
	assert.Empty(t, b.market)
}

func TestExecuteSmartOrder_UnknownTicker(t *testing.T) {
	b := gazpBroker()
	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "NOPE", Direction: models.Long, Lots: 1})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "NOPE")
	assert.Empty(t, b.market)
}

func TestExecuteSmartOrder_PanicBecomesResult(t *testing.T) {
	b := gazpBroker()
	b.panicOnBook = true
	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", Direction: models.Long})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "order book exploded")
}

func TestExecuteSmartOrder_BlockedBeforeAutoLiquidation(t *testing.T) {
	b := gazpBroker()
	b.setHolding("FUTGAZP", 2, 0)

	s := models.DefaultSettings()
	s.AutoLiquidation.Enabled = true
	s.AutoLiquidation.Time = "23:40"
	s.AutoLiquidation.BlockMinutes = 30
	s.AutoLiquidation.Weekdays = []int{0, 1, 2, 3, 4, 5, 6}

	e, _ := newTestExecutor(b, s)
	msk := time.FixedZone("MSK", 3*60*60)
	e.opts.Location = msk
	e.now = func() time.Time { return time.Date(2026, 10, 19, 23, 20, 0, 0, msk) }

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", Direction: models.Long, Lots: 1})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "23:40")
	assert.Empty(t, b.market)

	// закрытие в окне разрешено
	res = e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", CloseOnly: true})
	assert.True(t, res.Success, res.Message)
	assert.Len(t, b.market, 1)
}

func TestExecuteSmartOrder_ZeroFillPriceUsesReference(t *testing.T) {
	b := gazpBroker()
	b.fillPrice = decimal.Zero
	e, _ := newTestExecutor(b, models.DefaultSettings())

	res := e.ExecuteSmartOrder(context.Background(), SmartOrder{Ticker: "GAZP", Direction: models.Long, Lots: 1})
	require.True(t, res.Success)
	assert.Equal(t, "125", res.Price.String())
	require.NotEmpty(t, res.Legs)
}

func TestCloseAll(t *testing.T) {
	b := gazpBroker()
	b.addInstrument("SBER", "FUTSBER", 1, "0.01")
	b.setHolding("FUTGAZP", 3, 0)
	b.setHolding("FUTSBER", -2, 0)
	b.orders = []models.RestingOrder{{ID: "lim-1", FIGI: "FUTLKOH", Kind: models.LimitOrder}}
	b.stops = []models.RestingOrder{{ID: "stop-1", FIGI: "FUTLKOH", Kind: models.StopOrder}}
	b.money = []models.Money{{Currency: "rub", Amount: d("123456.78")}}

	e, _ := newTestExecutor(b, models.DefaultSettings())

	rep := e.CloseAll(context.Background())
	assert.Equal(t, 2, rep.Closed)
	assert.Empty(t, rep.Failures)
	assert.Equal(t, models.CancelCounts{Limit: 1, Stop: 1}, rep.Cancelled)
	assert.Equal(t, "123456.78", rep.Balance.String())

	net, err := e.NetQuantities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, net)

	summary := rep.Summary()
	assert.Contains(t, summary, "Закрыто позиций: 2")
	assert.Contains(t, summary, "123 456.78 RUB")
}
