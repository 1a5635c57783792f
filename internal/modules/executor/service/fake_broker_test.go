package service

import (
	"context"
	"fmt"
	"sync"

	"tinkoff_bot/internal/models"

	"github.com/shopspring/decimal"
)

type marketCall struct {
	FIGI string
	Side models.Side
	Lots int64
}

// fakeBroker: брокер в памяти: позиции меняются от рыночных заявок, если applyFills.
type fakeBroker struct {
	mu sync.Mutex

	search      map[string][]models.InstrumentShort
	instruments map[string]models.Instrument
	books       map[string]models.OrderBook
	last        map[string]decimal.Decimal
	money       []models.Money
	holdings    map[string]*models.FuturesHolding
	orders      []models.RestingOrder
	stops       []models.RestingOrder

	applyFills bool
	fillPrice  decimal.Decimal

	marketErr    func(n int, c marketCall) error
	stopErr      func(req models.StopOrderRequest) error
	cancelErr    func(id string) error
	positionsErr error
	panicOnBook  bool

	findCalls       int
	market          []marketCall
	stopReqs        []models.StopOrderRequest
	cancelledOrders []string
	cancelledStops  []string
	seq             []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		search:      map[string][]models.InstrumentShort{},
		instruments: map[string]models.Instrument{},
		books:       map[string]models.OrderBook{},
		last:        map[string]decimal.Decimal{},
		holdings:    map[string]*models.FuturesHolding{},
		applyFills:  true,
	}
}

func (f *fakeBroker) addInstrument(ticker, figi string, lot int64, tick string) {
	f.search[ticker] = append(f.search[ticker], models.InstrumentShort{FIGI: figi, Ticker: ticker, TradeAvailable: true})
	f.instruments[figi] = models.Instrument{
		FIGI:              figi,
		Ticker:            ticker,
		Lot:               lot,
		MinPriceIncrement: decimal.RequireFromString(tick),
		TradeAvailable:    true,
	}
}

func (f *fakeBroker) setHolding(figi string, balance, blocked int64) {
	f.holdings[figi] = &models.FuturesHolding{FIGI: figi, Balance: balance, Blocked: blocked}
}

func (f *fakeBroker) setBook(figi, bid, ask string) {
	f.books[figi] = models.OrderBook{
		FIGI: figi,
		Bids: []decimal.Decimal{decimal.RequireFromString(bid)},
		Asks: []decimal.Decimal{decimal.RequireFromString(ask)},
	}
}

func (f *fakeBroker) AccountID() string { return "acc-test" }

func (f *fakeBroker) FindInstrument(ctx context.Context, query string) ([]models.InstrumentShort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	return f.search[query], nil
}

func (f *fakeBroker) GetInstrumentByFIGI(ctx context.Context, figi string) (models.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.instruments[figi]
	if !ok {
		return models.Instrument{}, fmt.Errorf("instrument %s not found", figi)
	}
	return in, nil
}

func (f *fakeBroker) GetOrderBook(ctx context.Context, figi string, depth int32) (models.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnBook {
		panic("order book exploded")
	}
	return f.books[figi], nil
}

func (f *fakeBroker) GetLastPrice(ctx context.Context, figi string) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.last[figi]
	return p, ok, nil
}

func (f *fakeBroker) GetPositions(ctx context.Context) (models.PortfolioPositions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.positionsErr != nil {
		return models.PortfolioPositions{}, f.positionsErr
	}
	out := models.PortfolioPositions{Money: append([]models.Money(nil), f.money...)}
	for _, h := range f.holdings {
		out.Futures = append(out.Futures, *h)
	}
	return out, nil
}

func (f *fakeBroker) PostMarketOrder(ctx context.Context, figi string, side models.Side, lots int64) (models.PostedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := marketCall{FIGI: figi, Side: side, Lots: lots}
	n := len(f.market)
	f.market = append(f.market, c)
	f.seq = append(f.seq, fmt.Sprintf("market %s %s %d", side, figi, lots))

	if f.marketErr != nil {
		if err := f.marketErr(n, c); err != nil {
			return models.PostedOrder{}, err
		}
	}
	if f.applyFills {
		h, ok := f.holdings[figi]
		if !ok {
			h = &models.FuturesHolding{FIGI: figi}
			f.holdings[figi] = h
		}
		if side == models.Buy {
			h.Balance += lots
		} else {
			h.Balance -= lots
		}
	}
	return models.PostedOrder{
		OrderID:       fmt.Sprintf("m-%d", n+1),
		Status:        "EXECUTION_REPORT_STATUS_FILL",
		LotsRequested: lots,
		LotsExecuted:  lots,
		ExecutedPrice: f.fillPrice,
	}, nil
}

func (f *fakeBroker) GetOrders(ctx context.Context) ([]models.RestingOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RestingOrder(nil), f.orders...), nil
}

func (f *fakeBroker) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		if err := f.cancelErr(orderID); err != nil {
			return err
		}
	}
	f.cancelledOrders = append(f.cancelledOrders, orderID)
	f.seq = append(f.seq, "cancel "+orderID)
	return nil
}

func (f *fakeBroker) PostStopOrder(ctx context.Context, req models.StopOrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopReqs = append(f.stopReqs, req)
	f.seq = append(f.seq, fmt.Sprintf("stop %s %s %d", req.Kind, req.FIGI, req.Lots))
	if f.stopErr != nil {
		if err := f.stopErr(req); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("s-%d", len(f.stopReqs)), nil
}

func (f *fakeBroker) GetStopOrders(ctx context.Context) ([]models.RestingOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RestingOrder(nil), f.stops...), nil
}

func (f *fakeBroker) CancelStopOrder(ctx context.Context, stopOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		if err := f.cancelErr(stopOrderID); err != nil {
			return err
		}
	}
	f.cancelledStops = append(f.cancelledStops, stopOrderID)
	f.seq = append(f.seq, "cancel "+stopOrderID)
	return nil
}

type staticSettings struct{ s models.BotSettings }

func (s staticSettings) Get() models.BotSettings { return s.s.Clone() }

type recordedEvents struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordedEvents) Log(ctx context.Context, ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordedEvents) byType(typ string) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
