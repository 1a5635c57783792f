package service

// Запросы и ответы REST-шлюза. Поля: ровно то, что читаем.

type findInstrumentRequest struct {
	Query                 string `json:"query"`
	APITradeAvailableFlag bool   `json:"apiTradeAvailableFlag,omitempty"`
}

type findInstrumentResponse struct {
	Instruments []struct {
		FIGI                  string `json:"figi"`
		Ticker                string `json:"ticker"`
		ClassCode             string `json:"classCode"`
		Name                  string `json:"name"`
		InstrumentType        string `json:"instrumentType"`
		APITradeAvailableFlag bool   `json:"apiTradeAvailableFlag"`
	} `json:"instruments"`
}

type instrumentRequest struct {
	IDType    string `json:"idType"`
	ClassCode string `json:"classCode,omitempty"`
	ID        string `json:"id"`
}

type instrumentResponse struct {
	Instrument struct {
		FIGI                  string    `json:"figi"`
		Ticker                string    `json:"ticker"`
		ClassCode             string    `json:"classCode"`
		Name                  string    `json:"name"`
		Currency              string    `json:"currency"`
		Lot                   int32     `json:"lot"`
		MinPriceIncrement     Quotation `json:"minPriceIncrement"`
		APITradeAvailableFlag bool      `json:"apiTradeAvailableFlag"`
	} `json:"instrument"`
}

type orderBookRequest struct {
	FIGI  string `json:"figi"`
	Depth int32  `json:"depth"`
}

type orderBookResponse struct {
	FIGI string `json:"figi"`
	Bids []struct {
		Price    Quotation `json:"price"`
		Quantity Int64     `json:"quantity"`
	} `json:"bids"`
	Asks []struct {
		Price    Quotation `json:"price"`
		Quantity Int64     `json:"quantity"`
	} `json:"asks"`
	LastPrice Quotation `json:"lastPrice"`
}

type lastPricesRequest struct {
	FIGI []string `json:"figi"`
}

type lastPricesResponse struct {
	LastPrices []struct {
		FIGI  string    `json:"figi"`
		Price Quotation `json:"price"`
	} `json:"lastPrices"`
}

type accountRequest struct {
	AccountID string `json:"accountId"`
}

type positionsResponse struct {
	Money   []MoneyValue `json:"money"`
	Blocked []MoneyValue `json:"blocked"`
	Futures []struct {
		FIGI    string `json:"figi"`
		Blocked Int64  `json:"blocked"`
		Balance Int64  `json:"balance"`
	} `json:"futures"`
}

type accountsResponse struct {
	Accounts []struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"accounts"`
}

type postOrderRequest struct {
	FIGI      string `json:"figi"`
	Quantity  Int64  `json:"quantity"`
	Direction string `json:"direction"`
	AccountID string `json:"accountId"`
	OrderType string `json:"orderType"`
	OrderID   string `json:"orderId"`
}

type postOrderResponse struct {
	OrderID               string     `json:"orderId"`
	ExecutionReportStatus string     `json:"executionReportStatus"`
	LotsRequested         Int64      `json:"lotsRequested"`
	LotsExecuted          Int64      `json:"lotsExecuted"`
	ExecutedOrderPrice    MoneyValue `json:"executedOrderPrice"`
	FIGI                  string     `json:"figi"`
	Message               string     `json:"message"`
}

type ordersResponse struct {
	Orders []struct {
		OrderID       string `json:"orderId"`
		FIGI          string `json:"figi"`
		Direction     string `json:"direction"`
		LotsRequested Int64  `json:"lotsRequested"`
		LotsExecuted  Int64  `json:"lotsExecuted"`
	} `json:"orders"`
}

type cancelOrderRequest struct {
	AccountID string `json:"accountId"`
	OrderID   string `json:"orderId"`
}

type postStopOrderRequest struct {
	FIGI           string    `json:"figi"`
	Quantity       Int64     `json:"quantity"`
	StopPrice      Quotation `json:"stopPrice"`
	Direction      string    `json:"direction"`
	AccountID      string    `json:"accountId"`
	ExpirationType string    `json:"expirationType"`
	StopOrderType  string    `json:"stopOrderType"`
}

type postStopOrderResponse struct {
	StopOrderID string `json:"stopOrderId"`
}

type stopOrdersResponse struct {
	StopOrders []struct {
		StopOrderID   string `json:"stopOrderId"`
		FIGI          string `json:"figi"`
		Direction     string `json:"direction"`
		LotsRequested Int64  `json:"lotsRequested"`
	} `json:"stopOrders"`
}

type cancelStopOrderRequest struct {
	AccountID   string `json:"accountId"`
	StopOrderID string `json:"stopOrderId"`
}
