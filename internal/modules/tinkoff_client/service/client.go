package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tinkoff_bot/internal/metrics"
	"tinkoff_bot/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	prodRESTURL      = "https://invest-public-api.tinkoff.ru/rest/"
	sandboxRESTURL   = "https://sandbox-invest-public-api.tinkoff.ru/rest/"
	prodStreamURL    = "wss://invest-public-api.tinkoff.ru/ws/"
	sandboxStreamURL = "wss://sandbox-invest-public-api.tinkoff.ru/ws/"

	// все методы REST-шлюза живут под этим префиксом
	contractPrefix = "tinkoff.public.invest.api.contract.v1."
	appName        = "tinkoff-bot"
)

// Client: REST-клиент Tinkoff Invest (grpc-gateway JSON).
type Client struct {
	http      *http.Client
	wsDialer  *websocket.Dialer
	limiter   *rate.Limiter
	baseURL   string
	streamURL string
	token     string
	accountID string
}

type Options struct {
	Token     string
	AccountID string
	Sandbox   bool
	BaseURL   string
	StreamURL string
	RPS       int
	Timeout   time.Duration
}

func NewClient(cfg *config.Config) *Client {
	return New(Options{
		Token:     cfg.Tinkoff.Token,
		AccountID: cfg.Tinkoff.AccountID,
		Sandbox:   cfg.Tinkoff.Sandbox,
		BaseURL:   cfg.Tinkoff.BaseURL,
		StreamURL: cfg.Tinkoff.StreamURL,
		RPS:       cfg.Tinkoff.RPS,
		Timeout:   cfg.Tinkoff.CallTimeout,
	})
}

func New(opts Options) *Client {
	baseURL := opts.BaseURL
	streamURL := opts.StreamURL
	if baseURL == "" {
		baseURL = prodRESTURL
		if opts.Sandbox {
			baseURL = sandboxRESTURL
		}
	}
	if streamURL == "" {
		streamURL = prodStreamURL
		if opts.Sandbox {
			streamURL = sandboxStreamURL
		}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if !strings.HasSuffix(streamURL, "/") {
		streamURL += "/"
	}

	rps := opts.RPS
	if rps <= 0 {
		rps = 10
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		wsDialer:  &websocket.Dialer{HandshakeTimeout: timeout, Subprotocols: []string{"json"}},
		limiter:   rate.NewLimiter(rate.Limit(rps), rps),
		baseURL:   baseURL,
		streamURL: streamURL,
		token:     opts.Token,
		accountID: opts.AccountID,
	}
}

func (c *Client) AccountID() string { return c.accountID }

// call: POST JSON в метод шлюза, например "OrdersService/PostOrder".
func (c *Client) call(ctx context.Context, method string, in, out any) (err error) {
	start := time.Now()
	defer func() { metrics.RecordBrokerCall(method, err, time.Since(start)) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate wait: %w", method, err)
	}

	payload, err := sonic.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s marshal: %w", method, err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+contractPrefix+method,
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("%s new request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-app-name", appName)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s do: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s read body: %w", method, err)
	}

	if resp.StatusCode/100 != 2 {
		return parseAPIError(method, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s decode: %w; body=%s", method, err, string(data))
	}
	return nil
}
