package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tinkoff_bot"

var (
	BrokerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broker_requests_total",
		Help:      "REST calls to the broker by method and outcome.",
	}, []string{"method", "outcome"})

	BrokerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "broker_request_duration_seconds",
		Help:      "Latency of broker REST calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_total",
		Help:      "Submitted orders by kind (market, stop_loss, take_profit) and outcome.",
	}, []string{"kind", "outcome"})

	SmartOrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "smart_orders_total",
		Help:      "Smart order invocations by mode (open, flip, close) and outcome.",
	}, []string{"mode", "outcome"})

	CancelledOrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancelled_orders_total",
		Help:      "Cancelled resting orders by kind (limit, stop).",
	}, []string{"kind"})

	WatcherCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watcher_cycles_total",
		Help:      "Reconciliation poll cycles by outcome.",
	}, []string{"outcome"})

	WatcherFlatTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watcher_flat_positions_total",
		Help:      "Positions observed going flat outside of the bot.",
	})

	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_requests_total",
		Help:      "Webhook requests by action and HTTP status.",
	}, []string{"action", "status"})

	AutoLiquidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auto_liquidations_total",
		Help:      "Scheduled close-all runs.",
	})
)

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func RecordBrokerCall(method string, err error, took time.Duration) {
	BrokerRequestsTotal.WithLabelValues(method, outcome(err == nil)).Inc()
	BrokerRequestDuration.WithLabelValues(method).Observe(took.Seconds())
}

func RecordOrder(kind string, ok bool) {
	OrdersTotal.WithLabelValues(kind, outcome(ok)).Inc()
}

func RecordSmartOrder(mode string, ok bool) {
	SmartOrdersTotal.WithLabelValues(mode, outcome(ok)).Inc()
}

func RecordCancelled(limit, stop int) {
	CancelledOrdersTotal.WithLabelValues("limit").Add(float64(limit))
	CancelledOrdersTotal.WithLabelValues("stop").Add(float64(stop))
}

func RecordWatcherCycle(ok bool, flat int) {
	WatcherCyclesTotal.WithLabelValues(outcome(ok)).Inc()
	WatcherFlatTotal.Add(float64(flat))
}

func RecordWebhook(action string, status int) {
	WebhookRequestsTotal.WithLabelValues(action, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
