package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersSigned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polydesk_orders_signed_total",
		Help: "The total number of orders signed",
	}, []string{"schema", "side"})

	Deposits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polydesk_deposits_total",
		Help: "Deposit sessions by terminal state",
	}, []string{"mode", "result"})

	Withdrawals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polydesk_withdrawals_total",
		Help: "Withdrawal sessions by terminal state",
	}, []string{"result"})

	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polydesk_stream_reconnects_total",
		Help: "Websocket reconnect attempts",
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polydesk_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
