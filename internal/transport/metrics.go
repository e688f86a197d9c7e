package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Exchange outcomes used as metric labels
const (
	outcomeOK           = "ok"
	outcomeEncodeError  = "encode_error"
	outcomeDecodeError  = "decode_error"
	outcomeChannelError = "channel_error"
)

var (
	// ExchangesTotal counts adapter operations by kind and outcome.
	ExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtab_transport_exchanges_total",
			Help: "Total number of table sends and queries",
		},
		[]string{"operation", "outcome"},
	)
	// BytesTotal counts packed table bytes by direction.
	BytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtab_transport_bytes_total",
			Help: "Packed table bytes sent and received",
		},
		[]string{"direction"},
	)
	// ExchangeDuration is the latency of adapter operations.
	ExchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rtab_transport_exchange_duration_seconds",
			Help:    "Table send and query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
