package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger operations
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total committed ledger operations",
		},
		[]string{"op"}, // deposit|withdrawal|transfer
	)
	OperationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_failed_total",
			Help: "Total rejected or failed ledger operations",
		},
		[]string{"op"},
	)

	// Currency conversion fallbacks (request still succeeds)
	ConversionFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conversion_fallbacks_total",
			Help: "Balance reads answered without the requested currency conversion",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(OperationsFailed)
	prometheus.MustRegister(ConversionFallbacks)
	prometheus.MustRegister(WorkerQueueDepth)
}
