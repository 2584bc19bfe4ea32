package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes used as the "outcome" label
const (
	OutcomeIdle    = "idle"
	OutcomeSynced  = "synced"
	OutcomeAborted = "aborted"
)

var (
	// Poller metrics
	PollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drbridge_poll_cycles_total",
			Help: "Total number of reconciliation cycles by outcome",
		},
		[]string{"outcome"},
	)

	PollCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drbridge_poll_cycle_duration_seconds",
			Help:    "Time to complete one reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RequestsUpserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drbridge_requests_upserted_total",
			Help: "Total number of data requests written to the store by state",
		},
		[]string{"state"},
	)

	// Ledger metrics
	LedgerReadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drbridge_ledger_read_failures_total",
			Help: "Total number of failed WRB contract reads by call",
		},
		[]string{"call"},
	)

	LedgerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drbridge_ledger_call_duration_seconds",
			Help:    "WRB contract call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call"},
	)

	LedgerRequestsCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drbridge_ledger_requests_count",
			Help: "Last observed WRB requestsCount",
		},
	)

	NodeUnreachableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drbridge_node_unreachable_total",
			Help: "Total number of aborted cycles diagnosed as ledger node unreachable",
		},
	)

	// Store metrics
	LastKnownID = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drbridge_last_known_id",
			Help: "Highest data request id of the contiguous stored prefix (-1 when empty)",
		},
	)

	UpsertsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drbridge_upserts_dropped_total",
			Help: "Total number of upserts dropped because the store mailbox was full",
		},
	)

	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drbridge_store_errors_total",
			Help: "Total number of store backend errors by operation",
		},
		[]string{"op"},
	)

	RequestsStored = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drbridge_requests_stored",
			Help: "Number of stored data requests by state",
		},
		[]string{"state"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drbridge_api_requests_total",
			Help: "Total number of HTTP API requests by path and status",
		},
		[]string{"path", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drbridge_api_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(PollCyclesTotal)
	prometheus.MustRegister(PollCycleDuration)
	prometheus.MustRegister(RequestsUpserted)
	prometheus.MustRegister(LedgerReadFailures)
	prometheus.MustRegister(LedgerCallDuration)
	prometheus.MustRegister(LedgerRequestsCount)
	prometheus.MustRegister(NodeUnreachableTotal)
	prometheus.MustRegister(LastKnownID)
	prometheus.MustRegister(UpsertsDropped)
	prometheus.MustRegister(StoreErrors)
	prometheus.MustRegister(RequestsStored)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
