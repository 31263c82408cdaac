package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricNameSpace = "valueid"

	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the client's collectors on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	connects          *prometheus.CounterVec
	chainReads        *prometheus.CounterVec
	transactions      *prometheus.CounterVec
	apiRequests       *prometheus.CounterVec
	normalizeRejected prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricNameSpace,
				Name:      "wallet_connects_total",
				Help:      "wallet connection attempts by outcome",
			},
			[]string{"result"},
		),
		chainReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricNameSpace,
				Name:      "chain_reads_total",
				Help:      "contract read calls",
			},
			[]string{"method", "result"},
		),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricNameSpace,
				Name:      "transactions_total",
				Help:      "submitted and confirmed contract transactions",
			},
			[]string{"method", "result"},
		),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricNameSpace,
				Name:      "api_requests_total",
				Help:      "REST API requests",
			},
			[]string{"endpoint", "result"},
		),
		normalizeRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: MetricNameSpace,
				Name:      "normalize_rejected_total",
				Help:      "raw asset records rejected as malformed",
			},
		),
	}
	m.registry.MustRegister(
		m.connects,
		m.chainReads,
		m.transactions,
		m.apiRequests,
		m.normalizeRejected,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func (m *Metrics) ObserveConnect(err error) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveChainRead(method string, err error) {
	if m == nil {
		return
	}
	m.chainReads.WithLabelValues(method, result(err)).Inc()
}

func (m *Metrics) ObserveTransaction(method string, err error) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(method, result(err)).Inc()
}

func (m *Metrics) ObserveAPIRequest(endpoint string, err error) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, result(err)).Inc()
}

func (m *Metrics) ObserveRejected(n int) {
	if m == nil || n == 0 {
		return
	}
	m.normalizeRejected.Add(float64(n))
}

// Counter values for tests and diagnostics.

func (m *Metrics) Connects() *prometheus.CounterVec      { return m.connects }
func (m *Metrics) ChainReads() *prometheus.CounterVec    { return m.chainReads }
func (m *Metrics) Transactions() *prometheus.CounterVec  { return m.transactions }
func (m *Metrics) APIRequests() *prometheus.CounterVec   { return m.apiRequests }
func (m *Metrics) NormalizeRejected() prometheus.Counter { return m.normalizeRejected }
