package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics. A nil *Registry is valid and
// records nothing, so components can run unmetered in tests.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	providerRequests  *prometheus.CounterVec
	fallbackExhausted *prometheus.CounterVec
	refreshCycles     prometheus.Counter
	refreshDuration   prometheus.Histogram
	liveQuotes        prometheus.Gauge
	calibrations      *prometheus.CounterVec
	tradesApplied     *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundquant_provider_requests_total",
			Help: "Provider requests by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)
	r.fallbackExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundquant_fallback_exhausted_total",
			Help: "Operations for which every provider strategy failed",
		},
		[]string{"operation"},
	)
	r.refreshCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fundquant_refresh_cycles_total",
			Help: "Total number of refresh cycles completed",
		},
	)
	r.refreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fundquant_refresh_duration_seconds",
			Help:    "Refresh cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.liveQuotes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fundquant_live_quotes",
			Help: "Number of codes with a live quote",
		},
	)
	r.calibrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundquant_calibrations_total",
			Help: "Factor calibration runs by outcome",
		},
		[]string{"outcome"},
	)
	r.tradesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundquant_trades_total",
			Help: "Ledger trades by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	reg.MustRegister(r.providerRequests)
	reg.MustRegister(r.fallbackExhausted)
	reg.MustRegister(r.refreshCycles)
	reg.MustRegister(r.refreshDuration)
	reg.MustRegister(r.liveQuotes)
	reg.MustRegister(r.calibrations)
	reg.MustRegister(r.tradesApplied)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Dec()
}

// RecordProviderRequest records one provider strategy attempt.
func (r *Registry) RecordProviderRequest(provider, operation, outcome string) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(provider, operation, outcome).Inc()
}

// RecordFallbackExhausted records an operation with no surviving strategy.
func (r *Registry) RecordFallbackExhausted(operation string) {
	if r == nil {
		return
	}
	r.fallbackExhausted.WithLabelValues(operation).Inc()
}

// RecordRefreshCycle records a refresh cycle completion.
func (r *Registry) RecordRefreshCycle(duration float64) {
	if r == nil {
		return
	}
	r.refreshCycles.Inc()
	r.refreshDuration.Observe(duration)
}

// SetLiveQuotes sets the live quote gauge.
func (r *Registry) SetLiveQuotes(n int) {
	if r == nil {
		return
	}
	r.liveQuotes.Set(float64(n))
}

// RecordCalibration records a calibration run.
func (r *Registry) RecordCalibration(outcome string) {
	if r == nil {
		return
	}
	r.calibrations.WithLabelValues(outcome).Inc()
}

// RecordTrade records a ledger trade.
func (r *Registry) RecordTrade(kind, outcome string) {
	if r == nil {
		return
	}
	r.tradesApplied.WithLabelValues(kind, outcome).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
