package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vsc",
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of calls to backend services",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"service", "method", "status"})

	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vsc",
		Name:      "backend_errors_total",
		Help:      "Total number of failed backend calls by error kind",
	}, []string{"service", "kind"})

	PollAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vsc",
		Name:      "poll_attempts_total",
		Help:      "Job detail fetches issued by the status poller",
	}, []string{"outcome"})

	ActivePollers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vsc",
		Name:      "active_pollers",
		Help:      "Number of job status pollers currently running",
	})

	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vsc",
		Name:      "active_streams",
		Help:      "Number of cameras with a known active stream job",
	})

	EvidenceCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vsc",
		Name:      "evidence_cache_total",
		Help:      "Evidence proxy lookups by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vsc",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vsc",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
