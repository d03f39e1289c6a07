package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── HTTP surface ────────────────────────────────────────────────────────────

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pueue_webui",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests handled, labelled by route and status code.",
	}, []string{"route", "status"})

	// ─── Status cache ────────────────────────────────────────────────────────────

	StatusCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pueue_webui",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Status requests served from the cache within the TTL.",
	})

	StatusCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pueue_webui",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Status requests that had to fetch from the daemon.",
	})

	// ─── Daemon backend ──────────────────────────────────────────────────────────

	DaemonRoundTripSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pueue_webui",
		Subsystem: "daemon",
		Name:      "roundtrip_seconds",
		Help:      "Wire round-trip time per protocol request, connection setup included.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"request"})

	FallbackActivations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pueue_webui",
		Subsystem: "daemon",
		Name:      "cli_fallback_total",
		Help:      "Operations that fell back to the pueue CLI after a network failure.",
	})

	// ─── Status poller ───────────────────────────────────────────────────────────

	GroupTasks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pueue_webui",
		Subsystem: "poller",
		Name:      "group_tasks",
		Help:      "Tasks per group and state as of the last poll.",
	}, []string{"group", "state"})

	DigestChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pueue_webui",
		Subsystem: "poller",
		Name:      "digest_changes_total",
		Help:      "Polls whose snapshot digest differed from the previous poll.",
	})
)
