package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "casesync_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"path", "method", "status"},
	)

	// SyncRuns tracks sync runs by source and terminal status
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casesync_sync_runs_total",
			Help: "Number of sync runs by source and terminal status",
		},
		[]string{"source", "status"},
	)

	// CasesSynced tracks per-case outcomes during batch processing
	CasesSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casesync_cases_synced_total",
			Help: "Number of cases processed by outcome",
		},
		[]string{"outcome"},
	)

	// BatchDuration tracks how long a single batch takes
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "casesync_batch_duration_seconds",
			Help: "Duration of a single case batch in seconds",
		},
	)

	// SyncPauses tracks pause-and-resume events by reason
	SyncPauses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casesync_sync_pauses_total",
			Help: "Number of cooperative pauses by reason",
		},
		[]string{"reason"},
	)

	// ActiveConnections tracks active connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "casesync_active_connections",
			Help: "Number of active connections",
		},
	)
)
