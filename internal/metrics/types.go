package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	DrainRuns           prometheus.Counter
	ItemsSynced         *prometheus.CounterVec
	SyncFailures        *prometheus.CounterVec
	PendingOperations   prometheus.Gauge
	DrainDuration       prometheus.Histogram
	RankingDuration     prometheus.Histogram
	TournamentsFinished prometheus.Counter
	SlackNotifSent      prometheus.Counter
	SlackNotifFailed    prometheus.Counter
	StartupTimeSeconds  prometheus.Gauge
}
