package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		DrainRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "league_drain_runs_total",
			Help: "The total number of times the pending queues were drained.",
		}),
		ItemsSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "league_items_synced_total",
			Help: "The total number of queued operations written to the remote store.",
		}, []string{"category"}),
		SyncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "league_sync_failures_total",
			Help: "The total number of batches that failed and stayed queued.",
		}, []string{"category"}),
		PendingOperations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "league_pending_operations",
			Help: "The number of operations waiting in the local queues.",
		}),
		DrainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "league_drain_duration_seconds",
			Help:    "The duration of a full queue drain.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RankingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "league_ranking_duration_seconds",
			Help:    "The duration of a ranking computation.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		TournamentsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "league_tournaments_finished_total",
			Help: "The total number of tournaments finished by their owner or by expiry.",
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "league_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "league_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "league_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.DrainRuns,
		s.ItemsSynced,
		s.SyncFailures,
		s.PendingOperations,
		s.DrainDuration,
		s.RankingDuration,
		s.TournamentsFinished,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncDrainRuns() {
	s.DrainRuns.Inc()
}

func (s *Service) AddItemsSynced(category string, n int) {
	s.ItemsSynced.WithLabelValues(category).Add(float64(n))
}

func (s *Service) IncSyncFailures(category string) {
	s.SyncFailures.WithLabelValues(category).Inc()
}

func (s *Service) SetPendingOperations(n int) {
	s.PendingOperations.Set(float64(n))
}

func (s *Service) ObserveDrainDuration(duration float64) {
	s.DrainDuration.Observe(duration)
}

func (s *Service) ObserveRankingDuration(duration float64) {
	s.RankingDuration.Observe(duration)
}

func (s *Service) IncTournamentsFinished() {
	s.TournamentsFinished.Inc()
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
