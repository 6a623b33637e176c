package http

import (
	"net/http"
	"time"

	"github.com/mauv0809/catch-league/internal/config"
	"github.com/mauv0809/catch-league/internal/league"
	"github.com/mauv0809/catch-league/internal/metrics"
	"github.com/mauv0809/catch-league/internal/notifier"
	"github.com/mauv0809/catch-league/internal/pubsub"
	"github.com/mauv0809/catch-league/internal/ratelimit"
	"github.com/mauv0809/catch-league/internal/reconciler"
)

// writeBurst is the number of writes a user may make back to back before
// WriteRateLimit applies.
const writeBurst = 5

func NewServer(leagueSvc *league.Service, rec *reconciler.Reconciler, metricsSvc metrics.Metrics, metricsHandler http.Handler, counters metrics.CounterStore, cfg config.Config, notifier notifier.Notifier, pubsub pubsub.PubSubClient) *Server {
	limit := cfg.WriteRateLimit
	if limit <= 0 {
		limit = 2
	}
	server := &Server{
		League:         leagueSvc,
		Reconciler:     rec,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Counters:       counters,
		Notifier:       notifier,
		Limiter:        ratelimit.New(limit, writeBurst, 10*time.Minute),
		Cfg:            cfg,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// Writes additionally pass through the per-user rate limiter and slash
	// commands through the Slack signature check.
	writes := []Middleware{paramsMiddleware, s.rateLimitMiddleware}
	slackCommand := []Middleware{paramsMiddleware, s.verifySlackMiddleware}

	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("/leaderboard", Chain(s.LeaderboardHandler(), paramsMiddleware))
	s.Router.Handle("/stats", Chain(s.StatsHandler(), paramsMiddleware))
	s.Router.Handle("/sync", Chain(s.SyncHandler(), paramsMiddleware))
	s.Router.Handle("/sync/status", Chain(s.SyncStatusHandler(), paramsMiddleware))
	s.Router.Handle("/connectivity", Chain(s.ConnectivityHandler(), paramsMiddleware))
	s.Router.Handle("/catches", Chain(s.CatchesHandler(), writes...))
	s.Router.Handle("/tournaments", Chain(s.TournamentsHandler(), writes...))
	s.Router.Handle("/tournaments/action", Chain(s.TournamentActionHandler(), writes...))
	s.Router.Handle("/invites", Chain(s.InvitesHandler(), writes...))
	s.Router.Handle("/invites/respond", Chain(s.InviteRespondHandler(), writes...))
	s.Router.Handle("/pubsub/tournament-finished", Chain(s.TournamentFinishedHandler(), paramsMiddleware))
	s.Router.Handle("/slack/post/leaderboard", Chain(s.PostLeaderboardHandler(), paramsMiddleware))
	s.Router.Handle("/slack/post/stats", Chain(s.PostStatsHandler(), paramsMiddleware))
	s.Router.Handle("/slack/command/leaderboard", Chain(s.LeaderboardCommandHandler(), slackCommand...))
	s.Router.Handle("/slack/command/stats", Chain(s.StatsCommandHandler(), slackCommand...))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Close releases the background resources owned by the server.
func (s *Server) Close() {
	s.Limiter.Stop()
}
