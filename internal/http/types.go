package http

import (
	"net/http"

	"github.com/mauv0809/catch-league/internal/config"
	"github.com/mauv0809/catch-league/internal/league"
	"github.com/mauv0809/catch-league/internal/metrics"
	"github.com/mauv0809/catch-league/internal/notifier"
	"github.com/mauv0809/catch-league/internal/pubsub"
	"github.com/mauv0809/catch-league/internal/ratelimit"
	"github.com/mauv0809/catch-league/internal/reconciler"
)

type Server struct {
	League         *league.Service
	Reconciler     *reconciler.Reconciler
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Counters       metrics.CounterStore
	Notifier       notifier.Notifier
	Limiter        *ratelimit.KeyedRateLimiter
	Cfg            config.Config
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
}

// syncStatusResponse is the body of /sync/status.
type syncStatusResponse struct {
	reconciler.StatusReport
	Counters map[string]int `json:"counters,omitempty"`
}

type tournamentActionRequest struct {
	TournamentID string `json:"tournamentId"`
	Action       string `json:"action"`
}

type inviteRequest struct {
	TournamentID string `json:"tournamentId"`
	ToUserID     string `json:"toUserId"`
}

type inviteResponseRequest struct {
	InviteID string `json:"inviteId"`
	Accept   bool   `json:"accept"`
}

type errorResponse struct {
	Error string `json:"error"`
}
