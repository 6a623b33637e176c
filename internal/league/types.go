package league

import (
	"time"

	"github.com/mauv0809/catch-league/internal/metrics"
	"github.com/mauv0809/catch-league/internal/objectstore"
	"github.com/mauv0809/catch-league/internal/pubsub"
	"github.com/mauv0809/catch-league/internal/ranking"
	"github.com/mauv0809/catch-league/internal/reconciler"
)

// EarlyFinishThreshold is the share of the tournament window that must
// have elapsed before the owner may finish it by hand.
const EarlyFinishThreshold = 0.5

// Deps are the collaborators of a Service. Uploader and Now are optional.
type Deps struct {
	Reconciler *reconciler.Reconciler
	Uploader   objectstore.Uploader
	Publisher  pubsub.PubSubClient
	Metrics    metrics.Metrics
	Now        func() time.Time
}

// Service runs the league workflows on top of the reconciler.
type Service struct {
	r         *reconciler.Reconciler
	uploader  objectstore.Uploader
	publisher pubsub.PubSubClient
	metrics   metrics.Metrics
	now       func() time.Time
}

// Leaderboard is a ranking for one tournament, or for every catch when
// TournamentID is empty.
type Leaderboard struct {
	TournamentID string          `json:"tournamentId,omitempty"`
	Name         string          `json:"name,omitempty"`
	Policy       ranking.Policy  `json:"policy"`
	Frozen       bool            `json:"frozen"`
	Entries      []ranking.Entry `json:"entries"`
}
