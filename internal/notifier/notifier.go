package notifier

import (
	"github.com/mauv0809/catch-league/internal/pubsub"
	"github.com/mauv0809/catch-league/internal/ranking"
)

// Notifier defines a high-level interface for sending notifications about league events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For finished tournaments
	SendTournamentFinished(event pubsub.TournamentFinished, dryRun bool) error
	// For slash commands and scheduled posts
	SendLeaderboard(title string, policy ranking.Policy, entries []ranking.Entry, dryRun bool) error
	SendUserStats(stats ranking.Stats, dryRun bool) error

	// For formatting responses for slash commands
	FormatLeaderboardResponse(title string, policy ranking.Policy, entries []ranking.Entry) (any, error)
	FormatUserStatsResponse(stats ranking.Stats) (any, error)
}
