package notifier

import (
	"sync"

	"github.com/mauv0809/catch-league/internal/pubsub"
	"github.com/mauv0809/catch-league/internal/ranking"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	SendTournamentFinishedFunc func(event pubsub.TournamentFinished, dryRun bool) error

	// Call records
	SendTournamentFinishedCalls []pubsub.TournamentFinished
	SendLeaderboardCalls        []LeaderboardCall
	SendUserStatsCalls          []ranking.Stats
	DryRuns                     []bool

	// Spies for format functions
	FormatLeaderboardResponseFunc func(title string, policy ranking.Policy, entries []ranking.Entry) (any, error)
	FormatUserStatsResponseFunc   func(stats ranking.Stats) (any, error)
}

// LeaderboardCall holds the arguments of a SendLeaderboard call.
type LeaderboardCall struct {
	Title   string
	Policy  ranking.Policy
	Entries []ranking.Entry
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendTournamentFinishedCalls = nil
	m.SendLeaderboardCalls = nil
	m.SendUserStatsCalls = nil
	m.DryRuns = nil
}

func (m *Mock) SendTournamentFinished(event pubsub.TournamentFinished, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendTournamentFinishedCalls = append(m.SendTournamentFinishedCalls, event)
	m.DryRuns = append(m.DryRuns, dryRun)
	if m.SendTournamentFinishedFunc != nil {
		return m.SendTournamentFinishedFunc(event, dryRun)
	}
	return nil
}

func (m *Mock) SendLeaderboard(title string, policy ranking.Policy, entries []ranking.Entry, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendLeaderboardCalls = append(m.SendLeaderboardCalls, LeaderboardCall{Title: title, Policy: policy, Entries: entries})
	m.DryRuns = append(m.DryRuns, dryRun)
	return nil
}

func (m *Mock) SendUserStats(stats ranking.Stats, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendUserStatsCalls = append(m.SendUserStatsCalls, stats)
	m.DryRuns = append(m.DryRuns, dryRun)
	return nil
}

func (m *Mock) FormatLeaderboardResponse(title string, policy ranking.Policy, entries []ranking.Entry) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatLeaderboardResponseFunc != nil {
		return m.FormatLeaderboardResponseFunc(title, policy, entries)
	}
	return "formatted_leaderboard", nil
}

func (m *Mock) FormatUserStatsResponse(stats ranking.Stats) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatUserStatsResponseFunc != nil {
		return m.FormatUserStatsResponseFunc(stats)
	}
	return "formatted_user_stats", nil
}

// FinishedCalls returns a copy of the SendTournamentFinished calls so far.
func (m *Mock) FinishedCalls() []pubsub.TournamentFinished {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pubsub.TournamentFinished(nil), m.SendTournamentFinishedCalls...)
}

var _ Notifier = (*Mock)(nil)
