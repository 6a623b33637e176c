package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	drainRuns           int
	itemsSynced         map[string]int
	syncFailures        map[string]int
	pendingOperations   int
	drainDurations      []float64
	rankingDurations    []float64
	tournamentsFinished int
	slackNotifSent      int
	slackNotifFailed    int
	startupTime         float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		itemsSynced:      make(map[string]int),
		syncFailures:     make(map[string]int),
		drainDurations:   make([]float64, 0),
		rankingDurations: make([]float64, 0),
	}
}

func (m *Mock) IncDrainRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drainRuns++
}

func (m *Mock) AddItemsSynced(category string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemsSynced[category] += n
}

func (m *Mock) IncSyncFailures(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncFailures[category]++
}

func (m *Mock) SetPendingOperations(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingOperations = n
}

func (m *Mock) ObserveDrainDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drainDurations = append(m.drainDurations, duration)
}

func (m *Mock) ObserveRankingDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rankingDurations = append(m.rankingDurations, duration)
}

func (m *Mock) IncTournamentsFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tournamentsFinished++
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// DrainRuns returns the number of times IncDrainRuns was called.
func (m *Mock) DrainRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drainRuns
}

// ItemsSynced returns the total added for category.
func (m *Mock) ItemsSynced(category string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsSynced[category]
}

// SyncFailures returns the number of failures recorded for category.
func (m *Mock) SyncFailures(category string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncFailures[category]
}

// PendingOperations returns the last value passed to SetPendingOperations.
func (m *Mock) PendingOperations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingOperations
}

// RankingDurations returns how many ranking durations were observed.
func (m *Mock) RankingDurations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rankingDurations)
}

// TournamentsFinished returns the number of times IncTournamentsFinished was called.
func (m *Mock) TournamentsFinished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tournamentsFinished
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}

var _ Metrics = (*Mock)(nil)
