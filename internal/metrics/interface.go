package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncDrainRuns()
	AddItemsSynced(category string, n int)
	IncSyncFailures(category string)
	SetPendingOperations(n int)
	ObserveDrainDuration(duration float64)
	ObserveRankingDuration(duration float64)
	IncTournamentsFinished()
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}

// CounterStore keeps lifetime totals that survive restarts.
type CounterStore interface {
	Add(key string, n int)
	GetAll() (map[string]int, error)
}
