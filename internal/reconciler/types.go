package reconciler

import (
	"time"

	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/metrics"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/remote"
)

// SyncStatus is the state of the queue drain.
type SyncStatus string

const (
	StatusIdle    SyncStatus = "idle"
	StatusSyncing SyncStatus = "syncing"
	StatusSuccess SyncStatus = "success"
	StatusError   SyncStatus = "error"
)

// Feed names one live mirror.
type Feed string

const (
	FeedTournaments Feed = "tournaments"
	FeedCatches     Feed = "catches"
	FeedPosts       Feed = "posts"
	FeedInvites     Feed = "invites"
)

var allFeeds = []Feed{FeedTournaments, FeedCatches, FeedPosts, FeedInvites}

// FeedState is where a live mirror stands.
type FeedState string

const (
	FeedSubscribed      FeedState = "subscribed"
	FeedPollingFallback FeedState = "polling_fallback"
	FeedDisconnected    FeedState = "disconnected"
)

// Queue categories, drained in this order.
const (
	CategoryTournaments    = "tournaments"
	CategoryCatches        = "catches"
	CategoryParticipations = "participations"
	CategoryInviteUpdates  = "invite_updates"
)

const (
	DefaultInvitePollInterval = 30 * time.Second
	DefaultSweepInterval      = 60 * time.Second
)

// Deps are the collaborators of a Reconciler. Counters and Now are optional.
type Deps struct {
	Local    localstore.Store
	Remote   remote.Store
	Metrics  metrics.Metrics
	Counters metrics.CounterStore
	User     model.User
	Now      func() time.Time
}

type Options struct {
	// Online is the connectivity assumed until SetOnline is called.
	Online             bool
	InvitePollInterval time.Duration
	SweepInterval      time.Duration
}

// PendingCounts is the size of every queue.
type PendingCounts struct {
	Tournaments    int `json:"tournaments"`
	Catches        int `json:"catches"`
	Participations int `json:"participations"`
	InviteUpdates  int `json:"inviteUpdates"`
}

func (p PendingCounts) Total() int {
	return p.Tournaments + p.Catches + p.Participations + p.InviteUpdates
}

// StatusReport is what the UI shows about synchronization.
type StatusReport struct {
	Status     SyncStatus         `json:"status"`
	Online     bool               `json:"online"`
	LastSyncAt string             `json:"lastSyncAt,omitempty"`
	LastError  string             `json:"lastError,omitempty"`
	Pending    PendingCounts      `json:"pending"`
	Feeds      map[Feed]FeedState `json:"feeds"`
}

// DrainReport counts what one SyncLocalData call settled.
type DrainReport struct {
	Skipped        bool `json:"skipped"`
	Tournaments    int  `json:"tournaments"`
	Catches        int  `json:"catches"`
	Participations int  `json:"participations"`
	InviteUpdates  int  `json:"inviteUpdates"`
	Failed         int  `json:"failed"`
}

// FinishedHook is called after a tournament has been finished.
type FinishedHook func(t model.Tournament)
