// Package reconciler keeps the local durable queues and the live mirrors of
// the remote store in step.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/metrics"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/remote"
)

type feed struct {
	state       FeedState
	unsubscribe remote.Unsubscribe
}

// Reconciler owns connectivity, the pending queues, the mirrors and the
// background jobs. Build it with New, then call Init before use and Dispose
// when done.
type Reconciler struct {
	local    localstore.Store
	remote   remote.Store
	metrics  metrics.Metrics
	counters metrics.CounterStore
	user     model.User
	now      func() time.Time
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// queueMu serializes read-modify-write cycles on the queues.
	queueMu sync.Mutex

	mu          sync.Mutex
	online      bool
	status      SyncStatus
	lastSyncAt  time.Time
	lastError   string
	tournaments []model.Tournament
	catches     []model.Catch
	posts       []model.Post
	invites     []model.Invite
	feeds       map[Feed]*feed
	hooks       []FinishedHook

	scheduler gocron.Scheduler
	pollJob   gocron.Job
}

func New(deps Deps, opts Options) *Reconciler {
	if opts.InvitePollInterval <= 0 {
		opts.InvitePollInterval = DefaultInvitePollInterval
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	feeds := make(map[Feed]*feed, len(allFeeds))
	for _, f := range allFeeds {
		feeds[f] = &feed{state: FeedDisconnected}
	}
	return &Reconciler{
		local:    deps.Local,
		remote:   deps.Remote,
		metrics:  deps.Metrics,
		counters: deps.Counters,
		user:     deps.User,
		now:      now,
		opts:     opts,
		ctx:      context.Background(),
		online:   opts.Online,
		status:   StatusIdle,
		feeds:    feeds,
	}
}

// Init restores the mirrors from the local cache, starts the expiry sweep
// and, when online, opens the feeds and drains the queues in the background.
func (r *Reconciler) Init(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.restoreMirrors()

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(r.opts.SweepInterval),
		gocron.NewTask(func() {
			r.Sweep(r.ctx, r.now())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}
	scheduler.Start()
	r.mu.Lock()
	r.scheduler = scheduler
	r.mu.Unlock()
	log.Info("Reconciler initialized", "user", r.user.ID, "online", r.IsOnline(), "sweepInterval", r.opts.SweepInterval)

	r.updatePendingGauge()
	if r.IsOnline() {
		r.openFeeds()
		r.triggerDrain()
	}
	return nil
}

// Dispose closes every feed, stops the background jobs and waits for a
// running drain to return.
func (r *Reconciler) Dispose() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.closeFeeds()
	r.mu.Lock()
	scheduler := r.scheduler
	r.scheduler = nil
	r.pollJob = nil
	r.mu.Unlock()
	var err error
	if scheduler != nil {
		err = scheduler.Shutdown()
	}
	r.wg.Wait()
	log.Info("Reconciler disposed")
	return err
}

func (r *Reconciler) IsOnline() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}

// SetOnline records a connectivity change. Coming online re-opens the feeds
// and drains the queues; going offline closes the feeds.
func (r *Reconciler) SetOnline(online bool) {
	r.mu.Lock()
	changed := r.online != online
	r.online = online
	r.mu.Unlock()
	if !changed {
		return
	}
	log.Info("Connectivity changed", "online", online)
	if online {
		r.openFeeds()
		r.triggerDrain()
		return
	}
	r.closeFeeds()
}

// OnFinished registers a hook run for every finished tournament.
func (r *Reconciler) OnFinished(hook FinishedHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// WaitForSync blocks until background drains started so far have returned.
func (r *Reconciler) WaitForSync() {
	r.wg.Wait()
}

func (r *Reconciler) Status() StatusReport {
	pending := r.Pending()
	r.mu.Lock()
	defer r.mu.Unlock()
	report := StatusReport{
		Status:    r.status,
		Online:    r.online,
		LastError: r.lastError,
		Pending:   pending,
		Feeds:     make(map[Feed]FeedState, len(r.feeds)),
	}
	if !r.lastSyncAt.IsZero() {
		report.LastSyncAt = model.FormatTime(r.lastSyncAt)
	}
	for name, f := range r.feeds {
		report.Feeds[name] = f.state
	}
	return report
}

// FeedState returns the current state of one feed.
func (r *Reconciler) FeedState(name Feed) FeedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.feeds[name].state
}

// Pending returns the size of every queue.
func (r *Reconciler) Pending() PendingCounts {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()
	return r.pendingLocked()
}

func (r *Reconciler) PendingCount() int {
	return r.Pending().Total()
}

func (r *Reconciler) pendingLocked() PendingCounts {
	return PendingCounts{
		Tournaments:    len(localstore.LoadOr(r.local, localstore.KeyPendingTournaments, []model.Tournament{})),
		Catches:        len(localstore.LoadOr(r.local, localstore.KeyPendingCatches, []model.Catch{})),
		Participations: len(localstore.LoadOr(r.local, localstore.KeyPendingParticipation, []model.PendingParticipation{})),
		InviteUpdates:  len(localstore.LoadOr(r.local, localstore.KeyPendingInviteUpdates, []model.PendingInviteUpdate{})),
	}
}

func (r *Reconciler) updatePendingGauge() {
	r.metrics.SetPendingOperations(r.PendingCount())
}

func (r *Reconciler) triggerDrain() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.SyncLocalData(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Background sync finished with errors", "error", err)
		}
	}()
}

func (r *Reconciler) addCounter(key string, n int) {
	if r.counters != nil && n > 0 {
		r.counters.Add(key, n)
	}
}
