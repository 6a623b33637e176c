package reconciler

import (
	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/remote"
)

type feedQuery struct {
	collection string
	filters    []remote.Filter
	order      *remote.Order
	apply      func([]remote.Document)
}

func (r *Reconciler) feedQuery(name Feed) feedQuery {
	switch name {
	case FeedTournaments:
		return feedQuery{remote.CollTournaments, nil, &remote.Order{Field: "createdAt", Desc: true}, r.applyTournaments}
	case FeedCatches:
		return feedQuery{remote.CollCatches, nil, &remote.Order{Field: "registeredAt", Desc: true}, r.applyCatches}
	case FeedPosts:
		return feedQuery{remote.CollPosts, nil, &remote.Order{Field: "createdAt", Desc: true}, r.applyPosts}
	default:
		return feedQuery{
			collection: remote.CollInvites,
			filters: []remote.Filter{
				remote.Where("toUserId", r.user.ID),
				remote.Where("status", string(model.InvitePending)),
			},
			apply: r.applyInvites,
		}
	}
}

func (r *Reconciler) openFeeds() {
	for _, name := range allFeeds {
		if r.FeedState(name) == FeedSubscribed {
			continue
		}
		_ = r.subscribe(name)
	}
}

func (r *Reconciler) subscribe(name Feed) error {
	q := r.feedQuery(name)
	unsubscribe, err := r.remote.Subscribe(r.ctx, q.collection, q.filters, q.order, q.apply, func(err error) {
		r.feedFailed(name, err)
	})
	if err != nil {
		r.feedFailed(name, err)
		return err
	}

	r.mu.Lock()
	f := r.feeds[name]
	previous := f.unsubscribe
	f.unsubscribe = unsubscribe
	f.state = FeedSubscribed
	r.mu.Unlock()
	if previous != nil {
		previous()
	}
	log.Debug("Feed subscribed", "feed", name)
	return nil
}

// feedFailed keeps the last good mirror. A lost invite feed falls back to
// polling; every other feed waits for the next reconnect.
func (r *Reconciler) feedFailed(name Feed, err error) {
	deferrable := remote.Deferrable(err)

	r.mu.Lock()
	f := r.feeds[name]
	// The stream is already dead; its resources go with the reconciler context.
	f.unsubscribe = nil
	if name == FeedInvites && deferrable && r.online {
		f.state = FeedPollingFallback
	} else {
		f.state = FeedDisconnected
	}
	state := f.state
	r.mu.Unlock()

	if deferrable {
		log.Warn("Feed lost, keeping cached data", "feed", name, "kind", remote.KindOf(err), "state", state, "error", err)
	} else {
		log.Error("Feed failed", "feed", name, "error", err)
	}
	if state == FeedPollingFallback {
		r.startPolling()
	}
}

func (r *Reconciler) closeFeeds() {
	r.stopPolling()

	var unsubscribes []remote.Unsubscribe
	r.mu.Lock()
	for _, f := range r.feeds {
		if f.unsubscribe != nil {
			unsubscribes = append(unsubscribes, f.unsubscribe)
		}
		f.unsubscribe = nil
		f.state = FeedDisconnected
	}
	r.mu.Unlock()
	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
}

func (r *Reconciler) startPolling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pollJob != nil || r.scheduler == nil {
		return
	}
	job, err := r.scheduler.NewJob(
		gocron.DurationJob(r.opts.InvitePollInterval),
		gocron.NewTask(r.pollInvites),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Error("Failed to schedule invite polling", "error", err)
		return
	}
	r.pollJob = job
	log.Info("Polling invites", "interval", r.opts.InvitePollInterval)
}

func (r *Reconciler) stopPolling() {
	r.mu.Lock()
	job := r.pollJob
	scheduler := r.scheduler
	r.pollJob = nil
	r.mu.Unlock()
	if job == nil || scheduler == nil {
		return
	}
	if err := scheduler.RemoveJob(job.ID()); err != nil {
		log.Warn("Failed to stop invite polling", "error", err)
	}
}

// pollInvites first tries to restore the live feed, and only reads the
// invites once when that fails.
func (r *Reconciler) pollInvites() {
	if !r.IsOnline() {
		return
	}
	if r.FeedState(FeedInvites) == FeedSubscribed {
		r.stopPolling()
		return
	}
	if err := r.subscribe(FeedInvites); err == nil {
		log.Info("Invite feed restored")
		r.stopPolling()
		return
	}
	q := r.feedQuery(FeedInvites)
	docs, err := r.remote.QueryDocuments(r.ctx, q.collection, q.filters, q.order)
	if err != nil {
		log.Warn("Invite poll failed", "error", err)
		return
	}
	q.apply(docs)
}

func (r *Reconciler) restoreMirrors() {
	tournaments := localstore.LoadOr(r.local, localstore.KeyAllTournaments, []model.Tournament{})
	catches := localstore.LoadOr(r.local, localstore.KeyAllCatches, []model.Catch{})
	posts := localstore.LoadOr(r.local, localstore.KeyAllPosts, []model.Post{})
	invites := localstore.LoadOr(r.local, localstore.PendingInvitesKey(r.user.ID), []model.Invite{})

	r.mu.Lock()
	r.tournaments = tournaments
	r.catches = catches
	r.posts = posts
	r.invites = invites
	r.mu.Unlock()
	log.Debug("Restored mirrors from local cache",
		"tournaments", len(tournaments), "catches", len(catches), "posts", len(posts), "invites", len(invites))
}

// applyTournaments replaces the tournaments mirror with a remote emission.
// Tournaments and joins still queued locally are laid back on top.
func (r *Reconciler) applyTournaments(docs []remote.Document) {
	fresh := remote.DecodeAll[model.Tournament](docs)
	for i := range fresh {
		fresh[i].RecountParticipants()
	}
	pending := snapshot[model.Tournament](r, localstore.KeyPendingTournaments)
	merged := withPending(fresh, pending, model.Tournament.LocalKey, func(t *model.Tournament) { t.Pending = true })

	for _, p := range snapshot[model.PendingParticipation](r, localstore.KeyPendingParticipation) {
		for i := range merged {
			if merged[i].Matches(p.TournamentID) && !merged[i].HasParticipant(p.UserID) {
				merged[i].AddParticipant(model.Participant{UserID: p.UserID, UserName: p.UserName, JoinedAt: p.JoinedAt, Pending: true})
			}
		}
	}

	r.mu.Lock()
	r.tournaments = merged
	r.mu.Unlock()
	r.saveTournaments(merged)
}

func (r *Reconciler) applyCatches(docs []remote.Document) {
	fresh := remote.DecodeAll[model.Catch](docs)
	pending := snapshot[model.Catch](r, localstore.KeyPendingCatches)
	merged := withPending(fresh, pending, model.Catch.LocalKey, func(c *model.Catch) { c.Pending = true })

	r.mu.Lock()
	r.catches = merged
	r.mu.Unlock()
	r.saveCatches(merged)
}

func (r *Reconciler) applyPosts(docs []remote.Document) {
	posts := remote.DecodeAll[model.Post](docs)
	r.mu.Lock()
	r.posts = posts
	r.mu.Unlock()
	r.save(localstore.KeyAllPosts, posts)
}

func (r *Reconciler) applyInvites(docs []remote.Document) {
	invites := remote.DecodeAll[model.Invite](docs)
	r.mu.Lock()
	r.invites = invites
	r.mu.Unlock()
	r.save(localstore.PendingInvitesKey(r.user.ID), invites)
}

func (r *Reconciler) saveTournaments(tournaments []model.Tournament) {
	mine := make([]model.Tournament, 0)
	for _, t := range tournaments {
		if t.CreatorID == r.user.ID || t.HasParticipant(r.user.ID) {
			mine = append(mine, t)
		}
	}
	r.save(localstore.KeyAllTournaments, tournaments)
	r.save(localstore.UserTournamentsKey(r.user.ID), mine)
}

func (r *Reconciler) saveCatches(catches []model.Catch) {
	mine := make([]model.Catch, 0)
	for _, c := range catches {
		if c.UserID == r.user.ID {
			mine = append(mine, c)
		}
	}
	r.save(localstore.KeyAllCatches, catches)
	r.save(localstore.UserCatchesKey(r.user.ID), mine)
}

func (r *Reconciler) save(key string, value any) {
	if err := r.local.Save(key, value); err != nil {
		log.Error("Failed to cache mirror", "key", key, "error", err)
	}
}

// withPending puts the queued entities that the remote emission does not
// contain yet in front of it.
func withPending[T any](fresh, pending []T, localKey func(T) string, mark func(*T)) []T {
	confirmed := make(map[string]bool, len(fresh))
	for _, item := range fresh {
		confirmed[localKey(item)] = true
	}
	out := make([]T, 0, len(fresh)+len(pending))
	for i := len(pending) - 1; i >= 0; i-- {
		item := pending[i]
		if confirmed[localKey(item)] {
			continue
		}
		mark(&item)
		out = append(out, item)
	}
	return append(out, fresh...)
}

// Tournaments returns a copy of the tournaments mirror.
func (r *Reconciler) Tournaments() []model.Tournament {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		out = append(out, t.Clone())
	}
	return out
}

// Tournament finds a mirrored tournament by remote or local id.
func (r *Reconciler) Tournament(id string) (model.Tournament, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tournaments {
		if t.Matches(id) {
			return t.Clone(), true
		}
	}
	return model.Tournament{}, false
}

func (r *Reconciler) Catches() []model.Catch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Catch(nil), r.catches...)
}

func (r *Reconciler) Posts() []model.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Post(nil), r.posts...)
}

// Invites returns the invites waiting for the current user's answer.
func (r *Reconciler) Invites() []model.Invite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Invite(nil), r.invites...)
}

// UpsertTournament applies a local change to the tournaments mirror.
func (r *Reconciler) UpsertTournament(t model.Tournament) {
	t = t.Clone()
	t.RecountParticipants()
	r.mu.Lock()
	replaced := false
	for i := range r.tournaments {
		if r.tournaments[i].ID == t.ID || (t.LocalID != "" && r.tournaments[i].LocalKey() == t.LocalID) {
			r.tournaments[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		r.tournaments = append([]model.Tournament{t}, r.tournaments...)
	}
	tournaments := append([]model.Tournament(nil), r.tournaments...)
	r.mu.Unlock()
	r.saveTournaments(tournaments)
}

// UpsertCatch applies a local change to the catches mirror.
func (r *Reconciler) UpsertCatch(c model.Catch) {
	r.mu.Lock()
	replaced := false
	for i := range r.catches {
		if r.catches[i].ID == c.ID || (c.LocalID != "" && r.catches[i].LocalKey() == c.LocalID) {
			r.catches[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		r.catches = append([]model.Catch{c}, r.catches...)
	}
	catches := append([]model.Catch(nil), r.catches...)
	r.mu.Unlock()
	r.saveCatches(catches)
}

// RemoveInvite drops an answered invite from the mirror.
func (r *Reconciler) RemoveInvite(id string) {
	r.mu.Lock()
	kept := make([]model.Invite, 0, len(r.invites))
	for _, inv := range r.invites {
		if inv.ID != id {
			kept = append(kept, inv)
		}
	}
	r.invites = kept
	r.mu.Unlock()
	r.save(localstore.PendingInvitesKey(r.user.ID), kept)
}
