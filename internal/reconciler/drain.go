package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/remote"
)

// SyncLocalData drains the pending queues into the remote store in a fixed
// order: tournaments, catches, participations, invite updates. A call made
// while another drain runs, or while offline, returns a skipped report.
// Writes that fail stay queued for the next trigger.
func (r *Reconciler) SyncLocalData(ctx context.Context) (DrainReport, error) {
	r.mu.Lock()
	if r.status == StatusSyncing {
		r.mu.Unlock()
		log.Debug("Sync already in progress, skipping")
		return DrainReport{Skipped: true}, nil
	}
	if !r.online {
		r.mu.Unlock()
		log.Debug("Offline, skipping sync")
		return DrainReport{Skipped: true}, nil
	}
	r.status = StatusSyncing
	r.mu.Unlock()

	start := time.Now()
	r.metrics.IncDrainRuns()
	r.addCounter("drain_runs", 1)

	var report DrainReport
	res := newResolver(r)
	err := errors.Join(
		r.drainTournaments(ctx, res, &report),
		r.drainCatches(ctx, res, &report),
		r.drainParticipations(ctx, res, &report),
		r.drainInviteUpdates(ctx, &report),
	)
	r.refreshMirrors(ctx)

	r.mu.Lock()
	r.lastSyncAt = r.now()
	if err != nil {
		r.status = StatusError
		r.lastError = err.Error()
	} else {
		r.status = StatusSuccess
		r.lastError = ""
	}
	r.mu.Unlock()

	r.metrics.ObserveDrainDuration(time.Since(start).Seconds())
	r.updatePendingGauge()
	log.Info("Sync finished",
		"tournaments", report.Tournaments,
		"catches", report.Catches,
		"participations", report.Participations,
		"inviteUpdates", report.InviteUpdates,
		"failed", report.Failed,
		"duration", time.Since(start))
	return report, err
}

func (r *Reconciler) drainTournaments(ctx context.Context, res *resolver, report *DrainReport) error {
	queue := snapshot[model.Tournament](r, localstore.KeyPendingTournaments)
	if len(queue) == 0 {
		return nil
	}

	localIDs := make([]string, 0, len(queue))
	for _, t := range queue {
		localIDs = append(localIDs, t.LocalKey())
	}
	existing, err := r.existingByLocalID(ctx, remote.CollTournaments, localIDs)
	if err != nil {
		r.metrics.IncSyncFailures(CategoryTournaments)
		report.Failed += len(queue)
		return fmt.Errorf("failed to check synced tournaments: %w", err)
	}

	settled := make(map[string]bool)
	var toWrite []model.Tournament
	for _, t := range queue {
		key := t.LocalKey()
		if remoteID, ok := existing[key]; ok {
			// Written by an earlier drain that died before dequeuing.
			res.ids[key] = remoteID
			settled[key] = true
			continue
		}
		if _, seen := settled[key]; seen {
			continue
		}
		settled[key] = false
		toWrite = append(toWrite, t)
	}

	var errs []error
	for _, chunk := range chunks(toWrite, remote.MaxBatchSize) {
		writes := make([]remote.Write, 0, len(chunk))
		keys := make([]string, 0, len(chunk))
		for _, t := range chunk {
			doc, err := tournamentDoc(t)
			if err != nil {
				log.Error("Dropping unencodable tournament", "localId", t.LocalKey(), "error", err)
				settled[t.LocalKey()] = true
				continue
			}
			writes = append(writes, remote.Write{Kind: remote.WriteAdd, Collection: remote.CollTournaments, ID: remote.NewID(), Data: doc})
			keys = append(keys, t.LocalKey())
		}
		done, err := r.commit(ctx, writes)
		n := 0
		for i, ok := range done {
			if ok {
				res.ids[keys[i]] = writes[i].ID
				settled[keys[i]] = true
				n++
			}
		}
		r.recordChunk(CategoryTournaments, n, len(writes)-n, report, &report.Tournaments)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to sync tournaments: %w", err))
		}
	}

	if err := dequeue(r, localstore.KeyPendingTournaments, func(t model.Tournament) bool { return settled[t.LocalKey()] }); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Reconciler) drainCatches(ctx context.Context, res *resolver, report *DrainReport) error {
	queue := snapshot[model.Catch](r, localstore.KeyPendingCatches)
	if len(queue) == 0 {
		return nil
	}

	localIDs := make([]string, 0, len(queue))
	for _, c := range queue {
		localIDs = append(localIDs, c.LocalKey())
	}
	existing, err := r.existingByLocalID(ctx, remote.CollCatches, localIDs)
	if err != nil {
		r.metrics.IncSyncFailures(CategoryCatches)
		report.Failed += len(queue)
		return fmt.Errorf("failed to check synced catches: %w", err)
	}

	var errs []error
	settled := make(map[string]bool)
	var toWrite []model.Catch
	for _, c := range queue {
		key := c.LocalKey()
		if _, ok := existing[key]; ok {
			settled[key] = true
			continue
		}
		if _, seen := settled[key]; seen {
			continue
		}
		if c.TournamentID != nil {
			tournamentID, ok, err := res.resolve(ctx, *c.TournamentID)
			if err != nil {
				errs = append(errs, err)
				report.Failed++
				continue
			}
			if !ok {
				log.Debug("Catch waits for its tournament to sync", "localId", key, "tournamentId", *c.TournamentID)
				continue
			}
			c.TournamentID = &tournamentID
		}
		settled[key] = false
		toWrite = append(toWrite, c)
	}

	syncedAt := model.FormatTime(r.now())
	for _, chunk := range chunks(toWrite, remote.MaxBatchSize) {
		writes := make([]remote.Write, 0, len(chunk))
		keys := make([]string, 0, len(chunk))
		for _, c := range chunk {
			doc, err := catchDoc(c, syncedAt)
			if err != nil {
				log.Error("Dropping unencodable catch", "localId", c.LocalKey(), "error", err)
				settled[c.LocalKey()] = true
				continue
			}
			writes = append(writes, remote.Write{Kind: remote.WriteAdd, Collection: remote.CollCatches, ID: remote.NewID(), Data: doc})
			keys = append(keys, c.LocalKey())
		}
		done, err := r.commit(ctx, writes)
		n := 0
		for i, ok := range done {
			if ok {
				settled[keys[i]] = true
				n++
			}
		}
		r.recordChunk(CategoryCatches, n, len(writes)-n, report, &report.Catches)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to sync catches: %w", err))
		}
	}

	if err := dequeue(r, localstore.KeyPendingCatches, func(c model.Catch) bool { return settled[c.LocalKey()] }); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type participationGroup struct {
	tournament model.Tournament
	keys       []string
}

func participationKey(p model.PendingParticipation) string {
	return p.TournamentID + "|" + p.UserID
}

// drainParticipations re-reads every target tournament so users already
// enrolled are skipped and the count is recomputed from the merged set.
func (r *Reconciler) drainParticipations(ctx context.Context, res *resolver, report *DrainReport) error {
	queue := snapshot[model.PendingParticipation](r, localstore.KeyPendingParticipation)
	if len(queue) == 0 {
		return nil
	}

	var errs []error
	settled := make(map[string]bool)
	groups := make(map[string]*participationGroup)
	var order []string
	for _, p := range queue {
		key := participationKey(p)
		tournamentID, ok, err := res.resolve(ctx, p.TournamentID)
		if err != nil {
			errs = append(errs, err)
			report.Failed++
			continue
		}
		if !ok {
			continue
		}

		g, loaded := groups[tournamentID]
		if !loaded {
			doc, err := r.remote.GetDocument(ctx, remote.CollTournaments, tournamentID)
			if remote.KindOf(err) == remote.KindNotFound {
				log.Warn("Dropping participation for missing tournament", "tournamentId", tournamentID, "userId", p.UserID)
				settled[key] = true
				continue
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to read tournament %s: %w", tournamentID, err))
				report.Failed++
				continue
			}
			var t model.Tournament
			if err := remote.Decode(doc, &t); err != nil {
				errs = append(errs, err)
				report.Failed++
				continue
			}
			t.ID = tournamentID
			g = &participationGroup{tournament: t}
			groups[tournamentID] = g
			order = append(order, tournamentID)
		}

		switch {
		case g.tournament.HasParticipant(p.UserID):
			settled[key] = true
		case g.tournament.IsClosed():
			log.Warn("Dropping participation for closed tournament", "tournamentId", tournamentID, "userId", p.UserID, "status", g.tournament.Status)
			settled[key] = true
		case g.tournament.IsFull():
			log.Warn("Dropping participation for full tournament", "tournamentId", tournamentID, "userId", p.UserID)
			settled[key] = true
		default:
			g.tournament.AddParticipant(model.Participant{UserID: p.UserID, UserName: p.UserName, JoinedAt: p.JoinedAt})
			g.keys = append(g.keys, key)
		}
	}

	var changed []*participationGroup
	for _, id := range order {
		if g := groups[id]; len(g.keys) > 0 {
			changed = append(changed, g)
		}
	}
	for _, chunk := range chunks(changed, remote.MaxBatchSize) {
		writes := make([]remote.Write, 0, len(chunk))
		for _, g := range chunk {
			doc, err := participantsDoc(g.tournament)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			writes = append(writes, remote.Write{Kind: remote.WriteUpdate, Collection: remote.CollTournaments, ID: g.tournament.ID, Data: doc})
		}
		done, err := r.commit(ctx, writes)
		n := 0
		for i, ok := range done {
			if !ok {
				continue
			}
			for _, g := range chunk {
				if g.tournament.ID != writes[i].ID {
					continue
				}
				for _, key := range g.keys {
					settled[key] = true
					n++
				}
			}
		}
		r.recordChunk(CategoryParticipations, n, len(writes)-countTrue(done), report, &report.Participations)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to sync participations: %w", err))
		}
	}

	if err := dequeue(r, localstore.KeyPendingParticipation, func(p model.PendingParticipation) bool { return settled[participationKey(p)] }); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Reconciler) drainInviteUpdates(ctx context.Context, report *DrainReport) error {
	queue := snapshot[model.PendingInviteUpdate](r, localstore.KeyPendingInviteUpdates)
	if len(queue) == 0 {
		return nil
	}

	// The latest response per invite wins.
	latest := make(map[string]model.PendingInviteUpdate)
	var order []string
	for _, u := range queue {
		if _, seen := latest[u.InviteID]; !seen {
			order = append(order, u.InviteID)
		}
		latest[u.InviteID] = u
	}

	var errs []error
	settled := make(map[string]bool)
	for _, chunk := range chunks(order, remote.MaxBatchSize) {
		writes := make([]remote.Write, 0, len(chunk))
		for _, inviteID := range chunk {
			u := latest[inviteID]
			writes = append(writes, remote.Write{
				Kind:       remote.WriteUpdate,
				Collection: remote.CollInvites,
				ID:         inviteID,
				Data:       remote.Document{"status": string(u.Status), "respondedAt": u.UpdatedAt},
			})
		}
		done, err := r.commit(ctx, writes)
		n := 0
		for i, ok := range done {
			if ok {
				settled[writes[i].ID] = true
				n++
			}
		}
		r.recordChunk(CategoryInviteUpdates, n, len(writes)-n, report, &report.InviteUpdates)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to sync invite updates: %w", err))
		}
	}

	if err := dequeue(r, localstore.KeyPendingInviteUpdates, func(u model.PendingInviteUpdate) bool { return settled[u.InviteID] }); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// commit applies one chunk and reports which writes are settled. When the
// batch fails because a target document is gone, the writes are retried one
// at a time and writes to missing documents are dropped as settled.
func (r *Reconciler) commit(ctx context.Context, writes []remote.Write) ([]bool, error) {
	done := make([]bool, len(writes))
	if len(writes) == 0 {
		return done, nil
	}
	err := r.remote.BatchWrite(ctx, writes)
	if err == nil {
		for i := range done {
			done[i] = true
		}
		return done, nil
	}
	if remote.KindOf(err) != remote.KindNotFound {
		return done, err
	}

	var errs []error
	for i, w := range writes {
		err := r.remote.BatchWrite(ctx, []remote.Write{w})
		switch {
		case err == nil:
			done[i] = true
		case remote.KindOf(err) == remote.KindNotFound:
			log.Warn("Dropping write for missing document", "collection", w.Collection, "id", w.ID)
			done[i] = true
		default:
			errs = append(errs, err)
		}
	}
	return done, errors.Join(errs...)
}

func (r *Reconciler) recordChunk(category string, synced, failed int, report *DrainReport, counter *int) {
	*counter += synced
	report.Failed += failed
	if synced > 0 {
		r.metrics.AddItemsSynced(category, synced)
		r.addCounter("items_synced_"+category, synced)
		log.Info("Synced pending operations", "category", category, "count", synced)
	}
	if failed > 0 {
		r.metrics.IncSyncFailures(category)
	}
}

// existingByLocalID maps the local ids already present remotely to their
// document ids.
func (r *Reconciler) existingByLocalID(ctx context.Context, collection string, localIDs []string) (map[string]string, error) {
	existing := make(map[string]string)
	for _, chunk := range chunks(localIDs, remote.MaxBatchSize) {
		docs, err := r.remote.QueryDocuments(ctx, collection, []remote.Filter{{Field: "localId", Op: remote.OpIn, Value: chunk}}, nil)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if localID, ok := doc["localId"].(string); ok && localID != "" {
				existing[localID] = doc.ID()
			}
		}
	}
	return existing, nil
}

func (r *Reconciler) refreshMirrors(ctx context.Context) {
	tournaments, err := r.remote.QueryDocuments(ctx, remote.CollTournaments, nil, &remote.Order{Field: "createdAt", Desc: true})
	if err != nil {
		log.Warn("Failed to refresh tournaments after sync", "error", err)
	} else {
		r.applyTournaments(tournaments)
	}
	catches, err := r.remote.QueryDocuments(ctx, remote.CollCatches, nil, &remote.Order{Field: "registeredAt", Desc: true})
	if err != nil {
		log.Warn("Failed to refresh catches after sync", "error", err)
	} else {
		r.applyCatches(catches)
	}
}

// resolver maps local tournament ids to remote ids for one drain.
type resolver struct {
	r   *Reconciler
	ids map[string]string
}

func newResolver(r *Reconciler) *resolver {
	return &resolver{r: r, ids: make(map[string]string)}
}

// resolve returns the remote id for id. ok is false when id is a local id
// whose tournament has not reached the remote store yet.
func (res *resolver) resolve(ctx context.Context, id string) (string, bool, error) {
	if !model.IsTempID(id) {
		return id, true, nil
	}
	if remoteID, ok := res.ids[id]; ok {
		return remoteID, true, nil
	}
	remoteID, err := res.r.lookupLocalID(ctx, id)
	if err != nil {
		return "", false, err
	}
	if remoteID == "" {
		return "", false, nil
	}
	res.ids[id] = remoteID
	return remoteID, true, nil
}

func (r *Reconciler) lookupLocalID(ctx context.Context, localID string) (string, error) {
	docs, err := r.remote.QueryDocuments(ctx, remote.CollTournaments, []remote.Filter{remote.Where("localId", localID)}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to resolve tournament %s: %w", localID, err)
	}
	if len(docs) == 0 {
		return "", nil
	}
	return docs[0].ID(), nil
}

// ResolveTournamentID returns the remote id for a tournament known by a
// local id. Remote ids are returned unchanged.
func (r *Reconciler) ResolveTournamentID(ctx context.Context, id string) (string, bool, error) {
	return newResolver(r).resolve(ctx, id)
}

func tournamentDoc(t model.Tournament) (remote.Document, error) {
	t = t.Clone()
	t.LocalID = t.LocalKey()
	t.ID = ""
	t.Pending = false
	for i := range t.Participants {
		t.Participants[i].Pending = false
	}
	t.RecountParticipants()
	doc, err := remote.Encode(t)
	if err != nil {
		return nil, err
	}
	delete(doc, remote.FieldID)
	delete(doc, "pending")
	return doc, nil
}

func catchDoc(c model.Catch, syncedAt string) (remote.Document, error) {
	c.LocalID = c.LocalKey()
	c.ID = ""
	c.Pending = false
	c.SyncedAt = &syncedAt
	doc, err := remote.Encode(c)
	if err != nil {
		return nil, err
	}
	delete(doc, remote.FieldID)
	delete(doc, "pending")
	return doc, nil
}

func participantsDoc(t model.Tournament) (remote.Document, error) {
	participants := make([]model.Participant, 0, len(t.Participants))
	for _, p := range t.Participants {
		p.Pending = false
		participants = append(participants, p)
	}
	return remote.Encode(struct {
		Participants     []model.Participant `json:"participants"`
		ParticipantCount int                 `json:"participantCount"`
	}{participants, t.RecountParticipants()})
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func countTrue(values []bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}
