package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/metrics"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	r       *Reconciler
	local   *localstore.Memory
	remote  *remote.Memory
	metrics *metrics.Mock
}

func newHarness(t *testing.T, online bool) *harness {
	t.Helper()
	h := &harness{
		local:   localstore.NewMemory(),
		remote:  remote.NewMemory(),
		metrics: metrics.NewMock(),
	}
	h.r = New(Deps{
		Local:   h.local,
		Remote:  h.remote,
		Metrics: h.metrics,
		User:    model.User{ID: "u1", Name: "Ana"},
		Now:     func() time.Time { return testNow },
	}, Options{Online: online, SweepInterval: time.Hour, InvitePollInterval: time.Hour})
	require.NoError(t, h.r.Init(context.Background()))
	h.r.WaitForSync()
	t.Cleanup(func() { h.r.Dispose() })
	return h
}

func (h *harness) putTournament(t *testing.T, id string, tour model.Tournament) {
	t.Helper()
	doc, err := remote.Encode(tour)
	require.NoError(t, err)
	h.remote.Put(remote.CollTournaments, id, doc)
}

func (h *harness) putCatch(t *testing.T, id string, c model.Catch) {
	t.Helper()
	doc, err := remote.Encode(c)
	require.NoError(t, err)
	h.remote.Put(remote.CollCatches, id, doc)
}

func (h *harness) queryOne(t *testing.T, collection, field string, value any) remote.Document {
	t.Helper()
	docs, err := h.remote.QueryDocuments(context.Background(), collection, []remote.Filter{remote.Where(field, value)}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

func openTournament(localID string, participants ...string) model.Tournament {
	t := model.Tournament{
		ID:              localID,
		LocalID:         localID,
		Name:            "Copa do Rio",
		CreatorID:       "u1",
		CreatorName:     "Ana",
		CreatedAt:       "2025-06-01T00:00:00Z",
		StartDate:       "2025-06-01",
		EndDate:         "2025-06-30",
		Status:          model.StatusOpen,
		MaxParticipants: 10,
	}
	for _, p := range participants {
		t.Participants = append(t.Participants, model.Participant{UserID: p, UserName: "User " + p})
	}
	t.RecountParticipants()
	return t
}

func strPtr(s string) *string { return &s }

func queueOffline[T any](t *testing.T, r *Reconciler, key string, entity T) {
	t.Helper()
	queued, err := Mutate(context.Background(), r, Mutation[T]{
		Name:   "test",
		Key:    key,
		Entity: entity,
		Write: func(context.Context) error {
			t.Fatal("must not write while offline")
			return nil
		},
	})
	require.NoError(t, err)
	require.True(t, queued)
}

func TestLifecycle(t *testing.T) {
	t.Run("dispose before init", func(t *testing.T) {
		r := New(Deps{Local: localstore.NewMemory(), Remote: remote.NewMemory(), Metrics: metrics.NewMock()}, Options{})
		assert.NoError(t, r.Dispose())
	})

	t.Run("dispose cancels the init context", func(t *testing.T) {
		r := New(Deps{
			Local:   localstore.NewMemory(),
			Remote:  remote.NewMemory(),
			Metrics: metrics.NewMock(),
			User:    model.User{ID: "u1"},
		}, Options{SweepInterval: time.Hour, InvitePollInterval: time.Hour})
		require.NoError(t, r.Init(context.Background()))
		require.NoError(t, r.ctx.Err())
		require.NoError(t, r.Dispose())
		assert.ErrorIs(t, r.ctx.Err(), context.Canceled)
	})
}

func TestMutate(t *testing.T) {
	ctx := context.Background()

	t.Run("online write merges as confirmed", func(t *testing.T) {
		h := newHarness(t, true)
		var mergedPending *bool
		queued, err := Mutate(ctx, h.r, Mutation[model.Catch]{
			Name:   "register catch",
			Key:    localstore.KeyPendingCatches,
			Entity: model.Catch{ID: "tmp-1", Species: "Pacu"},
			Write:  func(context.Context) error { return nil },
			Merge:  func(_ model.Catch, pending bool) { mergedPending = &pending },
		})
		require.NoError(t, err)
		assert.False(t, queued)
		require.NotNil(t, mergedPending)
		assert.False(t, *mergedPending)
		assert.Equal(t, 0, h.r.PendingCount())
	})

	t.Run("offline queues without writing", func(t *testing.T) {
		h := newHarness(t, false)
		var mergedPending bool
		queued, err := Mutate(ctx, h.r, Mutation[model.Catch]{
			Name:   "register catch",
			Key:    localstore.KeyPendingCatches,
			Entity: model.Catch{ID: "tmp-1", Species: "Pacu"},
			Write: func(context.Context) error {
				t.Fatal("write attempted while offline")
				return nil
			},
			Merge: func(_ model.Catch, pending bool) { mergedPending = pending },
		})
		require.NoError(t, err)
		assert.True(t, queued)
		assert.True(t, mergedPending)
		assert.Equal(t, 1, h.r.Pending().Catches)
		assert.Equal(t, 1, h.metrics.PendingOperations())
	})

	t.Run("deferrable failure queues", func(t *testing.T) {
		for _, kind := range []remote.Kind{remote.KindNetworkUnavailable, remote.KindPermissionDenied, remote.KindFailedPrecondition} {
			t.Run(kind.String(), func(t *testing.T) {
				h := newHarness(t, true)
				queued, err := Mutate(ctx, h.r, Mutation[model.Catch]{
					Name:   "register catch",
					Key:    localstore.KeyPendingCatches,
					Entity: model.Catch{ID: "tmp-1"},
					Write: func(context.Context) error {
						return remote.NewError(kind, remote.OpAddDocument, remote.CollCatches, nil)
					},
				})
				require.NoError(t, err)
				assert.True(t, queued)
				assert.Equal(t, 1, h.r.PendingCount())
			})
		}
	})

	t.Run("other failures propagate and queue nothing", func(t *testing.T) {
		h := newHarness(t, true)
		boom := remote.NewError(remote.KindValidation, remote.OpAddDocument, remote.CollCatches, errors.New("rejected"))
		merged := false
		queued, err := Mutate(ctx, h.r, Mutation[model.Catch]{
			Name:   "register catch",
			Key:    localstore.KeyPendingCatches,
			Entity: model.Catch{ID: "tmp-1"},
			Write:  func(context.Context) error { return boom },
			Merge:  func(model.Catch, bool) { merged = true },
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, queued)
		assert.False(t, merged)
		assert.Equal(t, 0, h.r.PendingCount())
	})

	t.Run("same envelope is replaced", func(t *testing.T) {
		h := newHarness(t, false)
		same := func(a, b model.PendingInviteUpdate) bool { return a.InviteID == b.InviteID }
		for _, status := range []model.InviteStatus{model.InviteAccepted, model.InviteDeclined} {
			_, err := Mutate(ctx, h.r, Mutation[model.PendingInviteUpdate]{
				Name:   "respond to invite",
				Key:    localstore.KeyPendingInviteUpdates,
				Entity: model.PendingInviteUpdate{InviteID: "inv-1", Status: status},
				Write:  func(context.Context) error { return nil },
				Same:   same,
			})
			require.NoError(t, err)
		}
		queue := localstore.LoadOr(h.local, localstore.KeyPendingInviteUpdates, []model.PendingInviteUpdate{})
		require.Len(t, queue, 1)
		assert.Equal(t, model.InviteDeclined, queue[0].Status)
	})
}

func TestSync_OfflineRoundTrip(t *testing.T) {
	h := newHarness(t, false)

	tmpTournament := model.NewTempID("u1")
	tour := openTournament(tmpTournament, "u1")
	tour.Pending = true
	queueOffline(t, h.r, localstore.KeyPendingTournaments, tour)
	h.r.UpsertTournament(tour)

	tmpCatch := model.NewTempID("u1")
	queueOffline(t, h.r, localstore.KeyPendingCatches, model.Catch{
		ID: tmpCatch, LocalID: tmpCatch, UserID: "u1", UserName: "Ana", Species: "Dourado", Weight: 4.5,
		TournamentID: strPtr(tmpTournament), RegisteredAt: "2025-06-10T08:00:00Z", Pending: true,
	})
	queueOffline(t, h.r, localstore.KeyPendingParticipation, model.PendingParticipation{
		TournamentID: tmpTournament, UserID: "u2", UserName: "Bia", JoinedAt: "2025-06-10T09:00:00Z",
	})
	require.Equal(t, PendingCounts{Tournaments: 1, Catches: 1, Participations: 1}, h.r.Pending())

	mirrored, ok := h.r.Tournament(tmpTournament)
	require.True(t, ok, "optimistic tournament is visible before sync")
	assert.True(t, mirrored.Pending)

	h.r.SetOnline(true)
	h.r.WaitForSync()

	assert.Equal(t, 0, h.r.PendingCount())
	assert.Equal(t, 1, h.remote.Count(remote.CollTournaments))
	assert.Equal(t, 1, h.remote.Count(remote.CollCatches))

	tournamentDoc := h.queryOne(t, remote.CollTournaments, "localId", tmpTournament)
	remoteID := tournamentDoc.ID()
	require.False(t, model.IsTempID(remoteID))
	assert.Equal(t, 2.0, tournamentDoc["participantCount"])
	assert.Len(t, tournamentDoc["participants"], 2)
	_, hasPending := tournamentDoc["pending"]
	assert.False(t, hasPending)

	catchDoc := h.queryOne(t, remote.CollCatches, "localId", tmpCatch)
	assert.Equal(t, remoteID, catchDoc["tournamentId"], "temp tournament id is resolved")
	assert.Equal(t, model.FormatTime(testNow), catchDoc["syncedAt"])

	synced, ok := h.r.Tournament(remoteID)
	require.True(t, ok)
	assert.False(t, synced.Pending)
	assert.Equal(t, 2, synced.ParticipantCount)
	assert.Len(t, h.r.Tournaments(), 1, "the optimistic row is replaced, not duplicated")

	catches := h.r.Catches()
	require.Len(t, catches, 1)
	assert.False(t, catches[0].Pending)

	assert.Equal(t, 1, h.metrics.ItemsSynced(CategoryTournaments))
	assert.Equal(t, 1, h.metrics.ItemsSynced(CategoryCatches))
	assert.Equal(t, 1, h.metrics.ItemsSynced(CategoryParticipations))
	status := h.r.Status()
	assert.Equal(t, StatusSuccess, status.Status)
	assert.Equal(t, model.FormatTime(testNow), status.LastSyncAt)
}

func TestSync_SkipsItemsAlreadyWritten(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	h.putCatch(t, "remote-1", model.Catch{LocalID: "tmp-1-u1-aaaa", UserID: "u1", Species: "Pacu", Weight: 2})
	require.NoError(t, h.local.Save(localstore.KeyPendingCatches, []model.Catch{
		{ID: "tmp-1-u1-aaaa", LocalID: "tmp-1-u1-aaaa", UserID: "u1", Species: "Pacu", Weight: 2},
		{ID: "tmp-2-u1-bbbb", LocalID: "tmp-2-u1-bbbb", UserID: "u1", Species: "Traíra", Weight: 1},
		{ID: "tmp-2-u1-bbbb", LocalID: "tmp-2-u1-bbbb", UserID: "u1", Species: "Traíra", Weight: 1},
	}))

	report, err := h.r.SyncLocalData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Catches)
	assert.Equal(t, 2, h.remote.Count(remote.CollCatches), "replayed and duplicated entries are written once")
	assert.Equal(t, 0, h.r.PendingCount())
}

func TestSync_ParticipationIsDuplicateSafe(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	existing := openTournament("", "u1", "u2")
	existing.ID, existing.LocalID = "", ""
	existing.ParticipantCount = 7 // drifted counter
	h.putTournament(t, "t1", existing)

	require.NoError(t, h.local.Save(localstore.KeyPendingParticipation, []model.PendingParticipation{
		{TournamentID: "t1", UserID: "u2", UserName: "User u2"},
		{TournamentID: "t1", UserID: "u3", UserName: "User u3"},
		{TournamentID: "t1", UserID: "u3", UserName: "User u3"},
		{TournamentID: "gone", UserID: "u3", UserName: "User u3"},
	}))

	report, err := h.r.SyncLocalData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Participations)

	tour, err := h.r.FetchTournament(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, tour.Participants, 3)
	assert.Equal(t, 3, tour.ParticipantCount)

	doc, err := h.remote.GetDocument(ctx, remote.CollTournaments, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, doc["participantCount"], "count is recomputed from the set")
	assert.Equal(t, 0, h.r.PendingCount(), "participations for missing tournaments are dropped")
}

func TestSync_ParticipationForClosedOrFullTournamentIsDropped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	closed := openTournament("", "u1")
	closed.Status = model.StatusCancelled
	h.putTournament(t, "closed", closed)
	full := openTournament("", "u1", "u2")
	full.MaxParticipants = 2
	h.putTournament(t, "full", full)

	require.NoError(t, h.local.Save(localstore.KeyPendingParticipation, []model.PendingParticipation{
		{TournamentID: "closed", UserID: "u3"},
		{TournamentID: "full", UserID: "u3"},
	}))
	_, err := h.r.SyncLocalData(ctx)
	require.NoError(t, err)

	tour, err := h.r.FetchTournament(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, 2, tour.ParticipantCount)
	assert.Equal(t, 0, h.r.PendingCount())
}

func TestSync_FailingBatchStaysQueued(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	h.remote.BatchHook = func(writes []remote.Write) error {
		for _, w := range writes {
			if w.Collection == remote.CollCatches {
				return remote.NewError(remote.KindNetworkUnavailable, remote.OpBatchWrite, w.Collection, errors.New("connection reset"))
			}
		}
		return nil
	}
	require.NoError(t, h.local.Save(localstore.KeyPendingTournaments, []model.Tournament{openTournament("tmp-1-u1-tttt", "u1")}))
	require.NoError(t, h.local.Save(localstore.KeyPendingCatches, []model.Catch{{ID: "tmp-1-u1-cccc", LocalID: "tmp-1-u1-cccc", UserID: "u1", Weight: 1}}))

	report, err := h.r.SyncLocalData(ctx)
	require.Error(t, err)
	assert.Equal(t, remote.KindNetworkUnavailable, remote.KindOf(err))
	assert.Equal(t, 1, report.Tournaments)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, PendingCounts{Catches: 1}, h.r.Pending())
	assert.Equal(t, 1, h.metrics.SyncFailures(CategoryCatches))

	status := h.r.Status()
	assert.Equal(t, StatusError, status.Status)
	assert.Contains(t, status.LastError, "connection reset")

	h.remote.BatchHook = nil
	_, err = h.r.SyncLocalData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, h.r.PendingCount())
	assert.Equal(t, 1, h.remote.Count(remote.CollTournaments))
}

func TestSync_ChunksLargeQueues(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	var queue []model.Catch
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("tmp-%d-u1-%04d", i, i)
		queue = append(queue, model.Catch{ID: id, LocalID: id, UserID: "u1", Species: "Lambari", Weight: 0.2})
	}
	require.NoError(t, h.local.Save(localstore.KeyPendingCatches, queue))

	var mu sync.Mutex
	var sizes []int
	h.remote.BatchHook = func(writes []remote.Write) error {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(writes))
		return nil
	}

	report, err := h.r.SyncLocalData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1000, report.Catches)
	assert.Equal(t, []int{499, 499, 2}, sizes)
	assert.Equal(t, 1000, h.remote.Count(remote.CollCatches))
	assert.Equal(t, 0, h.r.PendingCount())
}

func TestSync_InviteUpdates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.remote.Put(remote.CollInvites, "inv-1", remote.Document{"toUserId": "u1", "status": "pending", "tournamentId": "t1"})

	require.NoError(t, h.local.Save(localstore.KeyPendingInviteUpdates, []model.PendingInviteUpdate{
		{InviteID: "inv-1", Status: model.InviteAccepted, UpdatedAt: "2025-06-14T10:00:00Z"},
		{InviteID: "missing", Status: model.InviteDeclined, UpdatedAt: "2025-06-14T10:00:00Z"},
	}))

	report, err := h.r.SyncLocalData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.InviteUpdates)

	doc, err := h.remote.GetDocument(ctx, remote.CollInvites, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "accepted", doc["status"])
	assert.Equal(t, "2025-06-14T10:00:00Z", doc["respondedAt"])
	assert.Equal(t, 0, h.r.PendingCount())
	assert.Empty(t, h.r.Invites(), "accepted invite leaves the pending mirror")
}

func TestSync_ConcurrentCallIsNoop(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	require.NoError(t, h.local.Save(localstore.KeyPendingCatches, []model.Catch{{ID: "tmp-1-u1-x", LocalID: "tmp-1-u1-x", UserID: "u1"}}))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.remote.BatchHook = func([]remote.Write) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}

	done := make(chan DrainReport)
	go func() {
		report, _ := h.r.SyncLocalData(ctx)
		done <- report
	}()
	<-entered

	report, err := h.r.SyncLocalData(ctx)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, StatusSyncing, h.r.Status().Status)

	close(release)
	first := <-done
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, first.Catches)
	assert.Equal(t, 1, h.remote.Count(remote.CollCatches))
}

func TestSync_OfflineIsSkipped(t *testing.T) {
	h := newHarness(t, false)
	report, err := h.r.SyncLocalData(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, StatusIdle, h.r.Status().Status)
}

func TestFeeds_MirrorRemoteChanges(t *testing.T) {
	h := newHarness(t, true)
	for _, f := range allFeeds {
		assert.Equal(t, FeedSubscribed, h.r.FeedState(f), f)
	}

	h.putTournament(t, "t1", openTournament("", "u1"))
	h.putTournament(t, "t2", openTournament("", "u2"))
	h.putCatch(t, "c1", model.Catch{UserID: "u1", Species: "Pacu", Weight: 1, RegisteredAt: "2025-06-10T00:00:00Z"})
	h.putCatch(t, "c2", model.Catch{UserID: "u2", Species: "Pacu", Weight: 1, RegisteredAt: "2025-06-11T00:00:00Z"})
	h.remote.Put(remote.CollPosts, "p1", remote.Document{"userId": "u2", "content": "Belo dourado!"})
	h.remote.Put(remote.CollInvites, "inv-1", remote.Document{"toUserId": "u1", "status": "pending"})
	h.remote.Put(remote.CollInvites, "inv-2", remote.Document{"toUserId": "u9", "status": "pending"})

	assert.Len(t, h.r.Tournaments(), 2)
	assert.Len(t, h.r.Catches(), 2)
	assert.Len(t, h.r.Posts(), 1)
	require.Len(t, h.r.Invites(), 1)
	assert.Equal(t, "inv-1", h.r.Invites()[0].ID)

	assert.Len(t, localstore.LoadOr(h.local, localstore.KeyAllTournaments, []model.Tournament{}), 2)
	assert.Len(t, localstore.LoadOr(h.local, localstore.UserTournamentsKey("u1"), []model.Tournament{}), 2, "u1 created both")
	assert.Len(t, localstore.LoadOr(h.local, localstore.UserCatchesKey("u1"), []model.Catch{}), 1)
	assert.Len(t, localstore.LoadOr(h.local, localstore.KeyAllPosts, []model.Post{}), 1)
	assert.Len(t, localstore.LoadOr(h.local, localstore.PendingInvitesKey("u1"), []model.Invite{}), 1)
}

func TestFeeds_PendingRowsSurviveEmissions(t *testing.T) {
	h := newHarness(t, false)
	queueOffline(t, h.r, localstore.KeyPendingCatches, model.Catch{ID: "tmp-1-u1-x", LocalID: "tmp-1-u1-x", UserID: "u1", Species: "Pacu"})
	queueOffline(t, h.r, localstore.KeyPendingParticipation, model.PendingParticipation{TournamentID: "t1", UserID: "u1", UserName: "Ana"})

	tour, err := remote.Encode(openTournament("", "u2"))
	require.NoError(t, err)
	tour[remote.FieldID] = "t1"
	catch, err := remote.Encode(model.Catch{UserID: "u2", Species: "Traíra"})
	require.NoError(t, err)
	catch[remote.FieldID] = "c1"

	h.r.applyCatches([]remote.Document{catch})
	h.r.applyTournaments([]remote.Document{tour})

	catches := h.r.Catches()
	require.Len(t, catches, 2)
	assert.Equal(t, "tmp-1-u1-x", catches[0].ID)
	assert.True(t, catches[0].Pending)

	mirrored, ok := h.r.Tournament("t1")
	require.True(t, ok)
	assert.True(t, mirrored.HasParticipant("u1"), "queued join stays visible")
	assert.Equal(t, 2, mirrored.ParticipantCount)
}

func TestFeeds_InviteFeedFallsBackToPolling(t *testing.T) {
	h := newHarness(t, true)

	h.remote.BreakSubscriptions(remote.CollInvites, remote.NewError(remote.KindPermissionDenied, remote.OpSubscribe, remote.CollInvites, errors.New("index required")))
	assert.Equal(t, FeedPollingFallback, h.r.FeedState(FeedInvites))
	assert.Equal(t, FeedSubscribed, h.r.FeedState(FeedCatches), "other feeds are unaffected")

	// Still failing: the tick falls back to a one-shot read.
	h.remote.SetFault(remote.OpSubscribe, remote.NewError(remote.KindPermissionDenied, remote.OpSubscribe, remote.CollInvites, nil))
	h.remote.Put(remote.CollInvites, "inv-1", remote.Document{"toUserId": "u1", "status": "pending"})
	h.r.pollInvites()
	assert.Equal(t, FeedPollingFallback, h.r.FeedState(FeedInvites))
	assert.Len(t, h.r.Invites(), 1)

	// Recovered: the tick re-subscribes and polling stops.
	h.remote.SetFault(remote.OpSubscribe, nil)
	h.r.pollInvites()
	assert.Equal(t, FeedSubscribed, h.r.FeedState(FeedInvites))
	assert.Equal(t, 1, h.remote.Subscribers(remote.CollInvites))

	h.remote.Put(remote.CollInvites, "inv-2", remote.Document{"toUserId": "u1", "status": "pending"})
	assert.Len(t, h.r.Invites(), 2)
}

func TestFeeds_PollingTickRunsOnSchedule(t *testing.T) {
	h := &harness{local: localstore.NewMemory(), remote: remote.NewMemory(), metrics: metrics.NewMock()}
	h.r = New(Deps{Local: h.local, Remote: h.remote, Metrics: h.metrics, User: model.User{ID: "u1"}},
		Options{Online: true, InvitePollInterval: 20 * time.Millisecond, SweepInterval: time.Hour})
	require.NoError(t, h.r.Init(context.Background()))
	defer h.r.Dispose()
	h.r.WaitForSync()

	h.remote.BreakSubscriptions(remote.CollInvites, remote.NewError(remote.KindNetworkUnavailable, remote.OpSubscribe, remote.CollInvites, nil))
	assert.Eventually(t, func() bool {
		return h.r.FeedState(FeedInvites) == FeedSubscribed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFeeds_LostFeedKeepsCache(t *testing.T) {
	h := newHarness(t, true)
	h.putCatch(t, "c1", model.Catch{UserID: "u1", Species: "Pacu"})

	h.remote.BreakSubscriptions(remote.CollCatches, remote.NewError(remote.KindNetworkUnavailable, remote.OpSubscribe, remote.CollCatches, nil))
	assert.Equal(t, FeedDisconnected, h.r.FeedState(FeedCatches))
	assert.Len(t, h.r.Catches(), 1)
	assert.Len(t, localstore.LoadOr(h.local, localstore.KeyAllCatches, []model.Catch{}), 1)
}

func TestSetOnline_TogglesFeeds(t *testing.T) {
	h := newHarness(t, true)
	h.r.SetOnline(false)
	for _, f := range allFeeds {
		assert.Equal(t, FeedDisconnected, h.r.FeedState(f), f)
	}
	assert.Equal(t, 0, h.remote.Subscribers(remote.CollTournaments))
	assert.False(t, h.r.Status().Online)

	h.r.SetOnline(true)
	h.r.WaitForSync()
	assert.Equal(t, FeedSubscribed, h.r.FeedState(FeedTournaments))
	assert.Equal(t, 1, h.remote.Subscribers(remote.CollTournaments))
}

func TestInit_RestoresMirrorsFromCache(t *testing.T) {
	local := localstore.NewMemory()
	require.NoError(t, local.Save(localstore.KeyAllCatches, []model.Catch{{ID: "c1", Species: "Pacu"}}))
	require.NoError(t, local.Save(localstore.KeyAllTournaments, []model.Tournament{openTournament("t1", "u1")}))
	require.NoError(t, local.Save(localstore.PendingInvitesKey("u1"), []model.Invite{{ID: "inv-1"}}))

	r := New(Deps{Local: local, Remote: remote.NewMemory(), Metrics: metrics.NewMock(), User: model.User{ID: "u1"}}, Options{})
	require.NoError(t, r.Init(context.Background()))
	defer r.Dispose()

	assert.Len(t, r.Catches(), 1)
	assert.Len(t, r.Tournaments(), 1)
	assert.Len(t, r.Invites(), 1)
	assert.False(t, r.IsOnline())
}

func TestJoinRemote(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.putTournament(t, "t1", openTournament("", "u1"))

	tour, changed, err := h.r.JoinRemote(ctx, "t1", model.Participant{UserID: "u2"}, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, tour.ParticipantCount)

	_, changed, err = h.r.JoinRemote(ctx, "t1", model.Participant{UserID: "u2"}, func(model.Tournament) error {
		return errors.New("check must not run for enrolled users")
	})
	require.NoError(t, err)
	assert.False(t, changed)

	rejected := errors.New("full")
	_, _, err = h.r.JoinRemote(ctx, "t1", model.Participant{UserID: "u3"}, func(model.Tournament) error { return rejected })
	assert.ErrorIs(t, err, rejected)

	tour, err = h.r.LeaveRemote(ctx, "t1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, tour.ParticipantCount)
}
