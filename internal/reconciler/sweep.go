package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/ranking"
	"github.com/mauv0809/catch-league/internal/remote"
)

// FinishPolicy is the ranking policy frozen into finished tournaments.
const FinishPolicy = ranking.PolicyWeight

// Finalize returns t finished at now, with its final ranking and winner
// computed from the catches logged for it.
func Finalize(t model.Tournament, catches []model.Catch, now time.Time) model.Tournament {
	t = t.Clone()
	entries := ranking.Compute(model.Records(model.CatchesFor(t, catches)), FinishPolicy)
	t.FinalRanking = entries
	t.Winner = model.WinnerFrom(entries)
	t.Status = model.StatusFinished
	t.FinishedAt = model.FormatTime(now)
	return t
}

// Sweep finishes every mirrored tournament whose end date has passed. The
// mirror is updated regardless of connectivity; the result is persisted
// and announced only when online. It returns how many tournaments ended.
func (r *Reconciler) Sweep(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	var expired []model.Tournament
	for _, t := range r.tournaments {
		if !t.IsClosed() && t.HasEnded(now) {
			expired = append(expired, t.Clone())
		}
	}
	catches := append([]model.Catch(nil), r.catches...)
	r.mu.Unlock()

	for _, t := range expired {
		log.Info("Tournament expired", "tournamentId", t.ID, "name", t.Name, "endDate", t.EndDate)
		if model.IsTempID(t.ID) {
			r.finishQueued(t, catches, now)
			r.UpsertTournament(r.finalize(t, catches, now))
			continue
		}
		if !r.IsOnline() {
			r.UpsertTournament(r.finalize(t, catches, now))
			continue
		}
		if _, err := r.finish(ctx, t, catches, now); err != nil {
			log.Warn("Failed to persist expired tournament", "tournamentId", t.ID, "error", err)
			r.UpsertTournament(r.finalize(t, catches, now))
		}
	}
	return len(expired)
}

// finishQueued finishes the queued copy of a tournament that has not reached
// the remote store, so later remote emissions do not reopen it and the drain
// writes it finished.
func (r *Reconciler) finishQueued(t model.Tournament, catches []model.Catch, now time.Time) {
	key := t.LocalKey()
	_, err := replaceQueued(r, localstore.KeyPendingTournaments,
		func(q model.Tournament) bool { return q.LocalKey() == key },
		func(q model.Tournament) model.Tournament { return Finalize(q, catches, now) })
	if err != nil {
		log.Error("Failed to finish queued tournament", "localId", key, "error", err)
	}
}

// Finish freezes the ranking of t, persists it with a notification per
// participant and runs the finished hooks.
func (r *Reconciler) Finish(ctx context.Context, t model.Tournament) (model.Tournament, error) {
	return r.finish(ctx, t, r.Catches(), r.now())
}

func (r *Reconciler) finish(ctx context.Context, t model.Tournament, catches []model.Catch, now time.Time) (model.Tournament, error) {
	finished := r.finalize(t, catches, now)
	if err := r.persistFinish(ctx, finished, now); err != nil {
		return t, err
	}
	r.UpsertTournament(finished)
	r.metrics.IncTournamentsFinished()
	r.addCounter("tournaments_finished", 1)
	log.Info("Tournament finished", "tournamentId", finished.ID, "participants", finished.ParticipantCount, "winner", winnerName(finished))

	r.mu.Lock()
	hooks := append([]FinishedHook(nil), r.hooks...)
	r.mu.Unlock()
	for _, hook := range hooks {
		hook(finished)
	}
	return finished, nil
}

func (r *Reconciler) finalize(t model.Tournament, catches []model.Catch, now time.Time) model.Tournament {
	start := time.Now()
	finished := Finalize(t, catches, now)
	r.metrics.ObserveRankingDuration(time.Since(start).Seconds())
	return finished
}

func (r *Reconciler) persistFinish(ctx context.Context, t model.Tournament, now time.Time) error {
	update, err := remote.Encode(struct {
		Status       model.TournamentStatus `json:"status"`
		FinalRanking []ranking.Entry        `json:"finalRanking"`
		Winner       *model.Winner          `json:"winner"`
		FinishedAt   string                 `json:"finishedAt"`
	}{t.Status, t.FinalRanking, t.Winner, t.FinishedAt})
	if err != nil {
		return err
	}
	writes := []remote.Write{{Kind: remote.WriteUpdate, Collection: remote.CollTournaments, ID: t.ID, Data: update}}
	for _, n := range finishNotifications(t, now) {
		doc, err := remote.Encode(n)
		if err != nil {
			return err
		}
		delete(doc, remote.FieldID)
		writes = append(writes, remote.Write{Kind: remote.WriteAdd, Collection: remote.CollNotifications, Data: doc})
	}
	for _, chunk := range chunks(writes, remote.MaxBatchSize) {
		if err := r.remote.BatchWrite(ctx, chunk); err != nil {
			return fmt.Errorf("failed to persist finished tournament %s: %w", t.ID, err)
		}
	}
	return nil
}

func finishNotifications(t model.Tournament, now time.Time) []model.Notification {
	message := fmt.Sprintf("%s has ended.", t.Name)
	if t.Winner != nil {
		message = fmt.Sprintf("%s has ended. Winner: %s with %.2f kg.", t.Name, t.Winner.UserName, t.Winner.TotalWeight)
	}
	seen := make(map[string]bool)
	var out []model.Notification
	for _, p := range t.Participants {
		if seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		out = append(out, model.Notification{
			UserID:       p.UserID,
			Type:         "tournament_finished",
			Title:        "Tournament finished",
			Message:      message,
			TournamentID: t.ID,
			CreatedAt:    model.FormatTime(now),
		})
	}
	return out
}

func winnerName(t model.Tournament) string {
	if t.Winner == nil {
		return ""
	}
	return t.Winner.UserName
}
