package reconciler

import (
	"context"
	"fmt"

	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/remote"
)

// AddCatch writes c online and returns it carrying its remote id. A catch
// whose tournament only exists locally fails with a failed-precondition
// error so the caller queues it behind that tournament.
func (r *Reconciler) AddCatch(ctx context.Context, c model.Catch) (model.Catch, error) {
	if c.TournamentID != nil {
		id, ok, err := r.ResolveTournamentID(ctx, *c.TournamentID)
		if err != nil {
			return c, err
		}
		if !ok {
			return c, remote.NewError(remote.KindFailedPrecondition, "add catch", remote.CollCatches,
				fmt.Errorf("tournament %s is not synced yet", *c.TournamentID))
		}
		c.TournamentID = &id
	}
	syncedAt := model.FormatTime(r.now())
	doc, err := catchDoc(c, syncedAt)
	if err != nil {
		return c, err
	}
	id, err := r.remote.AddDocument(ctx, remote.CollCatches, doc)
	if err != nil {
		return c, err
	}
	c.LocalID = c.LocalKey()
	c.ID = id
	c.SyncedAt = &syncedAt
	c.Pending = false
	return c, nil
}

// AddTournament writes t online and returns it carrying its remote id.
func (r *Reconciler) AddTournament(ctx context.Context, t model.Tournament) (model.Tournament, error) {
	doc, err := tournamentDoc(t)
	if err != nil {
		return t, err
	}
	id, err := r.remote.AddDocument(ctx, remote.CollTournaments, doc)
	if err != nil {
		return t, err
	}
	t = t.Clone()
	t.LocalID = t.LocalKey()
	t.ID = id
	t.Pending = false
	for i := range t.Participants {
		t.Participants[i].Pending = false
	}
	t.RecountParticipants()
	return t, nil
}

// SetTournamentStatus moves a remote tournament to status.
func (r *Reconciler) SetTournamentStatus(ctx context.Context, id string, status model.TournamentStatus) error {
	return r.remote.UpdateDocument(ctx, remote.CollTournaments, id, remote.Document{"status": string(status)})
}

// AddInvite writes a new invite and returns it carrying its remote id.
func (r *Reconciler) AddInvite(ctx context.Context, inv model.Invite) (model.Invite, error) {
	doc, err := remote.Encode(inv)
	if err != nil {
		return inv, err
	}
	delete(doc, remote.FieldID)
	id, err := r.remote.AddDocument(ctx, remote.CollInvites, doc)
	if err != nil {
		return inv, err
	}
	inv.ID = id
	return inv, nil
}

// UpdateInvite writes an invite response online.
func (r *Reconciler) UpdateInvite(ctx context.Context, u model.PendingInviteUpdate) error {
	return r.remote.UpdateDocument(ctx, remote.CollInvites, u.InviteID,
		remote.Document{"status": string(u.Status), "respondedAt": u.UpdatedAt})
}

// PendingInvite reports whether the user already holds an unanswered
// invite to tournamentID.
func (r *Reconciler) PendingInvite(ctx context.Context, tournamentID, userID string) (bool, error) {
	docs, err := r.remote.QueryDocuments(ctx, remote.CollInvites, []remote.Filter{
		remote.Where("tournamentId", tournamentID),
		remote.Where("toUserId", userID),
		remote.Where("status", string(model.InvitePending)),
	}, nil)
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}
