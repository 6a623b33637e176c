package reconciler

import (
	"context"

	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/remote"
)

// FetchTournament reads the current remote state of a tournament.
func (r *Reconciler) FetchTournament(ctx context.Context, id string) (model.Tournament, error) {
	doc, err := r.remote.GetDocument(ctx, remote.CollTournaments, id)
	if err != nil {
		return model.Tournament{}, err
	}
	var t model.Tournament
	if err := remote.Decode(doc, &t); err != nil {
		return model.Tournament{}, err
	}
	t.ID = id
	t.RecountParticipants()
	return t, nil
}

// JoinRemote enrolls p in a fresh read of the tournament. A user already
// enrolled is left as is and changed is false. check runs against the fresh
// read before anything is written.
func (r *Reconciler) JoinRemote(ctx context.Context, tournamentID string, p model.Participant, check func(model.Tournament) error) (t model.Tournament, changed bool, err error) {
	t, err = r.FetchTournament(ctx, tournamentID)
	if err != nil {
		return t, false, err
	}
	if t.HasParticipant(p.UserID) {
		return t, false, nil
	}
	if check != nil {
		if err := check(t); err != nil {
			return t, false, err
		}
	}
	t.AddParticipant(p)
	return t, true, r.writeParticipants(ctx, t)
}

// LeaveRemote removes userID from a fresh read of the tournament.
func (r *Reconciler) LeaveRemote(ctx context.Context, tournamentID, userID string) (model.Tournament, error) {
	t, err := r.FetchTournament(ctx, tournamentID)
	if err != nil {
		return t, err
	}
	if !t.RemoveParticipant(userID) {
		return t, nil
	}
	return t, r.writeParticipants(ctx, t)
}

func (r *Reconciler) writeParticipants(ctx context.Context, t model.Tournament) error {
	doc, err := participantsDoc(t)
	if err != nil {
		return err
	}
	return r.remote.UpdateDocument(ctx, remote.CollTournaments, t.ID, doc)
}
