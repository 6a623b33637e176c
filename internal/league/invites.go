package league

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/reconciler"
)

// InviteUser asks toUserID to join a tournament. Only participants invite,
// and only while online.
func (s *Service) InviteUser(ctx context.Context, from model.User, tournamentID, toUserID string) (model.Invite, error) {
	t, remoteID, err := s.connectedTournament(ctx, tournamentID)
	if err != nil {
		return model.Invite{}, err
	}
	if !t.HasParticipant(from.ID) {
		return model.Invite{}, fmt.Errorf("%w: %s", ErrNotParticipant, t.Name)
	}
	if t.HasParticipant(toUserID) {
		return model.Invite{}, fmt.Errorf("%w: %s is in %s", ErrAlreadyJoined, toUserID, t.Name)
	}
	if err := joinable(t); err != nil {
		return model.Invite{}, err
	}
	exists, err := s.r.PendingInvite(ctx, remoteID, toUserID)
	if err != nil {
		return model.Invite{}, fmt.Errorf("failed to check invites: %w", err)
	}
	if exists {
		return model.Invite{}, fmt.Errorf("%w: %s to %s", ErrAlreadyInvited, toUserID, t.Name)
	}

	inv, err := s.r.AddInvite(ctx, model.Invite{
		TournamentID:   remoteID,
		TournamentName: t.Name,
		FromUserID:     from.ID,
		FromUserName:   from.Name,
		ToUserID:       toUserID,
		Status:         model.InvitePending,
		CreatedAt:      model.FormatTime(s.now()),
	})
	if err != nil {
		return model.Invite{}, fmt.Errorf("failed to invite %s: %w", toUserID, err)
	}
	log.Info("Invite sent", "inviteId", inv.ID, "tournamentId", remoteID, "from", from.ID, "to", toUserID)
	return inv, nil
}

// RespondToInvite accepts or declines one of the user's pending invites.
// Accepting joins the tournament first; the response is queued when
// offline.
func (s *Service) RespondToInvite(ctx context.Context, user model.User, inviteID string, accept bool) (model.PendingInviteUpdate, error) {
	var inv model.Invite
	found := false
	for _, candidate := range s.r.Invites() {
		if candidate.ID == inviteID {
			inv, found = candidate, true
			break
		}
	}
	if !found {
		return model.PendingInviteUpdate{}, fmt.Errorf("%w: invite %s", ErrNotFound, inviteID)
	}
	if inv.ToUserID != user.ID {
		return model.PendingInviteUpdate{}, fmt.Errorf("%w: invite %s", ErrNotInvitee, inviteID)
	}

	status := model.InviteDeclined
	if accept {
		status = model.InviteAccepted
		if _, err := s.JoinTournament(ctx, user, inv.TournamentID); err != nil {
			return model.PendingInviteUpdate{}, err
		}
	}

	update := model.PendingInviteUpdate{
		InviteID:     inv.ID,
		TournamentID: inv.TournamentID,
		Status:       status,
		UpdatedAt:    model.FormatTime(s.now()),
	}
	queued, err := reconciler.Mutate(ctx, s.r, reconciler.Mutation[model.PendingInviteUpdate]{
		Name:   "respond to invite",
		Key:    localstore.KeyPendingInviteUpdates,
		Entity: update,
		Write: func(ctx context.Context) error {
			return s.r.UpdateInvite(ctx, update)
		},
		Merge: func(u model.PendingInviteUpdate, _ bool) {
			s.r.RemoveInvite(u.InviteID)
		},
		Same: func(queued, entity model.PendingInviteUpdate) bool {
			return queued.InviteID == entity.InviteID
		},
	})
	if err != nil {
		return model.PendingInviteUpdate{}, fmt.Errorf("failed to answer invite: %w", err)
	}
	log.Info("Invite answered", "inviteId", inv.ID, "user", user.ID, "status", status, "queued", queued)
	return update, nil
}
