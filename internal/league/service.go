// Package league implements the user-facing workflows of the fishing
// league: catches, tournaments, invites and leaderboards.
package league

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/pubsub"
	"github.com/mauv0809/catch-league/internal/reconciler"
	"github.com/mauv0809/catch-league/internal/remote"
)

func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = pubsub.NewNoop()
	}
	return &Service{
		r:         deps.Reconciler,
		uploader:  deps.Uploader,
		publisher: publisher,
		metrics:   deps.Metrics,
		now:       now,
	}
}

// RegisterCatch validates and records a catch. It is written online when
// possible and queued otherwise; the returned catch has Pending set when it
// was queued. A failed photo upload leaves the catch without a photo.
func (s *Service) RegisterCatch(ctx context.Context, user model.User, in model.CatchInput, photo []byte) (model.Catch, error) {
	if err := in.Validate(); err != nil {
		return model.Catch{}, err
	}

	var tournamentID *string
	if in.TournamentID != nil && strings.TrimSpace(*in.TournamentID) != "" {
		t, err := s.tournament(strings.TrimSpace(*in.TournamentID))
		if err != nil {
			return model.Catch{}, err
		}
		if t.IsClosed() {
			return model.Catch{}, fmt.Errorf("%w: %s is %s", ErrTournamentClosed, t.Name, t.Status)
		}
		id := t.ID
		tournamentID = &id
	}

	id := model.NewTempID(user.ID)
	c := model.Catch{
		ID:           id,
		LocalID:      id,
		UserID:       user.ID,
		UserName:     user.Name,
		Species:      CanonicalSpecies(in.Species),
		Weight:       in.Weight,
		Length:       in.Length,
		Location:     strings.TrimSpace(in.Location),
		TournamentID: tournamentID,
		RegisteredAt: model.FormatTime(s.now()),
	}
	if len(photo) > 0 {
		c.PhotoURL = s.uploadPhoto(ctx, c, photo)
	}

	result := c
	queued, err := reconciler.Mutate(ctx, s.r, reconciler.Mutation[model.Catch]{
		Name:   "register catch",
		Key:    localstore.KeyPendingCatches,
		Entity: c,
		Write: func(ctx context.Context) error {
			written, err := s.r.AddCatch(ctx, c)
			if err == nil {
				result = written
			}
			return err
		},
		Merge: func(entity model.Catch, pending bool) {
			if pending {
				entity.Pending = true
				result = entity
			}
			s.r.UpsertCatch(result)
		},
	})
	if err != nil {
		return model.Catch{}, fmt.Errorf("failed to register catch: %w", err)
	}
	log.Info("Catch registered", "catchId", result.ID, "user", user.ID, "species", result.Species, "weight", result.Weight, "queued", queued)
	s.publish(pubsub.EventCatchRegistered, pubsub.NewCatchRegistered(result, queued))
	return result, nil
}

func (s *Service) uploadPhoto(ctx context.Context, c model.Catch, photo []byte) *string {
	if s.uploader == nil {
		return nil
	}
	path := fmt.Sprintf("catches/%s/%s", c.UserID, c.LocalID)
	url, err := s.uploader.UploadFile(ctx, path, photo)
	if err != nil {
		log.Warn("Photo upload failed, registering catch without photo", "catchId", c.LocalID, "error", err)
		return nil
	}
	return &url
}

// CreateTournament validates and records a tournament with its creator as
// the first participant.
func (s *Service) CreateTournament(ctx context.Context, user model.User, in model.TournamentInput) (model.Tournament, error) {
	if err := in.Validate(); err != nil {
		return model.Tournament{}, err
	}
	now := model.FormatTime(s.now())
	id := model.NewTempID(user.ID)
	t := model.Tournament{
		ID:              id,
		LocalID:         id,
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		CreatorID:       user.ID,
		CreatorName:     user.Name,
		CreatedAt:       now,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Status:          model.StatusOpen,
		MaxParticipants: in.MaxParticipants,
		EntryFee:        in.EntryFee,
		PrizePool:       in.PrizePool,
	}
	t.AddParticipant(model.Participant{UserID: user.ID, UserName: user.Name, JoinedAt: now})

	result := t
	queued, err := reconciler.Mutate(ctx, s.r, reconciler.Mutation[model.Tournament]{
		Name:   "create tournament",
		Key:    localstore.KeyPendingTournaments,
		Entity: t,
		Write: func(ctx context.Context) error {
			written, err := s.r.AddTournament(ctx, t)
			if err == nil {
				result = written
			}
			return err
		},
		Merge: func(entity model.Tournament, pending bool) {
			if pending {
				entity = entity.Clone()
				entity.Pending = true
				result = entity
			}
			s.r.UpsertTournament(result)
		},
	})
	if err != nil {
		return model.Tournament{}, fmt.Errorf("failed to create tournament: %w", err)
	}
	log.Info("Tournament created", "tournamentId", result.ID, "name", result.Name, "creator", user.ID, "queued", queued)
	return result, nil
}

// JoinTournament enrolls user. Joining twice is a no-op. Offline joins are
// queued and shown as pending participants.
func (s *Service) JoinTournament(ctx context.Context, user model.User, tournamentID string) (model.Tournament, error) {
	t, err := s.tournament(tournamentID)
	if err != nil {
		return model.Tournament{}, err
	}
	if t.HasParticipant(user.ID) {
		return t, nil
	}
	if err := joinable(t); err != nil {
		return model.Tournament{}, err
	}

	joinedAt := model.FormatTime(s.now())
	participant := model.Participant{UserID: user.ID, UserName: user.Name, JoinedAt: joinedAt}
	pending := model.PendingParticipation{TournamentID: t.ID, UserID: user.ID, UserName: user.Name, JoinedAt: joinedAt}

	result := t
	queued, err := reconciler.Mutate(ctx, s.r, reconciler.Mutation[model.PendingParticipation]{
		Name:   "join tournament",
		Key:    localstore.KeyPendingParticipation,
		Entity: pending,
		Write: func(ctx context.Context) error {
			remoteID, ok, err := s.r.ResolveTournamentID(ctx, t.ID)
			if err != nil {
				return err
			}
			if !ok {
				return remote.NewError(remote.KindFailedPrecondition, "join tournament", remote.CollTournaments,
					fmt.Errorf("tournament %s is not synced yet", t.ID))
			}
			fresh, _, err := s.r.JoinRemote(ctx, remoteID, participant, joinable)
			if err == nil {
				result = fresh
			}
			return err
		},
		Merge: func(_ model.PendingParticipation, pending bool) {
			if pending {
				result = t.Clone()
				p := participant
				p.Pending = true
				result.AddParticipant(p)
			}
			s.r.UpsertTournament(result)
		},
		Same: func(queued, entity model.PendingParticipation) bool {
			return queued.TournamentID == entity.TournamentID && queued.UserID == entity.UserID
		},
	})
	if err != nil {
		return model.Tournament{}, fmt.Errorf("failed to join %s: %w", t.Name, err)
	}
	log.Info("Joined tournament", "tournamentId", t.ID, "user", user.ID, "participants", result.ParticipantCount, "queued", queued)
	return result, nil
}

// LeaveTournament removes user from the tournament. The owner cannot leave.
func (s *Service) LeaveTournament(ctx context.Context, user model.User, tournamentID string) (model.Tournament, error) {
	t, remoteID, err := s.connectedTournament(ctx, tournamentID)
	if err != nil {
		return model.Tournament{}, err
	}
	if t.CreatorID == user.ID {
		return model.Tournament{}, ErrOwnerCannotLeave
	}
	fresh, err := s.r.LeaveRemote(ctx, remoteID, user.ID)
	if err != nil {
		return model.Tournament{}, fmt.Errorf("failed to leave %s: %w", t.Name, err)
	}
	s.r.UpsertTournament(fresh)
	log.Info("Left tournament", "tournamentId", remoteID, "user", user.ID, "participants", fresh.ParticipantCount)
	return fresh, nil
}

// CancelTournament moves an open tournament to cancelled. Owner only.
func (s *Service) CancelTournament(ctx context.Context, user model.User, tournamentID string) (model.Tournament, error) {
	t, remoteID, err := s.connectedTournament(ctx, tournamentID)
	if err != nil {
		return model.Tournament{}, err
	}
	if err := ownedTransition(t, user, model.StatusCancelled); err != nil {
		return model.Tournament{}, err
	}
	if err := s.r.SetTournamentStatus(ctx, remoteID, model.StatusCancelled); err != nil {
		return model.Tournament{}, fmt.Errorf("failed to cancel %s: %w", t.Name, err)
	}
	t.ID = remoteID
	t.Status = model.StatusCancelled
	t.Pending = false
	s.r.UpsertTournament(t)
	log.Info("Tournament cancelled", "tournamentId", remoteID, "user", user.ID)
	return t, nil
}

// FinishTournament freezes the ranking of an open tournament ahead of its
// end date. Owner only, and only once EarlyFinishThreshold of the window
// has elapsed.
func (s *Service) FinishTournament(ctx context.Context, user model.User, tournamentID string) (model.Tournament, error) {
	t, remoteID, err := s.connectedTournament(ctx, tournamentID)
	if err != nil {
		return model.Tournament{}, err
	}
	if err := ownedTransition(t, user, model.StatusFinished); err != nil {
		return model.Tournament{}, err
	}
	if elapsed := t.ElapsedFraction(s.now()); elapsed < EarlyFinishThreshold {
		return model.Tournament{}, fmt.Errorf("%w: only %.0f%% of %s has elapsed, at least %.0f%% is required",
			ErrEarlyFinish, elapsed*100, t.Name, EarlyFinishThreshold*100)
	}
	t.ID = remoteID
	finished, err := s.r.Finish(ctx, t)
	if err != nil {
		return model.Tournament{}, fmt.Errorf("failed to finish %s: %w", t.Name, err)
	}
	return finished, nil
}

// Tournaments lists the mirrored tournaments.
func (s *Service) Tournaments() []model.Tournament {
	return s.r.Tournaments()
}

func (s *Service) tournament(id string) (model.Tournament, error) {
	t, ok := s.r.Tournament(id)
	if !ok {
		return model.Tournament{}, fmt.Errorf("%w: tournament %s", ErrNotFound, id)
	}
	return t, nil
}

// connectedTournament looks up a tournament for an action that only works
// online, and returns its remote id.
func (s *Service) connectedTournament(ctx context.Context, id string) (model.Tournament, string, error) {
	if !s.r.IsOnline() {
		return model.Tournament{}, "", ErrRequiresConnection
	}
	t, err := s.tournament(id)
	if err != nil {
		return model.Tournament{}, "", err
	}
	remoteID, err := s.resolve(ctx, t)
	if err != nil {
		return model.Tournament{}, "", err
	}
	return t, remoteID, nil
}

func (s *Service) resolve(ctx context.Context, t model.Tournament) (string, error) {
	remoteID, ok, err := s.r.ResolveTournamentID(ctx, t.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s has not synced yet", ErrRequiresConnection, t.Name)
	}
	return remoteID, nil
}

func (s *Service) publish(topic pubsub.EventType, data any) {
	if err := s.publisher.SendMessage(topic, data); err != nil {
		log.Warn("Failed to publish event", "topic", topic, "error", err)
	}
}

func joinable(t model.Tournament) error {
	if t.IsClosed() {
		return fmt.Errorf("%w: %s is %s", ErrTournamentClosed, t.Name, t.Status)
	}
	if t.IsFull() {
		return fmt.Errorf("%w: %s has %d of %d places taken", ErrTournamentFull, t.Name, t.ParticipantCount, t.MaxParticipants)
	}
	return nil
}

func ownedTransition(t model.Tournament, user model.User, next model.TournamentStatus) error {
	if t.CreatorID != user.ID {
		return fmt.Errorf("%w: %s", ErrNotOwner, t.Name)
	}
	if !t.CanTransition(next) {
		return fmt.Errorf("%w: %s is already %s", ErrTournamentClosed, t.Name, t.Status)
	}
	return nil
}
