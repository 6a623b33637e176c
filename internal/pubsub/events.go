package pubsub

import "github.com/mauv0809/catch-league/internal/model"

// NewCatchRegistered builds the event for a registered catch.
func NewCatchRegistered(c model.Catch, queued bool) CatchRegistered {
	event := CatchRegistered{
		CatchID:  c.ID,
		UserID:   c.UserID,
		UserName: c.UserName,
		Species:  c.Species,
		Weight:   c.Weight,
		Queued:   queued,
	}
	if c.TournamentID != nil {
		event.TournamentID = *c.TournamentID
	}
	return event
}

// NewTournamentFinished builds the event for a finished tournament from its
// frozen ranking.
func NewTournamentFinished(t model.Tournament) TournamentFinished {
	event := TournamentFinished{
		TournamentID: t.ID,
		Name:         t.Name,
		Participants: t.ParticipantCount,
		FinishedAt:   t.FinishedAt,
		Winner:       t.Winner,
		Ranking:      make([]RankingEntry, 0, len(t.FinalRanking)),
	}
	for _, e := range t.FinalRanking {
		event.Ranking = append(event.Ranking, RankingEntry{
			Position:     e.Position,
			UserID:       e.UserID,
			UserName:     e.UserName,
			TotalWeight:  e.TotalWeight,
			TotalCatches: e.TotalCatches,
			Score:        e.Score,
		})
	}
	return event
}
