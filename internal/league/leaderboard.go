package league

import (
	"time"

	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/ranking"
	"github.com/mauv0809/catch-league/internal/reconciler"
)

// Leaderboard ranks the catches of one tournament, or every mirrored catch
// when tournamentID is empty. Finished tournaments return their frozen
// ranking whatever the policy.
func (s *Service) Leaderboard(tournamentID string, policy ranking.Policy) (Leaderboard, error) {
	catches := s.r.Catches()
	if tournamentID == "" {
		return Leaderboard{Policy: policy, Entries: s.compute(catches, policy)}, nil
	}

	t, err := s.tournament(tournamentID)
	if err != nil {
		return Leaderboard{}, err
	}
	board := Leaderboard{TournamentID: t.ID, Name: t.Name, Policy: policy}
	if t.Status == model.StatusFinished && t.FinalRanking != nil {
		board.Policy = reconciler.FinishPolicy
		board.Frozen = true
		board.Entries = t.FinalRanking
		return board, nil
	}
	board.Entries = s.compute(model.CatchesFor(t, catches), policy)
	return board, nil
}

// UserStats derives the statistics of one user from every mirrored catch.
func (s *Service) UserStats(userID string) ranking.Stats {
	return ranking.StatsFor(model.Records(s.r.Catches()), userID)
}

func (s *Service) compute(catches []model.Catch, policy ranking.Policy) []ranking.Entry {
	start := time.Now()
	entries := ranking.Compute(model.Records(catches), policy)
	s.metrics.ObserveRankingDuration(time.Since(start).Seconds())
	return entries
}
