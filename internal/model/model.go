// Package model holds the entities shared by the league, the reconciler and
// the remote store adapters.
package model

import (
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/mauv0809/catch-league/internal/ranking"
)

const tempIDPrefix = "tmp-"

// NewTempID builds a local id for an entity that has not reached the remote
// store yet: creation time, a fragment of the user id and a random suffix.
func NewTempID(userID string) string {
	fragment := userID
	if len(fragment) > 6 {
		fragment = fragment[:6]
	}
	suffix, err := gonanoid.New(8)
	if err != nil {
		// Entropy failures are exceedingly rare; fall back to the clock.
		suffix = fmt.Sprintf("%08d", time.Now().UnixNano()%100000000)
	}
	return fmt.Sprintf("%s%d-%s-%s", tempIDPrefix, time.Now().UnixMilli(), fragment, suffix)
}

// IsTempID reports whether id was generated locally.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// FormatTime renders t the way every stored timestamp is written.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTime parses a stored timestamp. Date-only values are accepted.
func ParseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, value)
}

// Record converts the catch into the ranking engine's input.
func (c Catch) Record() ranking.Record {
	return ranking.Record{
		UserID:   c.UserID,
		UserName: c.UserName,
		Species:  c.Species,
		Weight:   c.Weight,
		Length:   c.Length,
		Date:     c.RegisteredAt,
	}
}

// InTournament reports whether the catch was logged for tournamentID.
func (c Catch) InTournament(tournamentID string) bool {
	return c.TournamentID != nil && *c.TournamentID == tournamentID
}

// Records converts catches into ranking records.
func Records(catches []Catch) []ranking.Record {
	records := make([]ranking.Record, 0, len(catches))
	for _, c := range catches {
		records = append(records, c.Record())
	}
	return records
}

// TournamentCatches filters catches down to one tournament.
func TournamentCatches(catches []Catch, tournamentID string) []Catch {
	var filtered []Catch
	for _, c := range catches {
		if c.InTournament(tournamentID) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// CatchesFor filters catches down to those logged for t under either its
// remote or its local id.
func CatchesFor(t Tournament, catches []Catch) []Catch {
	var filtered []Catch
	for _, c := range catches {
		if c.TournamentID != nil && t.Matches(*c.TournamentID) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// RecountParticipants sets ParticipantCount to the number of distinct user
// ids. The count is never incremented or decremented in place.
func (t *Tournament) RecountParticipants() int {
	seen := make(map[string]struct{}, len(t.Participants))
	for _, p := range t.Participants {
		seen[p.UserID] = struct{}{}
	}
	t.ParticipantCount = len(seen)
	return t.ParticipantCount
}

// HasParticipant reports whether userID is enrolled.
func (t Tournament) HasParticipant(userID string) bool {
	for _, p := range t.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// AddParticipant enrolls p unless the user is already present. It reports
// whether the participant list changed.
func (t *Tournament) AddParticipant(p Participant) bool {
	if t.HasParticipant(p.UserID) {
		t.RecountParticipants()
		return false
	}
	t.Participants = append(t.Participants, p)
	t.RecountParticipants()
	return true
}

// RemoveParticipant drops every entry of userID.
func (t *Tournament) RemoveParticipant(userID string) bool {
	kept := make([]Participant, 0, len(t.Participants))
	removed := false
	for _, p := range t.Participants {
		if p.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	t.Participants = kept
	t.RecountParticipants()
	return removed
}

// IsClosed reports whether the tournament is finished or cancelled.
func (t Tournament) IsClosed() bool {
	return t.Status == StatusFinished || t.Status == StatusCancelled
}

// IsFull reports whether no more distinct participants fit.
func (t Tournament) IsFull() bool {
	if t.MaxParticipants <= 0 {
		return false
	}
	seen := make(map[string]struct{}, len(t.Participants))
	for _, p := range t.Participants {
		seen[p.UserID] = struct{}{}
	}
	return len(seen) >= t.MaxParticipants
}

// CanTransition reports whether the status may move to next. Only open
// tournaments move, and only to finished or cancelled.
func (t Tournament) CanTransition(next TournamentStatus) bool {
	if t.Status != StatusOpen && t.Status != StatusInProgress {
		return false
	}
	return next == StatusFinished || next == StatusCancelled
}

// HasEnded reports whether the end date is before now. Unparsable end dates
// never end.
func (t Tournament) HasEnded(now time.Time) bool {
	end, err := ParseTime(t.EndDate)
	if err != nil {
		return false
	}
	return end.Before(now)
}

// ElapsedFraction returns how much of the tournament window has passed, in
// the range [0, 1].
func (t Tournament) ElapsedFraction(now time.Time) float64 {
	start, err := ParseTime(t.StartDate)
	if err != nil {
		return 0
	}
	end, err := ParseTime(t.EndDate)
	if err != nil || !end.After(start) {
		return 0
	}
	elapsed := now.Sub(start).Seconds() / end.Sub(start).Seconds()
	switch {
	case elapsed < 0:
		return 0
	case elapsed > 1:
		return 1
	default:
		return elapsed
	}
}

// WinnerFrom builds the winner snapshot from the top entry of a ranking.
func WinnerFrom(entries []ranking.Entry) *Winner {
	if len(entries) == 0 {
		return nil
	}
	top := entries[0]
	return &Winner{
		UserID:       top.UserID,
		UserName:     top.UserName,
		TotalWeight:  top.TotalWeight,
		TotalCatches: top.TotalCatches,
		Score:        top.Score,
	}
}

// Clone returns a copy of t that shares no slices with it.
func (t Tournament) Clone() Tournament {
	if t.Participants != nil {
		t.Participants = append([]Participant(nil), t.Participants...)
	}
	if t.FinalRanking != nil {
		t.FinalRanking = append([]ranking.Entry(nil), t.FinalRanking...)
	}
	if t.Winner != nil {
		w := *t.Winner
		t.Winner = &w
	}
	return t
}

// LocalKey is the id the entity was created with on this device, or its
// remote id when it was created elsewhere.
func (t Tournament) LocalKey() string {
	if t.LocalID != "" {
		return t.LocalID
	}
	return t.ID
}

// Matches reports whether id names this tournament, by remote or local id.
func (t Tournament) Matches(id string) bool {
	return id != "" && (t.ID == id || t.LocalID == id)
}

// LocalKey is the id the catch was created with on this device, or its
// remote id when it was created elsewhere.
func (c Catch) LocalKey() string {
	if c.LocalID != "" {
		return c.LocalID
	}
	return c.ID
}
