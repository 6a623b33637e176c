// Package ranking turns raw catch records into ordered leaderboards.
//
// Everything here is a pure function of its input: there is no hidden state,
// and a malformed record is coerced to zero values instead of failing the
// whole computation.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"
)

// ParsePolicy maps a policy name to a Policy. Unknown names fall back to
// PolicyScore.
func ParsePolicy(name string) Policy {
	switch Policy(strings.ToLower(strings.TrimSpace(name))) {
	case PolicyWeight:
		return PolicyWeight
	case PolicyQuantity:
		return PolicyQuantity
	case PolicyBiggest:
		return PolicyBiggest
	case PolicySpecies:
		return PolicySpecies
	default:
		return PolicyScore
	}
}

// Compute aggregates the records per user and returns them ordered by the
// given policy with positions and podium flags assigned.
func Compute(records []Record, policy Policy) []Entry {
	if len(records) == 0 {
		return []Entry{}
	}

	stats := Aggregate(records)
	entries := make([]Entry, 0, len(stats))
	for _, s := range stats {
		entries = append(entries, Entry{Stats: s})
	}

	less := comparator(ParsePolicy(string(policy)))
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i].Stats, entries[j].Stats)
	})

	for i := range entries {
		entries[i].Position = i + 1
		entries[i].IsWinner = entries[i].Position == 1
		entries[i].IsPodium = entries[i].Position <= 3
	}
	return entries
}

// StatsFor returns the stats of a single user, or zero stats when the user
// has no records.
func StatsFor(records []Record, userID string) Stats {
	for _, s := range Aggregate(records) {
		if s.UserID == userID {
			return s
		}
	}
	return Stats{UserID: userID, SpeciesCount: map[string]int{}}
}

// accumulator holds the running state for one user during the single pass.
type accumulator struct {
	stats     Stats
	days      map[string]struct{}
	firstSeen time.Time
	lastSeen  time.Time
}

// Aggregate groups the records by user id and derives every statistic,
// including the composite score. The result is sorted by user id.
func Aggregate(records []Record) []Stats {
	byUser := make(map[string]*accumulator)
	order := make([]string, 0)

	for _, r := range records {
		acc, ok := byUser[r.UserID]
		if !ok {
			acc = &accumulator{
				stats: Stats{
					UserID:       r.UserID,
					UserName:     r.UserName,
					SpeciesCount: make(map[string]int),
				},
				days: make(map[string]struct{}),
			}
			byUser[r.UserID] = acc
			order = append(order, r.UserID)
		}
		if acc.stats.UserName == "" {
			acc.stats.UserName = r.UserName
		}

		weight := safeNumber(r.Weight)
		length := 0.0
		if r.Length != nil {
			length = safeNumber(*r.Length)
		}
		species := strings.TrimSpace(r.Species)
		if species == "" {
			species = UnknownSpecies
		}

		acc.stats.TotalCatches++
		acc.stats.TotalWeight += weight
		acc.stats.TotalLength += length
		acc.stats.SpeciesCount[species]++

		fish := &Fish{Species: species, Weight: weight, Length: length, Date: r.Date}
		// Strictly greater: the first fish seen keeps the slot on ties.
		if acc.stats.BiggestFish == nil || weight > acc.stats.BiggestFish.Weight {
			acc.stats.BiggestFish = fish
		}
		if weight > 0 && (acc.stats.SmallestFish == nil || weight < acc.stats.SmallestFish.Weight) {
			acc.stats.SmallestFish = fish
		}

		if t, ok := parseDate(r.Date); ok {
			acc.days[t.Format(time.DateOnly)] = struct{}{}
			if acc.firstSeen.IsZero() || t.Before(acc.firstSeen) {
				acc.firstSeen = t
				acc.stats.FirstCatchDate = r.Date
			}
			if acc.lastSeen.IsZero() || t.After(acc.lastSeen) {
				acc.lastSeen = t
				acc.stats.LastCatchDate = r.Date
			}
		}
	}

	sort.Strings(order)
	result := make([]Stats, 0, len(order))
	for _, userID := range order {
		acc := byUser[userID]
		s := acc.stats
		if s.TotalCatches > 0 {
			s.AverageWeight = s.TotalWeight / float64(s.TotalCatches)
			s.AverageLength = s.TotalLength / float64(s.TotalCatches)
		}
		s.UniqueSpecies = len(s.SpeciesCount)
		s.ActiveDays = len(acc.days)
		s.Score = Score(s)
		result = append(result, s)
	}
	return result
}

// Score computes the composite score. The weights and bonus thresholds are a
// fixed contract shared with the leaderboards already published.
func Score(s Stats) int {
	score := s.TotalWeight*1 +
		float64(s.TotalCatches)*5 +
		float64(s.UniqueSpecies)*20 +
		s.BiggestWeight()*10 +
		float64(s.ActiveDays)*15
	if s.AverageWeight > 2 {
		score += 50
	}
	if s.TotalCatches > 10 {
		score += 100
	}
	if s.UniqueSpecies > 5 {
		score += 200
	}
	return int(math.Round(score))
}

// comparator returns a "ranks before" function for the policy. Every chain
// ends with the user id so the order is total.
func comparator(policy Policy) func(a, b Stats) bool {
	var keys []func(Stats) float64
	switch policy {
	case PolicyWeight:
		keys = []func(Stats) float64{totalWeight, totalCatches, biggest}
	case PolicyQuantity:
		keys = []func(Stats) float64{totalCatches, totalWeight, uniqueSpecies}
	case PolicyBiggest:
		keys = []func(Stats) float64{biggest, totalWeight, totalCatches}
	case PolicySpecies:
		keys = []func(Stats) float64{uniqueSpecies, totalCatches, totalWeight}
	default:
		keys = []func(Stats) float64{score, totalWeight, totalCatches}
	}

	return func(a, b Stats) bool {
		for _, key := range keys {
			ka, kb := key(a), key(b)
			if ka != kb {
				return ka > kb
			}
		}
		return a.UserID < b.UserID
	}
}

func totalWeight(s Stats) float64   { return s.TotalWeight }
func totalCatches(s Stats) float64  { return float64(s.TotalCatches) }
func biggest(s Stats) float64       { return s.BiggestWeight() }
func uniqueSpecies(s Stats) float64 { return float64(s.UniqueSpecies) }
func score(s Stats) float64         { return float64(s.Score) }

func safeNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
