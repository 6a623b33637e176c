package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func length(v float64) *float64 { return &v }

func e2eRecords() []Record {
	return []Record{
		{UserID: "userA", UserName: "User A", Species: "Dourado", Weight: 4.5, Date: "2025-03-01T08:00:00Z"},
		{UserID: "userA", UserName: "User A", Species: "Pacu", Weight: 2.1, Date: "2025-03-01T10:00:00Z"},
		{UserID: "userB", UserName: "User B", Species: "Pintado", Weight: 8.2, Date: "2025-03-02T09:30:00Z"},
	}
}

func TestCompute_EndToEndScenario(t *testing.T) {
	t.Run("weight policy puts the heaviest total first", func(t *testing.T) {
		ranking := Compute(e2eRecords(), PolicyWeight)
		require.Len(t, ranking, 2)

		assert.Equal(t, "userB", ranking[0].UserID)
		assert.InDelta(t, 8.2, ranking[0].TotalWeight, 0.0001)
		assert.Equal(t, 1, ranking[0].TotalCatches)

		assert.Equal(t, "userA", ranking[1].UserID)
		assert.InDelta(t, 6.6, ranking[1].TotalWeight, 0.0001)
		assert.Equal(t, 2, ranking[1].TotalCatches)
	})

	t.Run("quantity policy puts the most catches first", func(t *testing.T) {
		ranking := Compute(e2eRecords(), PolicyQuantity)
		require.Len(t, ranking, 2)
		assert.Equal(t, "userA", ranking[0].UserID)
		assert.Equal(t, "userB", ranking[1].UserID)
	})
}

func TestCompute_EmptyInput(t *testing.T) {
	for _, policy := range []Policy{PolicyScore, PolicyWeight, PolicyQuantity, PolicyBiggest, PolicySpecies, "bogus"} {
		t.Run(string(policy), func(t *testing.T) {
			assert.Empty(t, Compute(nil, policy))
			result := Compute([]Record{}, policy)
			require.NotNil(t, result)
			assert.Len(t, result, 0)
		})
	}
}

func TestCompute_PositionContract(t *testing.T) {
	records := []Record{
		{UserID: "a", Weight: 1, Species: "Tilápia"},
		{UserID: "b", Weight: 2, Species: "Tilápia"},
		{UserID: "c", Weight: 3, Species: "Tilápia"},
		{UserID: "d", Weight: 4, Species: "Tilápia"},
		{UserID: "e", Weight: 5, Species: "Tilápia"},
	}

	for _, policy := range []Policy{PolicyScore, PolicyWeight, PolicyQuantity, PolicyBiggest, PolicySpecies} {
		t.Run(string(policy), func(t *testing.T) {
			ranking := Compute(records, policy)
			require.Len(t, ranking, 5)
			for i, entry := range ranking {
				assert.Equal(t, i+1, entry.Position)
				assert.Equal(t, i == 0, entry.IsWinner)
				assert.Equal(t, entry.Position <= 3, entry.IsPodium)
			}
		})
	}
}

func TestCompute_IsDeterministic(t *testing.T) {
	records := []Record{
		{UserID: "x", Weight: 2, Species: "Pacu", Date: "2025-01-01"},
		{UserID: "y", Weight: 2, Species: "Pacu", Date: "2025-01-01"},
		{UserID: "z", Weight: 2, Species: "Pacu", Date: "2025-01-01"},
		{UserID: "x", Weight: 1, Species: "Traíra", Date: "2025-01-02"},
	}

	first := Compute(records, PolicyScore)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Compute(records, PolicyScore))
	}
}

func TestCompute_WeightTieBreakChain(t *testing.T) {
	t.Run("equal weight falls back to catch count", func(t *testing.T) {
		records := []Record{
			{UserID: "solo", Weight: 6, Species: "Dourado"},
			{UserID: "duo", Weight: 3, Species: "Dourado"},
			{UserID: "duo", Weight: 3, Species: "Dourado"},
		}
		ranking := Compute(records, PolicyWeight)
		require.Len(t, ranking, 2)
		assert.Equal(t, "duo", ranking[0].UserID)
		assert.Equal(t, "solo", ranking[1].UserID)
	})

	t.Run("equal weight and count falls back to biggest fish", func(t *testing.T) {
		records := []Record{
			{UserID: "even", Weight: 3, Species: "Pacu"},
			{UserID: "even", Weight: 3, Species: "Pacu"},
			{UserID: "lopsided", Weight: 5, Species: "Pacu"},
			{UserID: "lopsided", Weight: 1, Species: "Pacu"},
		}
		ranking := Compute(records, PolicyWeight)
		require.Len(t, ranking, 2)
		assert.Equal(t, "lopsided", ranking[0].UserID)
		assert.Equal(t, "even", ranking[1].UserID)
	})
}

func TestCompute_PolicyOrdering(t *testing.T) {
	records := []Record{
		// heavy: one huge fish
		{UserID: "heavy", Weight: 12, Species: "Pirarucu", Date: "2025-02-01"},
		// many: lots of small catches of one species
		{UserID: "many", Weight: 0.5, Species: "Lambari", Date: "2025-02-01"},
		{UserID: "many", Weight: 0.5, Species: "Lambari", Date: "2025-02-01"},
		{UserID: "many", Weight: 0.5, Species: "Lambari", Date: "2025-02-01"},
		{UserID: "many", Weight: 0.5, Species: "Lambari", Date: "2025-02-01"},
		// varied: three species
		{UserID: "varied", Weight: 1, Species: "Pacu", Date: "2025-02-01"},
		{UserID: "varied", Weight: 1, Species: "Traíra", Date: "2025-02-01"},
		{UserID: "varied", Weight: 1, Species: "Tucunaré", Date: "2025-02-01"},
	}

	assert.Equal(t, "heavy", Compute(records, PolicyBiggest)[0].UserID)
	assert.Equal(t, "heavy", Compute(records, PolicyWeight)[0].UserID)
	assert.Equal(t, "many", Compute(records, PolicyQuantity)[0].UserID)
	assert.Equal(t, "varied", Compute(records, PolicySpecies)[0].UserID)
}

func TestScore_Formula(t *testing.T) {
	s := Stats{
		TotalWeight:   10,
		TotalCatches:  12,
		UniqueSpecies: 6,
		BiggestFish:   &Fish{Weight: 5},
		ActiveDays:    3,
		AverageWeight: 0.83,
	}
	assert.Equal(t, 585, Score(s))

	s.AverageWeight = 2.5
	assert.Equal(t, 635, Score(s), "average weight above 2 earns the 50 point bonus")
}

func TestAggregate_ScoreFromRecords(t *testing.T) {
	species := []string{"Pacu", "Dourado", "Traíra", "Tucunaré", "Pintado", "Lambari"}
	days := []string{"2025-04-01T06:00:00Z", "2025-04-02T06:00:00Z", "2025-04-03T06:00:00Z"}

	records := []Record{
		{UserID: "u", Species: "Pacu", Weight: 5, Date: days[0]},
		{UserID: "u", Species: "Dourado", Weight: 1, Date: days[1]},
	}
	for i := 0; i < 10; i++ {
		records = append(records, Record{UserID: "u", Species: species[i%len(species)], Weight: 0.4, Date: days[i%len(days)]})
	}

	stats := StatsFor(records, "u")
	assert.Equal(t, 12, stats.TotalCatches)
	assert.InDelta(t, 10, stats.TotalWeight, 0.0001)
	assert.Equal(t, 6, stats.UniqueSpecies)
	assert.Equal(t, 3, stats.ActiveDays)
	assert.Equal(t, 5.0, stats.BiggestWeight())
	assert.Equal(t, 585, stats.Score)
}

func TestAggregate_DerivedStats(t *testing.T) {
	records := []Record{
		{UserID: "u", UserName: "Ana", Species: "Pacu", Weight: 2, Length: length(40), Date: "2025-05-02T10:00:00Z"},
		{UserID: "u", Species: "Pacu", Weight: 0, Length: length(10), Date: "2025-05-01T10:00:00Z"},
		{UserID: "u", Species: "Dourado", Weight: 4, Length: length(70), Date: "2025-05-03T10:00:00Z"},
		{UserID: "u", Species: "Dourado", Weight: 4, Date: "2025-05-03T12:00:00Z"},
	}

	s := StatsFor(records, "u")
	assert.Equal(t, "Ana", s.UserName)
	assert.Equal(t, 4, s.TotalCatches)
	assert.InDelta(t, 10, s.TotalWeight, 0.0001)
	assert.InDelta(t, 2.5, s.AverageWeight, 0.0001)
	assert.InDelta(t, 120, s.TotalLength, 0.0001)
	assert.InDelta(t, 30, s.AverageLength, 0.0001)
	assert.Equal(t, map[string]int{"Pacu": 2, "Dourado": 2}, s.SpeciesCount)
	assert.Equal(t, 3, s.ActiveDays)
	assert.Equal(t, "2025-05-01T10:00:00Z", s.FirstCatchDate)
	assert.Equal(t, "2025-05-03T12:00:00Z", s.LastCatchDate)

	require.NotNil(t, s.BiggestFish)
	assert.Equal(t, 70.0, s.BiggestFish.Length, "first 4kg fish keeps the biggest slot on a tie")
	require.NotNil(t, s.SmallestFish)
	assert.Equal(t, 2.0, s.SmallestFish.Weight, "zero weight catches are ignored for the smallest slot")
}

func TestAggregate_ToleratesMalformedRecords(t *testing.T) {
	records := []Record{
		{UserID: "u", Weight: math.NaN()},
		{UserID: "u", Weight: -3, Species: "   "},
		{UserID: "u", Weight: math.Inf(1), Date: "not a date"},
		{UserID: "u", Weight: 1.5, Length: length(math.NaN())},
	}

	assert.NotPanics(t, func() {
		s := StatsFor(records, "u")
		assert.Equal(t, 4, s.TotalCatches)
		assert.InDelta(t, 1.5, s.TotalWeight, 0.0001)
		assert.Equal(t, 4, s.SpeciesCount[UnknownSpecies])
		assert.Equal(t, 0, s.ActiveDays)
		assert.Equal(t, 0.0, s.TotalLength)
	})
}

func TestStatsFor_UnknownUser(t *testing.T) {
	s := StatsFor(e2eRecords(), "nobody")
	assert.Equal(t, "nobody", s.UserID)
	assert.Equal(t, 0, s.TotalCatches)
	assert.Nil(t, s.BiggestFish)
}

func TestParsePolicy(t *testing.T) {
	tests := map[string]Policy{
		"weight":   PolicyWeight,
		" WEIGHT ": PolicyWeight,
		"quantity": PolicyQuantity,
		"biggest":  PolicyBiggest,
		"species":  PolicySpecies,
		"score":    PolicyScore,
		"":         PolicyScore,
		"fastest":  PolicyScore,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParsePolicy(input), "input %q", input)
	}
}
