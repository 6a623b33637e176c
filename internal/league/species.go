package league

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// KnownSpecies are the names free-text species are folded onto.
var KnownSpecies = []string{
	"Bagre", "Cachara", "Carpa", "Corvina", "Curimbatá", "Dourado", "Jaú",
	"Lambari", "Matrinxã", "Pacu", "Piau", "Pintado", "Piraputanga",
	"Pirarara", "Pirarucu", "Robalo", "Tambaqui", "Tilápia", "Traíra",
	"Tucunaré",
}

const maxSpeciesDistance = 1

// CanonicalSpecies maps a typed species onto its known spelling, ignoring
// case and accents. Names too far from every known species are kept as
// typed.
func CanonicalSpecies(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	lower := strings.ToLower(name)
	best, bestDistance := name, maxSpeciesDistance+1
	for _, rank := range fuzzy.RankFindNormalizedFold(name, KnownSpecies) {
		// Rank distances are case sensitive.
		distance := fuzzy.LevenshteinDistance(lower, strings.ToLower(rank.Target))
		if distance < bestDistance {
			best, bestDistance = rank.Target, distance
		}
	}
	return best
}
