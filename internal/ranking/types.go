package ranking

// Policy selects the lens used to order a leaderboard.
type Policy string

const (
	PolicyScore    Policy = "score"
	PolicyWeight   Policy = "weight"
	PolicyQuantity Policy = "quantity"
	PolicyBiggest  Policy = "biggest"
	PolicySpecies  Policy = "species"
)

// UnknownSpecies is used for records logged without a species.
const UnknownSpecies = "Desconhecido"

// Record is the minimal view of a catch the engine needs.
type Record struct {
	UserID   string
	UserName string
	Species  string
	Weight   float64
	Length   *float64
	Date     string // ISO-8601
}

// Fish summarises a single catch for the biggest/smallest slots.
type Fish struct {
	Species string  `json:"species"`
	Weight  float64 `json:"weight"`
	Length  float64 `json:"length,omitempty"`
	Date    string  `json:"date,omitempty"`
}

// Stats are the derived per-participant figures. They are never stored on
// their own, only recomputed from catch records (or frozen inside a
// tournament's final ranking).
type Stats struct {
	UserID         string         `json:"userId"`
	UserName       string         `json:"userName"`
	TotalCatches   int            `json:"totalCatches"`
	TotalWeight    float64        `json:"totalWeight"`
	AverageWeight  float64        `json:"averageWeight"`
	TotalLength    float64        `json:"totalLength"`
	AverageLength  float64        `json:"averageLength"`
	BiggestFish    *Fish          `json:"biggestFish,omitempty"`
	SmallestFish   *Fish          `json:"smallestFish,omitempty"`
	SpeciesCount   map[string]int `json:"speciesCount"`
	UniqueSpecies  int            `json:"uniqueSpecies"`
	FirstCatchDate string         `json:"firstCatchDate,omitempty"`
	LastCatchDate  string         `json:"lastCatchDate,omitempty"`
	ActiveDays     int            `json:"activeDays"`
	Score          int            `json:"score"`
}

// BiggestWeight returns the weight of the biggest fish, or 0.
func (s Stats) BiggestWeight() float64 {
	if s.BiggestFish == nil {
		return 0
	}
	return s.BiggestFish.Weight
}

// Entry is one row of a leaderboard.
type Entry struct {
	Stats
	Position int  `json:"position"`
	IsWinner bool `json:"isWinner"`
	IsPodium bool `json:"isPodium"`
}
