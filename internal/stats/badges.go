package stats

// Tier classifies a record by how many users own it.
type Tier string

const (
	TierUnique   Tier = "Unique"
	TierRare     Tier = "Rare"
	TierUncommon Tier = "Uncommon"
	TierCommon   Tier = "Common"
)

// Tiers lists the tiers from rarest to most common.
var Tiers = []Tier{TierUnique, TierRare, TierUncommon, TierCommon}

// TierFor maps a total owner count to its rarity tier.
func TierFor(owners int) Tier {
	switch {
	case owners <= 1:
		return TierUnique
	case owners <= 3:
		return TierRare
	case owners <= 10:
		return TierUncommon
	default:
		return TierCommon
	}
}

// Badge is an achievement derived from the collection.
type Badge struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Unlocked bool   `json:"unlocked"`
	// Progress is the current value of the badge metric
	Progress float64 `json:"progress"`
	// Next is the value needed for the next level, 0 at the top level
	Next float64 `json:"next,omitempty"`
}

type level struct {
	below float64 // upper bound (exclusive); 0 for the last level
	name  string
}

var countLevels = []level{
	{10, "Novice"},
	{50, "Collector"},
	{100, "Enthusiast"},
	{500, "Expert"},
	{0, "Master"},
}

var investedLevels = []level{
	{100, "Starter"},
	{500, "Investor"},
	{1000, "Collector"},
	{5000, "Curator"},
	{0, "Treasure Hunter"},
}

const (
	// TimeTravelerDecades is how many known decades unlock Time Traveler
	TimeTravelerDecades = 5
	// CompletionistMinRecords is how many records of one artist count as complete
	CompletionistMinRecords = 5
)

var completionistLevels = []level{
	{1, ""},
	{3, "Bronze"},
	{5, "Silver"},
	{10, "Gold"},
	{0, "Platinum"},
}

func levelFor(levels []level, v float64) (name string, next float64) {
	for _, l := range levels {
		if l.below == 0 || v < l.below {
			return l.name, l.below
		}
	}
	return "", 0
}

func badges(s *Stats) []Badge {
	out := make([]Badge, 0, 4)

	name, next := levelFor(countLevels, float64(s.TotalRecords))
	out = append(out, Badge{
		ID:       "collection-size",
		Name:     name,
		Unlocked: s.TotalRecords > 0,
		Progress: float64(s.TotalRecords),
		Next:     next,
	})

	name, next = levelFor(investedLevels, s.TotalInvested)
	out = append(out, Badge{
		ID:       "investment",
		Name:     name,
		Unlocked: s.TotalInvested > 0,
		Progress: s.TotalInvested,
		Next:     next,
	})

	known := 0
	for _, d := range s.Decades {
		if d.Name != Unknown {
			known++
		}
	}
	traveler := Badge{
		ID:       "time-traveler",
		Name:     "Time Traveler",
		Unlocked: known >= TimeTravelerDecades,
		Progress: float64(known),
	}
	if !traveler.Unlocked {
		traveler.Next = TimeTravelerDecades
	}
	out = append(out, traveler)

	complete := s.CompleteArtists
	name, next = levelFor(completionistLevels, float64(complete))
	completionist := Badge{
		ID:       "completionist",
		Name:     "Completionist",
		Unlocked: complete > 0,
		Progress: float64(complete),
		Next:     next,
	}
	if name != "" {
		completionist.Name = "Completionist " + name
	}
	out = append(out, completionist)

	return out
}
