// Package stats is the collection aggregation engine: a pure reduction of
// a record snapshot into one user's statistics.
//
// Compute never reads the clock or any store. The caller passes "now",
// and the same snapshot, user and now always produce the same output.
package stats

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
)

const (
	// Unknown buckets records missing the grouped attribute
	Unknown = "Unknown"

	// TopN caps the label and artist distributions
	TopN = 10

	// KgPerRecord is the average weight of a pressed LP with sleeve
	KgPerRecord = 0.18
	// MetersPerRecord is the thickness of one record on a shelf
	MetersPerRecord = 0.002

	dateKeyLayout  = "2006-01-02"
	monthKeyLayout = "2006-01"
)

// Bucket is one entry of a distribution.
type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Month is one entry of the additions timeline.
type Month struct {
	Month string  `json:"month"` // YYYY-MM
	Count int     `json:"count"`
	Spent float64 `json:"spent"`
}

// RarestRecord is the visible record with the fewest owners.
type RarestRecord struct {
	RecordID   string `json:"recordId"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	OwnerCount int    `json:"ownerCount"`
	Tier       Tier   `json:"tier"`
}

// Stats is the derived view of one user's collection.
type Stats struct {
	UserID string `json:"userId"`

	TotalRecords  int     `json:"totalRecords"`
	TotalInvested float64 `json:"totalInvested"`
	HighestPrice  float64 `json:"highestPrice"`
	LowestPrice   float64 `json:"lowestPrice"`
	AveragePrice  float64 `json:"averagePrice"`

	CollectionStart *time.Time `json:"collectionStart,omitempty"`
	Streak          int        `json:"streak"`
	LongestStreak   int        `json:"longestStreak"`
	AddedThisMonth  int        `json:"addedThisMonth"`
	SpentThisMonth  float64    `json:"spentThisMonth"`
	Timeline        []Month    `json:"timeline"`

	Genres     []Bucket `json:"genres"`
	Decades    []Bucket `json:"decades"`
	Conditions []Bucket `json:"conditions"`
	TopLabels  []Bucket `json:"topLabels"`
	TopArtists []Bucket `json:"topArtists"`

	// CompleteArtists counts artists with at least CompletionistMinRecords records
	CompleteArtists int `json:"completeArtists"`

	Rarity       []Bucket      `json:"rarity"`
	RarestRecord *RarestRecord `json:"rarestRecord,omitempty"`

	Badges []Badge `json:"badges"`

	EstimatedWeightKg    float64 `json:"estimatedWeightKg"`
	EstimatedStackMeters float64 `json:"estimatedStackMeters"`
}

// view is one visible record projected onto the target user's ownership.
type view struct {
	rec       *domain.Record
	ownership domain.Ownership
	owners    int
}

// Compute reduces snapshot to userID's statistics. now fixes "today" and
// "this month" and its location decides calendar days.
func Compute(snapshot []*domain.Record, userID string, now time.Time) Stats {
	views := project(snapshot, userID)

	s := Stats{UserID: userID, TotalRecords: len(views)}
	scalar(&s, views)
	temporal(&s, views, now)
	distributions(&s, views)
	rarity(&s, views)
	s.Badges = badges(&s)
	s.EstimatedWeightKg = round(float64(s.TotalRecords)*KgPerRecord, 3)
	s.EstimatedStackMeters = round(float64(s.TotalRecords)*MetersPerRecord, 3)
	return s
}

// project selects the visible subset and resolves the user's own facts.
// Records are normalized on a copy so legacy single-owner records resolve
// through the same path.
func project(snapshot []*domain.Record, userID string) []view {
	if userID == "" {
		return nil
	}
	views := make([]view, 0)
	for _, rec := range snapshot {
		if rec == nil || !rec.IsOwnedBy(userID) {
			continue
		}
		r := rec.Clone()
		r.Normalize()
		o, _ := r.OwnershipOf(userID)
		views = append(views, view{rec: r, ownership: o, owners: r.OwnerCount()})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].rec.ID < views[j].rec.ID
	})
	return views
}

func scalar(s *Stats, views []view) {
	var total, positiveSum float64
	positive := 0
	for _, v := range views {
		p := v.ownership.Price()
		total += p
		if p <= 0 {
			continue
		}
		positive++
		positiveSum += p
		if positive == 1 || p > s.HighestPrice {
			s.HighestPrice = p
		}
		if positive == 1 || p < s.LowestPrice {
			s.LowestPrice = p
		}
	}
	s.TotalInvested = round(total, 2)
	s.HighestPrice = round(s.HighestPrice, 2)
	s.LowestPrice = round(s.LowestPrice, 2)
	if positive > 0 {
		s.AveragePrice = round(positiveSum/float64(positive), 2)
	}
}

func temporal(s *Stats, views []view, now time.Time) {
	loc := now.Location()
	days := make(map[string]bool)
	months := make(map[string]*Month)
	thisMonth := now.Format(monthKeyLayout)

	var start time.Time
	for _, v := range views {
		added := v.ownership.AddedAt
		if added.IsZero() {
			continue
		}
		if start.IsZero() || added.Before(start) {
			start = added
		}

		local := added.In(loc)
		days[local.Format(dateKeyLayout)] = true

		key := local.Format(monthKeyLayout)
		m, ok := months[key]
		if !ok {
			m = &Month{Month: key}
			months[key] = m
		}
		m.Count++
		m.Spent += v.ownership.Price()

		if key == thisMonth {
			s.AddedThisMonth++
			s.SpentThisMonth += v.ownership.Price()
		}
	}
	s.SpentThisMonth = round(s.SpentThisMonth, 2)

	if !start.IsZero() {
		start = start.UTC()
		s.CollectionStart = &start
	}

	s.Streak = currentStreak(days, now)
	s.LongestStreak = longestStreak(days)

	s.Timeline = make([]Month, 0, len(months))
	for _, m := range months {
		m.Spent = round(m.Spent, 2)
		s.Timeline = append(s.Timeline, *m)
	}
	sort.Slice(s.Timeline, func(i, j int) bool {
		return s.Timeline[i].Month < s.Timeline[j].Month
	})
}

// currentStreak counts consecutive calendar days with an addition, walking
// backward from today. No addition today means no streak.
func currentStreak(days map[string]bool, now time.Time) int {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 12, 0, 0, 0, now.Location())
	streak := 0
	for days[day.Format(dateKeyLayout)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func longestStreak(days map[string]bool) int {
	if len(days) == 0 {
		return 0
	}
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	longest, run := 1, 1
	for i := 1; i < len(keys); i++ {
		prev, _ := time.Parse(dateKeyLayout, keys[i-1])
		curr, _ := time.Parse(dateKeyLayout, keys[i])
		if prev.AddDate(0, 0, 1).Equal(curr) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func distributions(s *Stats, views []view) {
	genres := counter{}
	decades := counter{}
	conditions := counter{}
	labels := counter{}
	artists := counter{}

	for _, v := range views {
		genres.add(orUnknown(v.rec.Genre))
		decades.add(Decade(v.rec))
		conditions.add(orUnknown(string(v.ownership.Condition)))
		if v.rec.Label != "" {
			labels.add(v.rec.Label)
		}
		if v.rec.Artist != "" {
			artists.add(v.rec.Artist)
		}
	}

	s.Genres = genres.sorted(0)
	s.Decades = decades.sorted(0)
	s.Conditions = conditions.sorted(0)
	s.TopLabels = labels.sorted(TopN)
	s.TopArtists = artists.sorted(TopN)

	for _, n := range artists {
		if n >= CompletionistMinRecords {
			s.CompleteArtists++
		}
	}
}

// Decade returns "1970s" for a 1978 release, Unknown without a year.
func Decade(r *domain.Record) string {
	year, ok := r.ReleaseYear()
	if !ok {
		return Unknown
	}
	return strconv.Itoa(year/10*10) + "s"
}

func rarity(s *Stats, views []view) {
	counts := make(map[Tier]int, len(Tiers))
	var rarest *view
	for i := range views {
		v := &views[i]
		counts[TierFor(v.owners)]++

		if rarest == nil || v.owners < rarest.owners ||
			(v.owners == rarest.owners && earlier(v, rarest)) {
			rarest = v
		}
	}

	s.Rarity = make([]Bucket, 0, len(Tiers))
	for _, t := range Tiers {
		s.Rarity = append(s.Rarity, Bucket{Name: string(t), Count: counts[t]})
	}

	if rarest != nil {
		s.RarestRecord = &RarestRecord{
			RecordID:   rarest.rec.ID,
			Artist:     rarest.rec.Artist,
			Album:      rarest.rec.Album,
			OwnerCount: rarest.owners,
			Tier:       TierFor(rarest.owners),
		}
	}
}

// earlier breaks rarity ties by the user's addedAt, then by record id.
func earlier(a, b *view) bool {
	if !a.ownership.AddedAt.Equal(b.ownership.AddedAt) {
		return a.ownership.AddedAt.Before(b.ownership.AddedAt)
	}
	return a.rec.ID < b.rec.ID
}

type counter map[string]int

func (c counter) add(name string) { c[name]++ }

// sorted returns buckets by count descending, name ascending, keeping at
// most limit entries (0 = all).
func (c counter) sorted(limit int) []Bucket {
	out := make([]Bucket, 0, len(c))
	for name, n := range c {
		out = append(out, Bucket{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
