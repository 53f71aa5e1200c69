package domain

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier word is better)
	ScorePositionBonus = 10.0

	// Whole query equal to the artist or album name
	ScoreExactTitleBonus = 200.0

	// Label and genre matches count for less than artist/album ones
	SecondaryFieldWeight = 0.5
)

// SearchHit is a record with its match score.
type SearchHit struct {
	Record *Record
	Score  float64
}

// ScoreRecord scores a record against a free-text query. Every word of the
// query must match at least one field, otherwise the score is 0.
func ScoreRecord(query string, rec *Record) float64 {
	if rec == nil {
		return 0.0
	}
	fragments := tokenize(query)
	if len(fragments) == 0 {
		return 0.0
	}

	primary := append(tokenize(rec.Artist), tokenize(rec.Album)...)
	secondary := append(tokenize(rec.Label), tokenize(rec.Genre)...)

	var total float64
	for _, frag := range fragments {
		best := bestFragmentScore(frag, primary, 1.0)
		if s := bestFragmentScore(frag, secondary, SecondaryFieldWeight); s > best {
			best = s
		}
		if rec.ProductCode != "" && frag == strings.ToLower(rec.ProductCode) {
			best = math.Max(best, ScoreExactMatch)
		}
		if best == 0.0 {
			return 0.0
		}
		total += best
	}

	phrase := strings.Join(fragments, " ")
	if phrase == strings.Join(tokenize(rec.Artist), " ") || phrase == strings.Join(tokenize(rec.Album), " ") {
		total += ScoreExactTitleBonus
	}

	return total
}

// RankRecords returns the records matching query, best first. Ties are
// broken by artist, album and id so the order is stable.
func RankRecords(query string, records []*Record) []SearchHit {
	hits := make([]SearchHit, 0, len(records))
	for _, rec := range records {
		if score := ScoreRecord(query, rec); score > 0 {
			hits = append(hits, SearchHit{Record: rec, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Record.Artist != b.Record.Artist {
			return a.Record.Artist < b.Record.Artist
		}
		if a.Record.Album != b.Record.Album {
			return a.Record.Album < b.Record.Album
		}
		return a.Record.ID < b.Record.ID
	})
	return hits
}

func bestFragmentScore(frag string, words []string, weight float64) float64 {
	best := 0.0
	for i, w := range words {
		if s := scoreFragment(frag, w, i) * weight; s > best {
			best = s
		}
	}
	return best
}

// scoreFragment scores a single query word against a field word.
func scoreFragment(queryFrag, word string, position int) float64 {
	if queryFrag == "" || word == "" {
		return 0.0
	}

	if queryFrag == word {
		return ScoreExactMatch + positionBonus(position)
	}

	if strings.HasPrefix(word, queryFrag) {
		return ScorePrefixMatch + positionBonus(position)
	}

	if index := strings.Index(word, queryFrag); index >= 0 {
		// Earlier substring matches get higher score
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(index)/float64(len(word)))
	}

	if len(queryFrag) >= 3 {
		if similarity := calculateSimilarity(queryFrag, word); similarity > 0.75 {
			return ScoreFuzzyMatch * similarity
		}
	}

	return 0.0
}

func positionBonus(position int) float64 {
	return ScorePositionBonus * math.Exp(-float64(position)*0.3)
}

// calculateSimilarity is the in-order character overlap of s1 within s2.
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0.0
	}
	r2 := []rune(s2)
	matches, j := 0, 0
	for _, c := range s1 {
		for k := j; k < len(r2); k++ {
			if r2[k] == c {
				matches++
				j = k + 1
				break
			}
		}
	}
	return float64(matches) / float64(len([]rune(s1)))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
