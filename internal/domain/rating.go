package domain

import (
	"math"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is one user's 1-5 star opinion of a record.
type Rating struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// RatingSummary is the public aggregate of all ratings on a record.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// RatingOf returns userID's rating fact.
func (r *Record) RatingOf(userID string) (Rating, bool) {
	for _, rt := range r.Ratings {
		if rt.UserID == userID {
			return rt, true
		}
	}
	return Rating{}, false
}

// UpsertRating replaces userID's rating value or appends a new fact created at now.
func (r *Record) UpsertRating(userID, username string, value int, now time.Time) {
	for i := range r.Ratings {
		if r.Ratings[i].UserID != userID {
			continue
		}
		r.Ratings[i].Rating = value
		if username != "" {
			r.Ratings[i].Username = username
		}
		return
	}
	r.Ratings = append(r.Ratings, Rating{
		UserID:    userID,
		Username:  username,
		Rating:    value,
		CreatedAt: now,
	})
}

// RemoveRating drops userID's rating fact and reports whether one existed.
func (r *Record) RemoveRating(userID string) bool {
	removed := false
	kept := r.Ratings[:0:0]
	for _, rt := range r.Ratings {
		if rt.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, rt)
	}
	if len(kept) == 0 {
		kept = nil
	}
	r.Ratings = kept
	return removed
}

// RatingSummary returns the mean of all ratings rounded to one decimal.
// A legacy scalar rating counts as a single rating when no facts exist.
func (r *Record) RatingSummary() RatingSummary {
	if len(r.Ratings) == 0 {
		if r.LegacyRating != nil && *r.LegacyRating >= MinRating && *r.LegacyRating <= MaxRating {
			return RatingSummary{Average: float64(*r.LegacyRating), Count: 1}
		}
		return RatingSummary{}
	}

	sum := 0
	for _, rt := range r.Ratings {
		sum += rt.Rating
	}
	avg := float64(sum) / float64(len(r.Ratings))
	return RatingSummary{
		Average: math.Round(avg*10) / 10,
		Count:   len(r.Ratings),
	}
}
