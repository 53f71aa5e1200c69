package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Record is the shared, deduplicated representation of one physical release.
//
// Descriptive metadata is common to every owner. Each user's private
// annotations live in Owners and Ratings, at most one entry per user.
type Record struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is the opaque internal identifier (rec-<nanoid>).
	ID string `json:"id"`

	// ProductCode is an industry barcode (EAN/UPC). Records are
	// deduplicated on it when present.
	ProductCode string `json:"productCode,omitempty"`

	// ─────────────────────────────
	// Descriptive metadata (shared)
	// ─────────────────────────────

	Artist       string  `json:"artist"`
	Album        string  `json:"album"`
	ReleaseDate  string  `json:"releaseDate,omitempty"`
	Genre        string  `json:"genre,omitempty"`
	Label        string  `json:"label,omitempty"`
	Country      string  `json:"country,omitempty"`
	PressingType string  `json:"pressingType,omitempty"`
	TrackList    []Track `json:"trackList,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	Bio          string  `json:"bio,omitempty"`
	Credits      string  `json:"credits,omitempty"`
	ArtworkRef   string  `json:"artworkRef,omitempty"`

	// ─────────────────────────────
	// Ownership
	// ─────────────────────────────

	// PrimaryOwnerID is the first user who created the record.
	// Cleared when that user removes the record from their collection.
	PrimaryOwnerID       string `json:"primaryOwnerId,omitempty"`
	PrimaryOwnerUsername string `json:"primaryOwnerUsername,omitempty"`

	Owners  []Ownership `json:"owners,omitempty"`
	Ratings []Rating    `json:"ratings,omitempty"`

	// ─────────────────────────────
	// Legacy single-owner fields
	// Folded into Owners/Ratings by Normalize, never written back.
	// ─────────────────────────────

	LegacyRating        *int      `json:"legacyRating,omitempty"`
	LegacyCondition     Condition `json:"condition,omitempty"`
	LegacyPurchasePrice *float64  `json:"purchasePrice,omitempty"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is immutable once set.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is bumped on any mutation.
	UpdatedAt time.Time `json:"updatedAt"`

	// Version increments on every committed write.
	Version int64 `json:"version"`
}

// Track is one entry of a record's track list.
type Track struct {
	Title        string `json:"title" validate:"notblank,max=256"`
	Duration     string `json:"duration,omitempty" validate:"max=16"`
	ExternalLink string `json:"externalLink,omitempty" validate:"omitempty,url"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.TrackList = slices.Clone(r.TrackList)
	c.Owners = make([]Ownership, len(r.Owners))
	for i, o := range r.Owners {
		c.Owners[i] = o.clone()
	}
	c.Ratings = slices.Clone(r.Ratings)
	if r.LegacyRating != nil {
		v := *r.LegacyRating
		c.LegacyRating = &v
	}
	if r.LegacyPurchasePrice != nil {
		v := *r.LegacyPurchasePrice
		c.LegacyPurchasePrice = &v
	}
	if len(c.Owners) == 0 {
		c.Owners = nil
	}
	return &c
}

// ReleaseYear extracts the year from ReleaseDate ("1978", "1978-06-01", "06/1978").
// ok is false when no plausible four-digit year is present.
func (r *Record) ReleaseYear() (year int, ok bool) {
	s := strings.TrimSpace(r.ReleaseDate)
	for i := 0; i+4 <= len(s); i++ {
		chunk := s[i : i+4]
		if !isDigits(chunk) {
			continue
		}
		// Reject a run longer than four digits.
		if (i > 0 && isDigit(s[i-1])) || (i+4 < len(s) && isDigit(s[i+4])) {
			continue
		}
		y, err := strconv.Atoi(chunk)
		if err == nil && y > 0 {
			return y, true
		}
	}
	return 0, false
}

// IsOwnedBy reports whether userID is the primary owner or holds an ownership fact.
func (r *Record) IsOwnedBy(userID string) bool {
	if userID == "" {
		return false
	}
	if r.PrimaryOwnerID == userID {
		return true
	}
	_, ok := r.OwnershipOf(userID)
	return ok
}

// OwnerCount is the number of distinct users owning the record,
// counting a legacy primary owner only if it has no ownership fact.
func (r *Record) OwnerCount() int {
	n := len(r.Owners)
	if r.PrimaryOwnerID != "" {
		if _, ok := r.OwnershipOf(r.PrimaryOwnerID); !ok {
			n++
		}
	}
	return n
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
