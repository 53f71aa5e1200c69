package catalog

import (
	"strings"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
)

// RecordInput is the descriptive metadata supplied when creating a record.
type RecordInput struct {
	ProductCode  string         `json:"productCode,omitempty" validate:"max=64"`
	Artist       string         `json:"artist" validate:"notblank,max=256"`
	Album        string         `json:"album" validate:"notblank,max=256"`
	ReleaseDate  string         `json:"releaseDate,omitempty" validate:"max=32"`
	Genre        string         `json:"genre,omitempty" validate:"max=128"`
	Label        string         `json:"label,omitempty" validate:"max=128"`
	Country      string         `json:"country,omitempty" validate:"max=128"`
	PressingType string         `json:"pressingType,omitempty" validate:"max=128"`
	TrackList    []domain.Track `json:"trackList,omitempty" validate:"max=200,dive"`
	Notes        string         `json:"notes,omitempty" validate:"max=4000"`
	Bio          string         `json:"bio,omitempty" validate:"max=20000"`
	Credits      string         `json:"credits,omitempty" validate:"max=20000"`
	ArtworkRef   string         `json:"artworkRef,omitempty" validate:"max=2048"`
}

func (in RecordInput) apply(r *domain.Record) {
	r.ProductCode = strings.TrimSpace(in.ProductCode)
	r.Artist = strings.TrimSpace(in.Artist)
	r.Album = strings.TrimSpace(in.Album)
	r.ReleaseDate = strings.TrimSpace(in.ReleaseDate)
	r.Genre = strings.TrimSpace(in.Genre)
	r.Label = strings.TrimSpace(in.Label)
	r.Country = strings.TrimSpace(in.Country)
	r.PressingType = strings.TrimSpace(in.PressingType)
	r.TrackList = in.TrackList
	r.Notes = in.Notes
	r.Bio = in.Bio
	r.Credits = in.Credits
	r.ArtworkRef = strings.TrimSpace(in.ArtworkRef)
}

// MetadataPatch carries the descriptive fields to overwrite. Nil fields are
// left as they are; a non-nil empty TrackList clears the list.
type MetadataPatch struct {
	ProductCode  *string        `json:"productCode,omitempty" validate:"omitempty,max=64"`
	Artist       *string        `json:"artist,omitempty" validate:"omitempty,notblank,max=256"`
	Album        *string        `json:"album,omitempty" validate:"omitempty,notblank,max=256"`
	ReleaseDate  *string        `json:"releaseDate,omitempty" validate:"omitempty,max=32"`
	Genre        *string        `json:"genre,omitempty" validate:"omitempty,max=128"`
	Label        *string        `json:"label,omitempty" validate:"omitempty,max=128"`
	Country      *string        `json:"country,omitempty" validate:"omitempty,max=128"`
	PressingType *string        `json:"pressingType,omitempty" validate:"omitempty,max=128"`
	TrackList    []domain.Track `json:"trackList,omitempty" validate:"omitempty,max=200,dive"`
	Notes        *string        `json:"notes,omitempty" validate:"omitempty,max=4000"`
	Bio          *string        `json:"bio,omitempty" validate:"omitempty,max=20000"`
	Credits      *string        `json:"credits,omitempty" validate:"omitempty,max=20000"`
	ArtworkRef   *string        `json:"artworkRef,omitempty" validate:"omitempty,max=2048"`
}

// Empty reports whether the patch sets nothing.
func (p MetadataPatch) Empty() bool {
	return p.ProductCode == nil && p.Artist == nil && p.Album == nil &&
		p.ReleaseDate == nil && p.Genre == nil && p.Label == nil &&
		p.Country == nil && p.PressingType == nil && p.TrackList == nil &&
		p.Notes == nil && p.Bio == nil && p.Credits == nil && p.ArtworkRef == nil
}

func (p MetadataPatch) apply(r *domain.Record) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&r.ProductCode, p.ProductCode)
	set(&r.Artist, p.Artist)
	set(&r.Album, p.Album)
	set(&r.ReleaseDate, p.ReleaseDate)
	set(&r.Genre, p.Genre)
	set(&r.Label, p.Label)
	set(&r.Country, p.Country)
	set(&r.PressingType, p.PressingType)
	set(&r.ArtworkRef, p.ArtworkRef)
	if p.TrackList != nil {
		r.TrackList = p.TrackList
		if len(r.TrackList) == 0 {
			r.TrackList = nil
		}
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.Bio != nil {
		r.Bio = *p.Bio
	}
	if p.Credits != nil {
		r.Credits = *p.Credits
	}
}

// RatingInput sets or clears the caller's rating. Nil or 0 clears it.
type RatingInput struct {
	Rating *int `json:"rating" validate:"omitempty,min=0,max=5"`
}

// ListFilter narrows record listings.
type ListFilter struct {
	// Owner keeps only records this user holds an ownership fact on.
	Owner string
	// Query ranks records by artist, album and label match.
	Query string
}
