package seed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	"github.com/franckmandon/vinylib-sub000/internal/id"
)

// Entry is a mapped record plus the users who bookmark it.
type Entry struct {
	Record       *domain.Record
	BookmarkedBy []string
}

// Mapper converts seed entries to domain records
type Mapper struct {
	now func() time.Time
}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{now: time.Now}
}

// MapCatalogue converts every entry or fails with all the problems found.
func (m *Mapper) MapCatalogue(cat Catalogue) ([]Entry, error) {
	if len(cat.Records) == 0 {
		return nil, fmt.Errorf("no records found in seed file")
	}

	now := m.now().UTC()
	entries := make([]Entry, 0, len(cat.Records))
	var errs []error
	for i, e := range cat.Records {
		rec, err := mapRecord(e, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("records[%d] (%s - %s): %w", i, e.Artist, e.Album, err))
			continue
		}
		entries = append(entries, Entry{Record: rec, BookmarkedBy: cleanIDs(e.BookmarkedBy)})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return entries, nil
}

func mapRecord(e RecordEntry, now time.Time) (*domain.Record, error) {
	artist := strings.TrimSpace(e.Artist)
	album := strings.TrimSpace(e.Album)
	if artist == "" || album == "" {
		return nil, errors.New("artist and album are required")
	}

	rec := &domain.Record{
		ID:           strings.TrimSpace(e.ID),
		ProductCode:  strings.TrimSpace(e.ProductCode),
		Artist:       artist,
		Album:        album,
		ReleaseDate:  strings.TrimSpace(e.ReleaseDate),
		Genre:        strings.TrimSpace(e.Genre),
		Label:        strings.TrimSpace(e.Label),
		Country:      strings.TrimSpace(e.Country),
		PressingType: strings.TrimSpace(e.PressingType),
		Notes:        e.Notes,
		ArtworkRef:   strings.TrimSpace(e.ArtworkRef),
	}
	if rec.ID == "" {
		rec.ID = stableID(rec)
	}
	for _, t := range e.TrackList {
		if strings.TrimSpace(t.Title) == "" {
			return nil, errors.New("track title is required")
		}
		rec.TrackList = append(rec.TrackList, domain.Track{Title: strings.TrimSpace(t.Title), Duration: t.Duration})
	}

	created := time.Time{}
	for _, o := range e.Owners {
		userID := strings.TrimSpace(o.UserID)
		if userID == "" {
			return nil, errors.New("owner userId is required")
		}
		if _, dup := rec.OwnershipOf(userID); dup {
			return nil, fmt.Errorf("owner %s listed twice", userID)
		}

		cond := domain.Condition(o.Condition)
		if cond != "" && !cond.Valid() {
			return nil, fmt.Errorf("owner %s: unknown condition %q", userID, o.Condition)
		}
		if o.PurchasePrice != nil && *o.PurchasePrice < 0 {
			return nil, fmt.Errorf("owner %s: negative purchase price", userID)
		}
		if o.Rating != 0 && (o.Rating < domain.MinRating || o.Rating > domain.MaxRating) {
			return nil, fmt.Errorf("owner %s: rating %d out of range", userID, o.Rating)
		}

		added := now
		if o.AddedAt != "" {
			t, err := parseDate(o.AddedAt)
			if err != nil {
				return nil, fmt.Errorf("owner %s: %w", userID, err)
			}
			added = t
		}

		rec.UpsertOwnership(userID, o.Username, domain.OwnershipFacts{
			Condition:     cond,
			Notes:         o.Notes,
			PurchasePrice: o.PurchasePrice,
		}, added)
		if o.Rating != 0 {
			rec.UpsertRating(userID, o.Username, o.Rating, added)
		}
		if created.IsZero() || added.Before(created) {
			created = added
		}
	}

	if len(rec.Owners) > 0 {
		rec.PrimaryOwnerID = rec.Owners[0].UserID
		rec.PrimaryOwnerUsername = rec.Owners[0].Username
	}
	if created.IsZero() {
		created = now
	}
	rec.CreatedAt = created
	return rec, nil
}

// stableID derives a record id from the product code, or artist and album,
// so importing the same file twice targets the same records.
func stableID(rec *domain.Record) string {
	key := strings.ToUpper(strings.Join(strings.Fields(rec.ProductCode), ""))
	if key == "" {
		key = strings.ToLower(rec.Artist + "\x00" + rec.Album)
	}
	return id.PrefixRecord + "-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want RFC 3339 or YYYY-MM-DD)", s)
}

func cleanIDs(ids []string) []string {
	var out []string
	seen := make(map[string]bool, len(ids))
	for _, userID := range ids {
		userID = strings.TrimSpace(userID)
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		out = append(out, userID)
	}
	return out
}
