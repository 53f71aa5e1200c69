package seed

import (
	"strings"
	"testing"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestMapper() *Mapper {
	return &Mapper{now: func() time.Time { return fixedNow }}
}

func price(v float64) *float64 { return &v }

func TestMapperMapCatalogue(t *testing.T) {
	cat := Catalogue{Records: []RecordEntry{
		{
			Artist:      " Miles Davis ",
			Album:       "Kind of Blue",
			ProductCode: "5099 7504 42227",
			Owners: []OwnerEntry{
				{UserID: "u2", Username: "bob", Condition: "Good", AddedAt: "2023-05-01T10:00:00Z", Rating: 3},
				{UserID: "u1", Username: "alice", PurchasePrice: price(20), AddedAt: "2022-01-15", Rating: 5},
			},
			BookmarkedBy: []string{"u3", " u3 ", ""},
		},
		{Artist: "Nina Simone", Album: "Pastel Blues"},
	}}

	entries, err := newTestMapper().MapCatalogue(cat)
	if err != nil {
		t.Fatalf("MapCatalogue() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("MapCatalogue() returned %d entries, want 2", len(entries))
	}

	rec := entries[0].Record
	if rec.Artist != "Miles Davis" {
		t.Errorf("Artist = %q, want trimmed", rec.Artist)
	}
	if !strings.HasPrefix(rec.ID, "rec-") {
		t.Errorf("ID = %q, want rec- prefix", rec.ID)
	}
	if rec.PrimaryOwnerID != "u2" {
		t.Errorf("PrimaryOwnerID = %q, want first listed owner", rec.PrimaryOwnerID)
	}
	if want := time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC); !rec.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want earliest addedAt %v", rec.CreatedAt, want)
	}
	if got := rec.RatingSummary(); got.Count != 2 || got.Average != 4 {
		t.Errorf("RatingSummary() = %+v, want 2 ratings averaging 4", got)
	}
	if o, _ := rec.OwnershipOf("u2"); o.Condition != domain.ConditionGood {
		t.Errorf("u2 condition = %q", o.Condition)
	}
	if len(entries[0].BookmarkedBy) != 1 || entries[0].BookmarkedBy[0] != "u3" {
		t.Errorf("BookmarkedBy = %v, want [u3]", entries[0].BookmarkedBy)
	}

	orphan := entries[1].Record
	if orphan.OwnerCount() != 0 || !orphan.CreatedAt.Equal(fixedNow) {
		t.Errorf("owner-less record = %+v", orphan)
	}
}

func TestMapperStableIDs(t *testing.T) {
	cat := Catalogue{Records: []RecordEntry{
		{Artist: "A", Album: "B", ProductCode: "123 456"},
		{Artist: "Other", Album: "Title", ProductCode: "123456"},
		{Artist: "C", Album: "D"},
	}}
	first, err := newTestMapper().MapCatalogue(cat)
	if err != nil {
		t.Fatalf("MapCatalogue() error = %v", err)
	}
	second, err := newTestMapper().MapCatalogue(cat)
	if err != nil {
		t.Fatalf("MapCatalogue() error = %v", err)
	}
	for i := range first {
		if first[i].Record.ID != second[i].Record.ID {
			t.Errorf("entry %d id changed between runs", i)
		}
	}
	if first[0].Record.ID != first[1].Record.ID {
		t.Error("same product code should map to the same id")
	}
	if first[0].Record.ID == first[2].Record.ID {
		t.Error("different records share an id")
	}
}

func TestMapperRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry RecordEntry
		want  string
	}{
		{"missing album", RecordEntry{Artist: "A"}, "artist and album"},
		{"blank track", RecordEntry{Artist: "A", Album: "B", TrackList: []TrackEntry{{Title: " "}}}, "track title"},
		{"owner without id", RecordEntry{Artist: "A", Album: "B", Owners: []OwnerEntry{{}}}, "userId"},
		{"duplicate owner", RecordEntry{Artist: "A", Album: "B", Owners: []OwnerEntry{{UserID: "u1"}, {UserID: "u1"}}}, "twice"},
		{"bad condition", RecordEntry{Artist: "A", Album: "B", Owners: []OwnerEntry{{UserID: "u1", Condition: "Scratched"}}}, "condition"},
		{"negative price", RecordEntry{Artist: "A", Album: "B", Owners: []OwnerEntry{{UserID: "u1", PurchasePrice: price(-1)}}}, "negative"},
		{"rating too high", RecordEntry{Artist: "A", Album: "B", Owners: []OwnerEntry{{UserID: "u1", Rating: 6}}}, "rating"},
		{"bad date", RecordEntry{Artist: "A", Album: "B", Owners: []OwnerEntry{{UserID: "u1", AddedAt: "yesterday"}}}, "invalid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestMapper().MapCatalogue(Catalogue{Records: []RecordEntry{tt.entry}})
			if err == nil {
				t.Fatal("MapCatalogue() should have failed")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestMapperEmptyCatalogue(t *testing.T) {
	if _, err := NewMapper().MapCatalogue(Catalogue{}); err == nil {
		t.Error("MapCatalogue() with no records should return an error")
	}
}
