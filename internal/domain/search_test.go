package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreRecord(t *testing.T) {
	kob := &Record{ID: "r1", Artist: "Miles Davis", Album: "Kind of Blue", Label: "Columbia", Genre: "Jazz", ProductCode: "CL1355"}

	tests := []struct {
		name  string
		query string
		match bool
	}{
		{"artist word", "miles", true},
		{"album prefix", "kin blu", true},
		{"label", "columbia", true},
		{"product code", "cl1355", true},
		{"punctuation ignored", "Kind-of-Blue!", true},
		{"fuzzy", "milse", true},
		{"one word misses", "miles coltrane", false},
		{"empty", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ScoreRecord(tt.query, kob)
			if tt.match {
				assert.Greater(t, score, 0.0)
			} else {
				assert.Zero(t, score)
			}
		})
	}

	assert.Zero(t, ScoreRecord("miles", nil))
}

func TestScoreRecordPrefersPrimaryFields(t *testing.T) {
	byArtist := &Record{ID: "a", Artist: "Jazz Jamaica", Album: "Double Crossing"}
	byGenre := &Record{ID: "b", Artist: "Bill Evans", Album: "Waltz for Debby", Genre: "Jazz"}

	assert.Greater(t, ScoreRecord("jazz", byArtist), ScoreRecord("jazz", byGenre))
}

func TestRankRecordsTieBreak(t *testing.T) {
	records := []*Record{
		{ID: "r3", Artist: "Miles Davis Quintet", Album: "Cookin'"},
		{ID: "r1", Artist: "Nina Simone", Album: "Pastel Blues"},
		{ID: "r2", Artist: "Miles Davis", Album: "Kind of Blue"},
		{ID: "r4", Artist: "Miles Davis", Album: "Bitches Brew"},
	}

	hits := RankRecords("miles davis", records)
	require.Len(t, hits, 3)

	// Equal scores fall back to artist, album then id
	assert.Equal(t, "r4", hits[0].Record.ID)
	assert.Equal(t, "r2", hits[1].Record.ID)
	assert.Equal(t, "r3", hits[2].Record.ID, "no whole-name bonus")
	assert.Greater(t, hits[1].Score, hits[2].Score)

	assert.Empty(t, RankRecords("coltrane", records))
}
