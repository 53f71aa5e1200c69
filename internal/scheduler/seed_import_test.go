package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/store"
	"github.com/franckmandon/vinylib-sub000/internal/store/memory"
)

const seedCatalogue = `records:
  - id: rec-kob
    artist: Miles Davis
    album: Kind of Blue
    productCode: "5099750442227"
    owners:
      - userId: u1
        username: alice
        purchasePrice: 20
        rating: 4
    bookmarkedBy: [u2, u1]
  - artist: Miles Davis
    album: Kind of Blue (reissue)
    productCode: "5099 7504 42227"
    owners:
      - userId: u3
        rating: 2
  - artist: Nina Simone
    album: Pastel Blues
    bookmarkedBy: [u1]
`

func TestSeedImporter_Import(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedCatalogue), 0o644))

	kv := memory.New()
	records := store.NewRecords(kv, store.DefaultOptions(), logger.Nop())
	bookmarks := store.NewBookmarks(kv, store.DefaultOptions(), logger.Nop())
	si := NewSeedImporter(path, records, bookmarks, logger.Nop())

	report, err := si.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Merged)
	assert.Equal(t, 2, report.Bookmarks, "u1 owns Kind of Blue so only two bookmarks are created")

	rec, err := records.Get(ctx, "rec-kob")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.OwnerCount())
	assert.Equal(t, 3.0, rec.RatingSummary().Average)

	ok, err := bookmarks.Exists(ctx, "u2", "rec-kob")
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := si.Import(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Zero(t, again.Bookmarks)

	all, err := records.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSeedImporter_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("records:\n  - artist: Only Artist\n"), 0o644))

	kv := memory.New()
	si := NewSeedImporter(path,
		store.NewRecords(kv, store.DefaultOptions(), logger.Nop()),
		store.NewBookmarks(kv, store.DefaultOptions(), logger.Nop()),
		logger.Nop())

	_, err := si.Import(context.Background())
	assert.Error(t, err)
}

func TestSeedImporter_Replace(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	write := func(genre string) {
		body := "records:\n  - id: rec-tago\n    artist: Can\n    album: Tago Mago\n    genre: " + genre +
			"\n    owners:\n      - userId: u1\n        rating: 5\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	kv := memory.New()
	records := store.NewRecords(kv, store.DefaultOptions(), logger.Nop())
	bookmarks := store.NewBookmarks(kv, store.DefaultOptions(), logger.Nop())

	write("Krautrock")
	first, err := NewSeedImporter(path, records, bookmarks, logger.Nop()).Replace(true).Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)
	assert.Zero(t, first.Replaced)

	write("Experimental")
	skipped, err := NewSeedImporter(path, records, bookmarks, logger.Nop()).Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped.Skipped)

	rec, err := records.Get(ctx, "rec-tago")
	require.NoError(t, err)
	assert.Equal(t, "Krautrock", rec.Genre)

	second, err := NewSeedImporter(path, records, bookmarks, logger.Nop()).Replace(true).Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Replaced)
	assert.Zero(t, second.Created)

	rec, err = records.Get(ctx, "rec-tago")
	require.NoError(t, err)
	assert.Equal(t, "Experimental", rec.Genre)
	assert.Equal(t, int64(2), rec.Version)
	assert.Equal(t, 5.0, rec.RatingSummary().Average)
}
