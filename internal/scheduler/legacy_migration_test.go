package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/store"
	"github.com/franckmandon/vinylib-sub000/internal/store/memory"
)

const legacyBlob = `[
  {
    "id": "rec-1",
    "artist": "Miles Davis",
    "album": "Kind of Blue",
    "productCode": "0886-9729-8",
    "primaryOwnerId": "u1",
    "primaryOwnerUsername": "alice",
    "condition": "NearMint",
    "purchasePrice": 25,
    "rating": 5,
    "createdAt": "2021-03-01T10:00:00Z"
  },
  {
    "id": "rec-2",
    "artist": "Miles Davis",
    "album": "Kind of Blue",
    "productCode": "08869729 8",
    "primaryOwnerId": "u2",
    "condition": "Good",
    "rating": 3,
    "createdAt": "2022-01-01T10:00:00Z"
  },
  {
    "artist": "Nina Simone",
    "album": "Pastel Blues",
    "primaryOwnerId": "u1",
    "createdAt": "2020-05-05T10:00:00Z"
  }
]`

func newMigrator(t *testing.T, blob string) (*LegacyMigrator, *store.Records) {
	t.Helper()
	kv := memory.New()
	if blob != "" {
		err := kv.Update(context.Background(), func(tx store.Tx) error {
			return tx.Set(store.KeyLegacyRecords, []byte(blob))
		})
		require.NoError(t, err)
	}
	records := store.NewRecords(kv, store.DefaultOptions(), logger.Nop())
	return NewLegacyMigrator(kv, records, store.KeyLegacyRecords, logger.Nop()), records
}

func TestLegacyMigrator_Migrate(t *testing.T) {
	ctx := context.Background()
	m, records := newMigrator(t, legacyBlob)

	report, err := m.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrationReport{Total: 3, Created: 2, Merged: 1}, report)

	rec, err := records.Get(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, rec.Owners, 2, "duplicate product code collapses into one record")

	alice, ok := rec.OwnershipOf("u1")
	require.True(t, ok)
	assert.Equal(t, domain.ConditionNearMint, alice.Condition)
	assert.Equal(t, 25.0, alice.Price())

	bob, ok := rec.OwnershipOf("u2")
	require.True(t, ok)
	assert.Equal(t, domain.ConditionGood, bob.Condition)

	summary := rec.RatingSummary()
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 4.0, summary.Average)

	all, err := records.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLegacyMigrator_Idempotent(t *testing.T) {
	ctx := context.Background()
	m, records := newMigrator(t, legacyBlob)

	_, err := m.Migrate(ctx)
	require.NoError(t, err)
	first, err := records.Get(ctx, "rec-1")
	require.NoError(t, err)

	report, err := m.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Created)

	again, err := records.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, first.Version, again.Version)
	assert.Len(t, again.Owners, 2)
}

func TestLegacyMigrator_NoBlob(t *testing.T) {
	m, _ := newMigrator(t, "")
	report, err := m.Migrate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total)
}

func TestLegacyMigrator_BadBlob(t *testing.T) {
	m, _ := newMigrator(t, `{"not":"a list"}`)
	_, err := m.Migrate(context.Background())
	assert.Error(t, err)
}
