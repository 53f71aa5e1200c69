package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/store"
	"github.com/franckmandon/vinylib-sub000/internal/store/memory"
)

func seedRecord(t *testing.T, records *store.Records, id string, created time.Time, owner string) {
	t.Helper()
	rec := &domain.Record{ID: id, Artist: "Artist", Album: id, CreatedAt: created}
	if owner != "" {
		rec.UpsertOwnership(owner, owner, domain.OwnershipFacts{}, created)
	}
	if _, err := records.Create(context.Background(), rec); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
}

func TestGarbageCollector_Collect(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	records := store.NewRecords(kv, store.DefaultOptions(), logger.Nop())
	bookmarks := store.NewBookmarks(kv, store.DefaultOptions(), logger.Nop())

	now := time.Now()
	old := now.Add(-40 * 24 * time.Hour)
	seedRecord(t, records, "old-orphan", old, "")
	seedRecord(t, records, "recent-orphan", now.Add(-24*time.Hour), "")
	seedRecord(t, records, "owned", old, "u1")
	seedRecord(t, records, "bookmarked", old, "")
	if _, _, err := bookmarks.Add(ctx, "u2", "bookmarked"); err != nil {
		t.Fatalf("bookmark: %v", err)
	}

	gc := NewGarbageCollector(records, logger.Nop(), time.Hour, 30*24*time.Hour)
	deleted, err := gc.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 record purged, got %d", deleted)
	}

	if _, err := records.Get(ctx, "old-orphan"); err == nil {
		t.Error("old orphan should have been purged")
	}
	for _, id := range []string{"recent-orphan", "owned", "bookmarked"} {
		if _, err := records.Get(ctx, id); err != nil {
			t.Errorf("%s was incorrectly removed: %v", id, err)
		}
	}
}

func TestGarbageCollector_Disabled(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	records := store.NewRecords(kv, store.DefaultOptions(), logger.Nop())
	seedRecord(t, records, "old-orphan", time.Now().Add(-365*24*time.Hour), "")

	gc := NewGarbageCollector(records, logger.Nop(), time.Hour, 0)
	if gc.Enabled() {
		t.Fatal("collector with zero TTL should be disabled")
	}
	deleted, err := gc.Collect(ctx)
	if err != nil || deleted != 0 {
		t.Fatalf("Collect() = %d, %v; want 0, nil", deleted, err)
	}
	if _, err := records.Get(ctx, "old-orphan"); err != nil {
		t.Errorf("record removed while collector disabled: %v", err)
	}
}

// claimingStore attaches an owner between the listing and the delete.
type claimingStore struct {
	*store.Records
}

func (s claimingStore) DeleteOrphan(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	_, err := s.Update(ctx, id, func(rec *domain.Record) error {
		rec.UpsertOwnership("late", "late", domain.OwnershipFacts{}, time.Now())
		return nil
	})
	if err != nil {
		return false, err
	}
	return s.Records.DeleteOrphan(ctx, id, cutoff)
}

func TestGarbageCollector_RecheckInsideTransaction(t *testing.T) {
	ctx := context.Background()
	records := store.NewRecords(memory.New(), store.DefaultOptions(), logger.Nop())
	seedRecord(t, records, "old-orphan", time.Now().Add(-40*24*time.Hour), "")

	gc := NewGarbageCollector(claimingStore{records}, logger.Nop(), time.Hour, 30*24*time.Hour)
	deleted, err := gc.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("claimed record should survive, %d purged", deleted)
	}
	if _, err := records.Get(ctx, "old-orphan"); err != nil {
		t.Errorf("claimed record was removed: %v", err)
	}
}
