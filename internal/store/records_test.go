package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/store"
	"github.com/franckmandon/vinylib-sub000/internal/store/memory"
)

func testOptions() store.Options {
	return store.Options{
		OpTimeout:          5 * time.Second,
		MaxConflictRetries: 100,
		RetryInterval:      time.Millisecond,
		MaxRetryInterval:   5 * time.Millisecond,
	}
}

func newRecords(t *testing.T) (*store.Records, *memory.KV) {
	t.Helper()
	kv := memory.New()
	return store.NewRecords(kv, testOptions(), logger.Nop()), kv
}

func ptr(v float64) *float64 { return &v }

func newRecord(id, code string, created time.Time) *domain.Record {
	return &domain.Record{
		ID:          id,
		ProductCode: code,
		Artist:      "Artist " + id,
		Album:       "Album " + id,
		CreatedAt:   created,
	}
}

func TestRecordsCreateAndGet(t *testing.T) {
	ctx := context.Background()
	records, _ := newRecords(t)

	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := newRecord("rec-1", "0777-7464", t0)
	rec.UpsertOwnership("u1", "alice", domain.OwnershipFacts{Condition: domain.ConditionMint, PurchasePrice: ptr(20)}, t0)

	created, err := records.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, t0, created.UpdatedAt)

	got, err := records.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "Album rec-1", got.Album)
	require.Len(t, got.Owners, 1)
	assert.Equal(t, 20.0, got.Owners[0].Price())

	byCode, err := records.FindByProductCode(ctx, "07777464")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", byCode.ID)

	_, err = records.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestRecordsCreateDuplicateProductCode(t *testing.T) {
	ctx := context.Background()
	records, _ := newRecords(t)
	now := time.Now().UTC()

	_, err := records.Create(ctx, newRecord("rec-1", "X", now))
	require.NoError(t, err)

	_, err = records.Create(ctx, newRecord("rec-2", "x", now))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, map[string]string{"recordId": "rec-1"}, appErr.Details)
}

func TestRecordsListAllOrder(t *testing.T) {
	ctx := context.Background()
	records, _ := newRecords(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []*domain.Record{
		newRecord("rec-b", "", t0),
		newRecord("rec-a", "", t0),
		newRecord("rec-c", "", t0.Add(time.Hour)),
	} {
		_, err := records.Create(ctx, r)
		require.NoError(t, err)
	}

	all, err := records.ListAll(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"rec-c", "rec-a", "rec-b"}, ids)
}

func TestRecordsUpdateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	records, _ := newRecords(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := records.Create(ctx, newRecord("rec-1", "", t0))
	require.NoError(t, err)

	updated, err := records.Update(ctx, "rec-1", func(r *domain.Record) error {
		r.Genre = "Rock"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.True(t, updated.UpdatedAt.After(t0))
	assert.Equal(t, t0, updated.CreatedAt)

	same, err := records.Update(ctx, "rec-1", func(r *domain.Record) error {
		r.Genre = "Rock"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), same.Version, "no-op does not write")

	_, err = records.Update(ctx, "missing", func(r *domain.Record) error { return nil })
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestRecordsUpdateLeavesSiblingFactKeysUntouched(t *testing.T) {
	ctx := context.Background()
	records, kv := newRecords(t)
	now := time.Now().UTC()

	rec := newRecord("rec-1", "", now)
	rec.UpsertOwnership("u1", "alice", domain.OwnershipFacts{PurchasePrice: ptr(20)}, now)
	rec.UpsertOwnership("u2", "bob", domain.OwnershipFacts{PurchasePrice: ptr(35)}, now)
	_, err := records.Create(ctx, rec)
	require.NoError(t, err)

	before := readKey(t, kv, store.OwnershipKey("rec-1", "u2"))

	_, err = records.Update(ctx, "rec-1", func(r *domain.Record) error {
		r.RemoveOwnership("u1")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, before, readKey(t, kv, store.OwnershipKey("rec-1", "u2")))
	_, err = kvGet(kv, store.OwnershipKey("rec-1", "u1"))
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	mine, err := records.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, mine)
	theirs, err := records.ListByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestRecordsConcurrentAttachKeepsEveryOwner(t *testing.T) {
	ctx := context.Background()
	records, _ := newRecords(t)
	now := time.Now().UTC()

	_, err := records.Create(ctx, newRecord("rec-1", "", now))
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%02d", i)
			_, err := records.Update(ctx, "rec-1", func(r *domain.Record) error {
				r.UpsertOwnership(userID, userID, domain.OwnershipFacts{PurchasePrice: ptr(float64(i))}, now)
				return nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := records.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Len(t, got.Owners, writers)
	assert.Equal(t, int64(writers+1), got.Version)
}

func TestRecordsDeleteRemovesBookmarks(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	records := store.NewRecords(kv, testOptions(), logger.Nop())
	bookmarks := store.NewBookmarks(kv, testOptions(), logger.Nop())

	_, err := records.Create(ctx, newRecord("rec-1", "X", time.Now()))
	require.NoError(t, err)
	_, _, err = bookmarks.Add(ctx, "u2", "rec-1")
	require.NoError(t, err)

	deleted, err := records.Delete(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err := bookmarks.Exists(ctx, "u2", "rec-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = records.FindByProductCode(ctx, "X")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	deleted, err = records.Delete(ctx, "rec-1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Zero(t, kv.Len())
}

func TestRecordsLoadNormalizesLegacyRecord(t *testing.T) {
	ctx := context.Background()
	records, kv := newRecords(t)

	legacy := []byte(`{"id":"rec-old","artist":"A","album":"B","primaryOwnerId":"u1",` +
		`"primaryOwnerUsername":"alice","condition":"Good","purchasePrice":12.5,"legacyRating":4,` +
		`"createdAt":"2019-05-01T00:00:00Z"}`)
	require.NoError(t, kv.Update(ctx, func(tx store.Tx) error {
		if err := tx.Set(store.RecordKey("rec-old"), legacy); err != nil {
			return err
		}
		return tx.AddMember(store.KeyAllRecords, "rec-old")
	}))

	got, err := records.Get(ctx, "rec-old")
	require.NoError(t, err)
	require.Len(t, got.Owners, 1)
	assert.Equal(t, domain.ConditionGood, got.Owners[0].Condition)
	assert.Equal(t, 12.5, got.Owners[0].Price())
	assert.Equal(t, domain.RatingSummary{Average: 4, Count: 1}, got.RatingSummary())

	updated, err := records.Update(ctx, "rec-old", func(r *domain.Record) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version, "folding legacy fields is a write")

	mine, err := records.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestRecordsConflictRetriesExhausted(t *testing.T) {
	kv := &flakyKV{KV: memory.New(), err: store.ErrConflict}
	opts := testOptions()
	opts.MaxConflictRetries = 3
	records := store.NewRecords(kv, opts, logger.Nop())

	_, err := records.Create(context.Background(), newRecord("rec-1", "", time.Now()))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	assert.Equal(t, int32(4), kv.calls.Load())
}

func TestRecordsTransientErrorRetriedOnce(t *testing.T) {
	kv := &flakyKV{KV: memory.New(), err: errors.New("connection reset")}
	records := store.NewRecords(kv, testOptions(), logger.Nop())

	_, err := records.Create(context.Background(), newRecord("rec-1", "", time.Now()))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStoreUnavailable, apperr.CodeOf(err))
	assert.Equal(t, int32(2), kv.calls.Load())

	kv = &flakyKV{KV: memory.New(), err: errors.New("connection reset"), failures: 1}
	records = store.NewRecords(kv, testOptions(), logger.Nop())
	_, err = records.Create(context.Background(), newRecord("rec-1", "", time.Now()))
	require.NoError(t, err)
}

func TestRecordsPutBumpsUpdatedAtAndVersion(t *testing.T) {
	ctx := context.Background()
	records, _ := newRecords(t)

	stale := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := newRecord("rec-1", "0777-7464", stale)
	rec.UpdatedAt = stale
	rec.UpsertOwnership("u1", "alice", domain.OwnershipFacts{Condition: domain.ConditionGood}, stale)

	first, err := records.Put(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, stale, first.CreatedAt)
	assert.True(t, first.UpdatedAt.After(stale))

	rec.Genre = "Jazz"
	second, err := records.Put(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, stale, second.CreatedAt)
	assert.WithinDuration(t, time.Now(), second.UpdatedAt, time.Minute)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	got, err := records.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "Jazz", got.Genre)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, second.UpdatedAt, got.UpdatedAt)
	assert.True(t, got.IsOwnedBy("u1"))
}

func TestRecordsPutProductCodeConflict(t *testing.T) {
	ctx := context.Background()
	records, _ := newRecords(t)

	_, err := records.Create(ctx, newRecord("rec-1", "0777-7464", time.Now()))
	require.NoError(t, err)

	_, err = records.Put(ctx, newRecord("rec-2", "07777464", time.Now()))
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	assert.Equal(t, "rec-1", store.ConflictHolder(err))
}

func TestRecordsTimeoutIsStoreUnavailable(t *testing.T) {
	kv := &stallingKV{KV: memory.New()}
	opts := testOptions()
	opts.OpTimeout = 30 * time.Millisecond
	records := store.NewRecords(kv, opts, logger.Nop())

	rec := newRecord("rec-1", "0777-7464", time.Now())
	rec.UpsertOwnership("u1", "alice", domain.OwnershipFacts{}, time.Now())

	_, err := records.Create(context.Background(), rec)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStoreUnavailable, apperr.CodeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, kv.Len(), "a timed out write leaves nothing behind")

	all, err := records.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

// stallingKV buffers the transaction's writes, then blocks until the
// context expires so the commit never happens.
type stallingKV struct {
	*memory.KV
}

func (s *stallingKV) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.KV.Update(ctx, func(tx store.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		<-ctx.Done()
		return ctx.Err()
	})
}

// flakyKV fails the first failures Update calls (all of them when 0).
type flakyKV struct {
	*memory.KV
	err      error
	failures int32
	calls    atomic.Int32
}

func (f *flakyKV) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	n := f.calls.Add(1)
	if f.failures == 0 || n <= f.failures {
		return f.err
	}
	return f.KV.Update(ctx, fn)
}

func kvGet(kv store.KV, key string) ([]byte, error) {
	var out []byte
	err := kv.View(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.Get(key)
		return err
	})
	return out, err
}

func readKey(t *testing.T, kv store.KV, key string) []byte {
	t.Helper()
	v, err := kvGet(kv, key)
	require.NoError(t, err)
	return v
}
