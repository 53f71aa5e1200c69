package store

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
)

// Records is the Record Store: per-record keyed storage with optimistic
// concurrency on every write.
type Records struct {
	run *runner
	log logger.Logger
	now func() time.Time
}

// NewRecords creates a record store on top of kv.
func NewRecords(kv KV, opts Options, log logger.Logger) *Records {
	return &Records{
		run: &runner{kv: kv, opts: opts, log: log},
		log: log,
		now: time.Now,
	}
}

// ListAll returns every record, newest first (ties by ID).
func (s *Records) ListAll(ctx context.Context) ([]*domain.Record, error) {
	var out []*domain.Record
	err := s.run.view(ctx, "records.list", func(tx Tx) error {
		ids, err := tx.Members(KeyAllRecords)
		if err != nil {
			return err
		}
		out, err = loadMany(tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByOwner returns the records userID holds an ownership fact on.
func (s *Records) ListByOwner(ctx context.Context, userID string) ([]*domain.Record, error) {
	var out []*domain.Record
	err := s.run.view(ctx, "records.list_by_owner", func(tx Tx) error {
		ids, err := tx.Members(UserRecordsKey(userID))
		if err != nil {
			return err
		}
		recs, err := loadMany(tx, ids)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if rec.IsOwnedBy(userID) {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

// Get returns one record or NOT_FOUND.
func (s *Records) Get(ctx context.Context, id string) (*domain.Record, error) {
	var rec *domain.Record
	err := s.run.view(ctx, "records.get", func(tx Tx) error {
		var err error
		rec, err = loadRecord(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByProductCode returns the record registered under code or NOT_FOUND.
func (s *Records) FindByProductCode(ctx context.Context, code string) (*domain.Record, error) {
	code = NormalizeProductCode(code)
	if code == "" {
		return nil, apperr.NotFound("empty product code")
	}

	var rec *domain.Record
	err := s.run.view(ctx, "records.find_by_product_code", func(tx Tx) error {
		holder, err := tx.Get(ProductCodeKey(code))
		if errors.Is(err, ErrKeyNotFound) {
			return apperr.NotFoundf("no record with product code %s", code)
		}
		if err != nil {
			return err
		}
		rec, err = loadRecord(tx, string(holder))
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Create inserts a new record. rec.ID must be set. A product code already
// registered to another record yields CONFLICT with the holder's id in the
// details.
func (s *Records) Create(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	out := rec.Clone()
	out.Normalize()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = s.now().UTC()
	}
	out.UpdatedAt = out.CreatedAt
	out.Version = 1

	err := s.run.update(ctx, "records.create", func(tx Tx) error {
		if _, err := tx.Get(RecordKey(out.ID)); err == nil {
			return apperr.Conflict("record id already in use")
		} else if !errors.Is(err, ErrKeyNotFound) {
			return err
		}
		return writeRecord(tx, nil, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put replaces the stored record with rec, or inserts it. Callers must have
// merged every sub-collection beforehand: the ownership and rating facts
// written are exactly rec's. Put always bumps UpdatedAt and Version.
func (s *Records) Put(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	var out *domain.Record
	err := s.run.update(ctx, "records.put", func(tx Tx) error {
		next := rec.Clone()
		next.Normalize()
		now := s.now().UTC()

		stored, err := loadStored(tx, rec.ID)
		switch {
		case apperr.Is(err, apperr.ErrNotFound):
			stored = nil
			next.Version = 1
		case err != nil:
			return err
		default:
			next.Version = stored.Version + 1
			if next.CreatedAt.IsZero() {
				next.CreatedAt = stored.CreatedAt
			}
		}
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
		next.UpdatedAt = now

		sortFacts(next)
		out = next
		return writeRecord(tx, stored, next)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies mutate to a fresh copy of the record inside an optimistic
// transaction and writes back only what changed. mutate may run several
// times when concurrent writers collide, so it must be free of side effects
// outside the record. A mutate that changes nothing produces no write.
func (s *Records) Update(ctx context.Context, id string, mutate func(rec *domain.Record) error) (*domain.Record, error) {
	var out *domain.Record
	err := s.run.update(ctx, "records.update", func(tx Tx) error {
		stored, err := loadStored(tx, id)
		if err != nil {
			return err
		}

		current := stored.Clone()
		current.Normalize()
		next := current.Clone()
		if err := mutate(next); err != nil {
			return err
		}

		next.ID = stored.ID
		next.CreatedAt = stored.CreatedAt
		next.Version = stored.Version

		before, err := encode(stored)
		if err != nil {
			return err
		}
		after, err := encode(next)
		if err != nil {
			return err
		}
		if bytes.Equal(before, after) {
			out = next
			return nil
		}

		next.Version = stored.Version + 1
		next.UpdatedAt = s.now().UTC()
		sortFacts(next)
		out = next
		return writeRecord(tx, stored, next)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the record, its facts and the bookmarks pointing at it.
// It reports whether the record existed.
func (s *Records) Delete(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.run.update(ctx, "records.delete", func(tx Tx) error {
		deleted = false
		stored, err := loadStored(tx, id)
		if apperr.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		deleted = true
		return deleteRecord(tx, stored)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// DeleteOrphan removes the record only if, at commit time, it has no owner,
// nobody bookmarked it and it was last updated before cutoff.
func (s *Records) DeleteOrphan(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	deleted := false
	err := s.run.update(ctx, "records.delete_orphan", func(tx Tx) error {
		deleted = false
		rec, err := loadRecord(tx, id)
		if apperr.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if rec.OwnerCount() > 0 || !rec.UpdatedAt.Before(cutoff) {
			return nil
		}
		bookmarkers, err := tx.Members(RecordBookmarkersKey(id))
		if err != nil {
			return err
		}
		if len(bookmarkers) > 0 {
			return nil
		}
		deleted = true
		return deleteRecord(tx, rec)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// Count returns the number of indexed records.
func (s *Records) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.run.view(ctx, "records.count", func(tx Tx) error {
		ids, err := tx.Members(KeyAllRecords)
		n = len(ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Ping checks the substrate is reachable.
func (s *Records) Ping(ctx context.Context) error {
	if err := s.run.kv.Ping(ctx); err != nil {
		return apperr.StoreUnavailable("store unreachable", err)
	}
	return nil
}

func loadMany(tx Tx, ids []string) ([]*domain.Record, error) {
	out := make([]*domain.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := loadRecord(tx, id)
		if apperr.Is(err, apperr.ErrNotFound) {
			// Index entry outlived its record
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func sortNewestFirst(recs []*domain.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
