package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/id"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
)

// Bookmarks is the per-user set of "interested in" references to records.
type Bookmarks struct {
	run *runner
	now func() time.Time
}

// NewBookmarks creates a bookmark store on top of kv.
func NewBookmarks(kv KV, opts Options, log logger.Logger) *Bookmarks {
	return &Bookmarks{
		run: &runner{kv: kv, opts: opts, log: log},
		now: time.Now,
	}
}

// List returns userID's bookmarks, newest first.
func (s *Bookmarks) List(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	var out []domain.Bookmark
	err := s.run.view(ctx, "bookmarks.list", func(tx Tx) error {
		var err error
		out, err = listBookmarks(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListWithRecords returns userID's bookmarks joined with their records.
// A bookmark whose record disappeared is returned with a nil Record.
func (s *Bookmarks) ListWithRecords(ctx context.Context, userID string) ([]domain.BookmarkWithRecord, error) {
	var out []domain.BookmarkWithRecord
	err := s.run.view(ctx, "bookmarks.list_with_records", func(tx Tx) error {
		bookmarks, err := listBookmarks(tx, userID)
		if err != nil {
			return err
		}
		out = make([]domain.BookmarkWithRecord, 0, len(bookmarks))
		for _, b := range bookmarks {
			rec, err := loadRecord(tx, b.RecordID)
			if err != nil && !apperr.Is(err, apperr.ErrNotFound) {
				return err
			}
			out = append(out, domain.BookmarkWithRecord{Bookmark: b, Record: rec})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Add bookmarks recordID for userID. It is idempotent: an existing bookmark
// is returned unchanged with created=false. Bookmarking a record the user
// owns is a CONFLICT.
func (s *Bookmarks) Add(ctx context.Context, userID, recordID string) (domain.Bookmark, bool, error) {
	var (
		out     domain.Bookmark
		created bool
	)
	err := s.run.update(ctx, "bookmarks.add", func(tx Tx) error {
		created = false
		existing, err := getBookmark(tx, userID, recordID)
		if err == nil {
			out = existing
			return nil
		}
		if !apperr.Is(err, apperr.ErrNotFound) {
			return err
		}

		rec, err := loadRecord(tx, recordID)
		if err != nil {
			return err
		}
		if rec.IsOwnedBy(userID) {
			return apperr.Conflict("record is already in your collection")
		}

		bookmarkID, err := id.Generate(id.PrefixBookmark)
		if err != nil {
			return apperr.Internal("failed to generate bookmark id", err)
		}
		b := domain.Bookmark{
			ID:        bookmarkID,
			UserID:    userID,
			RecordID:  recordID,
			CreatedAt: s.now().UTC(),
		}
		data, err := encode(b)
		if err != nil {
			return err
		}
		if err := tx.Set(BookmarkKey(userID, recordID), data); err != nil {
			return err
		}
		if err := tx.AddMember(UserBookmarksKey(userID), recordID); err != nil {
			return err
		}
		if err := tx.AddMember(RecordBookmarkersKey(recordID), userID); err != nil {
			return err
		}
		out, created = b, true
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, false, err
	}
	return out, created, nil
}

// Remove deletes the bookmark and reports whether it existed.
func (s *Bookmarks) Remove(ctx context.Context, userID, recordID string) (bool, error) {
	removed := false
	err := s.run.update(ctx, "bookmarks.remove", func(tx Tx) error {
		removed = false
		if _, err := getBookmark(tx, userID, recordID); err != nil {
			if apperr.Is(err, apperr.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Delete(BookmarkKey(userID, recordID)); err != nil {
			return err
		}
		if err := tx.RemoveMember(UserBookmarksKey(userID), recordID); err != nil {
			return err
		}
		if err := tx.RemoveMember(RecordBookmarkersKey(recordID), userID); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// Exists reports whether userID bookmarked recordID.
func (s *Bookmarks) Exists(ctx context.Context, userID, recordID string) (bool, error) {
	exists := false
	err := s.run.view(ctx, "bookmarks.exists", func(tx Tx) error {
		_, err := getBookmark(tx, userID, recordID)
		if apperr.Is(err, apperr.ErrNotFound) {
			exists = false
			return nil
		}
		exists = err == nil
		return err
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CountForRecord returns how many users bookmarked recordID.
func (s *Bookmarks) CountForRecord(ctx context.Context, recordID string) (int, error) {
	n := 0
	err := s.run.view(ctx, "bookmarks.count_for_record", func(tx Tx) error {
		users, err := tx.Members(RecordBookmarkersKey(recordID))
		n = len(users)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func getBookmark(tx Tx, userID, recordID string) (domain.Bookmark, error) {
	data, err := tx.Get(BookmarkKey(userID, recordID))
	if errors.Is(err, ErrKeyNotFound) {
		return domain.Bookmark{}, apperr.NotFound("bookmark not found")
	}
	if err != nil {
		return domain.Bookmark{}, err
	}
	var b domain.Bookmark
	if err := decode(data, &b); err != nil {
		return domain.Bookmark{}, err
	}
	return b, nil
}

func listBookmarks(tx Tx, userID string) ([]domain.Bookmark, error) {
	recordIDs, err := tx.Members(UserBookmarksKey(userID))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Bookmark, 0, len(recordIDs))
	for _, recordID := range recordIDs {
		b, err := getBookmark(tx, userID, recordID)
		if apperr.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].RecordID < out[j].RecordID
	})
	return out, nil
}
