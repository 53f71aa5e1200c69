package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
)

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Internal("failed to encode value", err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Internal("failed to decode stored value", err)
	}
	return nil
}

// encodeMeta serializes the record without its fact lists, which are
// stored under their own keys.
func encodeMeta(rec *domain.Record) ([]byte, error) {
	meta := *rec
	meta.Owners = nil
	meta.Ratings = nil
	return encode(&meta)
}

// loadRecord returns the normalized record.
func loadRecord(tx Tx, id string) (*domain.Record, error) {
	rec, err := loadStored(tx, id)
	if err != nil {
		return nil, err
	}
	rec.Normalize()
	return rec, nil
}

// loadStored assembles a record from its metadata document and fact keys
// exactly as persisted, legacy fields included.
func loadStored(tx Tx, id string) (*domain.Record, error) {
	data, err := tx.Get(RecordKey(id))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, apperr.NotFoundf("record %s not found", id)
		}
		return nil, err
	}

	var rec domain.Record
	if err := decode(data, &rec); err != nil {
		return nil, err
	}

	owners, err := tx.Members(RecordOwnersKey(id))
	if err != nil {
		return nil, err
	}
	for _, userID := range owners {
		data, err := tx.Get(OwnershipKey(id, userID))
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var o domain.Ownership
		if err := decode(data, &o); err != nil {
			return nil, err
		}
		rec.Owners = append(rec.Owners, o)
	}

	raters, err := tx.Members(RecordRatingsKey(id))
	if err != nil {
		return nil, err
	}
	for _, userID := range raters {
		data, err := tx.Get(RatingKey(id, userID))
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rt domain.Rating
		if err := decode(data, &rt); err != nil {
			return nil, err
		}
		rec.Ratings = append(rec.Ratings, rt)
	}

	sortFacts(&rec)
	return &rec, nil
}

// sortFacts orders facts by the time they were added, then by user.
func sortFacts(rec *domain.Record) {
	sort.SliceStable(rec.Owners, func(i, j int) bool {
		a, b := rec.Owners[i], rec.Owners[j]
		if !a.AddedAt.Equal(b.AddedAt) {
			return a.AddedAt.Before(b.AddedAt)
		}
		return a.UserID < b.UserID
	})
	sort.SliceStable(rec.Ratings, func(i, j int) bool {
		a, b := rec.Ratings[i], rec.Ratings[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.UserID < b.UserID
	})
}

// writeRecord persists after, touching only the fact keys that differ from
// before. before is nil for a new record.
func writeRecord(tx Tx, before, after *domain.Record) error {
	meta, err := encodeMeta(after)
	if err != nil {
		return err
	}
	if err := tx.Set(RecordKey(after.ID), meta); err != nil {
		return err
	}
	if err := tx.AddMember(KeyAllRecords, after.ID); err != nil {
		return err
	}

	if err := writeProductCode(tx, before, after); err != nil {
		return err
	}

	var prevOwners []domain.Ownership
	var prevRatings []domain.Rating
	if before != nil {
		prevOwners = before.Owners
		prevRatings = before.Ratings
	}

	if err := writeOwnerships(tx, after.ID, prevOwners, after.Owners); err != nil {
		return err
	}
	return writeRatings(tx, after.ID, prevRatings, after.Ratings)
}

func writeProductCode(tx Tx, before, after *domain.Record) error {
	prev := ""
	if before != nil {
		prev = NormalizeProductCode(before.ProductCode)
	}
	next := NormalizeProductCode(after.ProductCode)
	if prev == next {
		return nil
	}

	if next != "" {
		holder, err := tx.Get(ProductCodeKey(next))
		switch {
		case err == nil && string(holder) != after.ID:
			return apperr.Conflict("a record with this product code already exists").
				WithDetails(map[string]string{"recordId": string(holder)})
		case err != nil && !errors.Is(err, ErrKeyNotFound):
			return err
		}
		if err := tx.Set(ProductCodeKey(next), []byte(after.ID)); err != nil {
			return err
		}
	}

	if prev != "" {
		holder, err := tx.Get(ProductCodeKey(prev))
		if err == nil && string(holder) == after.ID {
			return tx.Delete(ProductCodeKey(prev))
		}
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return err
		}
	}
	return nil
}

func writeOwnerships(tx Tx, recordID string, prev, next []domain.Ownership) error {
	old := make(map[string][]byte, len(prev))
	for _, o := range prev {
		data, err := encode(o)
		if err != nil {
			return err
		}
		old[o.UserID] = data
	}

	seen := make(map[string]bool, len(next))
	for _, o := range next {
		if seen[o.UserID] {
			return apperr.Internal(fmt.Sprintf("duplicate ownership fact for user %s", o.UserID), nil)
		}
		seen[o.UserID] = true

		data, err := encode(o)
		if err != nil {
			return err
		}
		if string(old[o.UserID]) == string(data) {
			continue
		}
		if err := tx.Set(OwnershipKey(recordID, o.UserID), data); err != nil {
			return err
		}
		if err := tx.AddMember(RecordOwnersKey(recordID), o.UserID); err != nil {
			return err
		}
		if err := tx.AddMember(UserRecordsKey(o.UserID), recordID); err != nil {
			return err
		}
	}

	for userID := range old {
		if seen[userID] {
			continue
		}
		if err := tx.Delete(OwnershipKey(recordID, userID)); err != nil {
			return err
		}
		if err := tx.RemoveMember(RecordOwnersKey(recordID), userID); err != nil {
			return err
		}
		if err := tx.RemoveMember(UserRecordsKey(userID), recordID); err != nil {
			return err
		}
	}
	return nil
}

func writeRatings(tx Tx, recordID string, prev, next []domain.Rating) error {
	old := make(map[string][]byte, len(prev))
	for _, rt := range prev {
		data, err := encode(rt)
		if err != nil {
			return err
		}
		old[rt.UserID] = data
	}

	seen := make(map[string]bool, len(next))
	for _, rt := range next {
		if seen[rt.UserID] {
			return apperr.Internal(fmt.Sprintf("duplicate rating for user %s", rt.UserID), nil)
		}
		seen[rt.UserID] = true

		data, err := encode(rt)
		if err != nil {
			return err
		}
		if string(old[rt.UserID]) == string(data) {
			continue
		}
		if err := tx.Set(RatingKey(recordID, rt.UserID), data); err != nil {
			return err
		}
		if err := tx.AddMember(RecordRatingsKey(recordID), rt.UserID); err != nil {
			return err
		}
	}

	for userID := range old {
		if seen[userID] {
			continue
		}
		if err := tx.Delete(RatingKey(recordID, userID)); err != nil {
			return err
		}
		if err := tx.RemoveMember(RecordRatingsKey(recordID), userID); err != nil {
			return err
		}
	}
	return nil
}

// deleteRecord removes a record, its facts, its product code mapping and
// every bookmark pointing at it.
func deleteRecord(tx Tx, rec *domain.Record) error {
	if err := writeOwnerships(tx, rec.ID, rec.Owners, nil); err != nil {
		return err
	}
	if err := writeRatings(tx, rec.ID, rec.Ratings, nil); err != nil {
		return err
	}
	if code := NormalizeProductCode(rec.ProductCode); code != "" {
		holder, err := tx.Get(ProductCodeKey(code))
		if err == nil && string(holder) == rec.ID {
			if err := tx.Delete(ProductCodeKey(code)); err != nil {
				return err
			}
		} else if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return err
		}
	}

	bookmarkers, err := tx.Members(RecordBookmarkersKey(rec.ID))
	if err != nil {
		return err
	}
	for _, userID := range bookmarkers {
		if err := tx.Delete(BookmarkKey(userID, rec.ID)); err != nil {
			return err
		}
		if err := tx.RemoveMember(UserBookmarksKey(userID), rec.ID); err != nil {
			return err
		}
		if err := tx.RemoveMember(RecordBookmarkersKey(rec.ID), userID); err != nil {
			return err
		}
	}

	if err := tx.Delete(RecordKey(rec.ID)); err != nil {
		return err
	}
	return tx.RemoveMember(KeyAllRecords, rec.ID)
}
