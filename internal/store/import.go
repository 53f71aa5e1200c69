package store

import (
	"context"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
)

// ImportResult tells what Import did with one record.
type ImportResult string

const (
	ImportCreated ImportResult = "created"
	ImportMerged  ImportResult = "merged"
	ImportSkipped ImportResult = "skipped"
	ImportFailed  ImportResult = "failed"
)

// Import stores a record coming from a bulk source. A record whose id is
// already stored is skipped. A record whose product code is held by another
// record has its ownership and rating facts merged into that record, facts
// already present there winning.
func (s *Records) Import(ctx context.Context, rec *domain.Record) (ImportResult, string, error) {
	_, err := s.Get(ctx, rec.ID)
	switch {
	case err == nil:
		return ImportSkipped, rec.ID, nil
	case !apperr.Is(err, apperr.ErrNotFound):
		return ImportFailed, rec.ID, err
	}

	_, err = s.Create(ctx, rec)
	if err == nil {
		return ImportCreated, rec.ID, nil
	}
	holder := ConflictHolder(err)
	if holder == "" {
		return ImportFailed, rec.ID, err
	}

	src := rec.Clone()
	src.Normalize()
	_, err = s.Update(ctx, holder, func(dst *domain.Record) error {
		for _, o := range src.Owners {
			if _, ok := dst.OwnershipOf(o.UserID); !ok {
				dst.Owners = append(dst.Owners, o)
			}
		}
		for _, r := range src.Ratings {
			if _, ok := dst.RatingOf(r.UserID); !ok {
				dst.Ratings = append(dst.Ratings, r)
			}
		}
		return nil
	})
	if err != nil {
		return ImportFailed, holder, err
	}
	return ImportMerged, holder, nil
}

// ConflictHolder returns the id of the record already holding a product
// code when err is a product code conflict, "" otherwise.
func ConflictHolder(err error) string {
	var appErr *apperr.Error
	if !apperr.As(err, &appErr) || appErr.Code != apperr.CodeConflict {
		return ""
	}
	details, ok := appErr.Details.(map[string]string)
	if !ok {
		return ""
	}
	return details["recordId"]
}
