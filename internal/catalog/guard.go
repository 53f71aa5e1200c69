package catalog

import (
	"bytes"
	"encoding/json"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
)

// guarded wraps a merge so that it fails with INTERNAL, before anything is
// written, if it altered any ownership or rating fact not belonging to
// userID. An empty userID protects every fact.
func guarded(userID string, merge func(r *domain.Record) error) func(r *domain.Record) error {
	return func(r *domain.Record) error {
		before, err := siblingFacts(r, userID)
		if err != nil {
			return err
		}
		if err := merge(r); err != nil {
			return err
		}
		after, err := siblingFacts(r, userID)
		if err != nil {
			return err
		}
		if !bytes.Equal(before, after) {
			return apperr.Internal("merge would alter another user's facts; nothing was written", nil)
		}
		return nil
	}
}

// siblingFacts encodes every fact not owned by userID, keyed by user so the
// result does not depend on slice order.
func siblingFacts(r *domain.Record, userID string) ([]byte, error) {
	owners := make(map[string]domain.Ownership, len(r.Owners))
	for _, o := range r.Owners {
		if o.UserID != userID {
			owners[o.UserID] = o
		}
	}
	ratings := make(map[string]domain.Rating, len(r.Ratings))
	for _, rt := range r.Ratings {
		if rt.UserID != userID {
			ratings[rt.UserID] = rt
		}
	}
	data, err := json.Marshal(struct {
		Owners  map[string]domain.Ownership `json:"owners"`
		Ratings map[string]domain.Rating    `json:"ratings"`
	}{owners, ratings})
	if err != nil {
		return nil, apperr.Internal("failed to snapshot facts", err)
	}
	return data, nil
}
