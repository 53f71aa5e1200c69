// Package catalog implements the operations users perform on the shared
// catalogue: the ownership merge engine, the rating aggregator, record
// creation with product-code deduplication and the bookmark/ownership
// exclusivity rule.
package catalog

import (
	"context"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/id"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/store"
	"github.com/franckmandon/vinylib-sub000/internal/validation"
)

// Service coordinates the record and bookmark stores.
type Service struct {
	records   *store.Records
	bookmarks *store.Bookmarks
	validate  *validation.Validator
	log       logger.Logger
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(records *store.Records, bookmarks *store.Bookmarks, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		records:   records,
		bookmarks: bookmarks,
		validate:  validation.New(),
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordView is a record with its public rating summary.
type RecordView struct {
	*domain.Record
	RatingSummary domain.RatingSummary `json:"ratingSummary"`
	// BookmarkCount is only filled by Get.
	BookmarkCount *int `json:"bookmarkCount,omitempty"`
}

func viewOf(r *domain.Record) RecordView {
	return RecordView{Record: r, RatingSummary: r.RatingSummary()}
}

// RatingResult is returned by SetRating.
type RatingResult struct {
	Record  RecordView `json:"record"`
	Average float64    `json:"average"`
	Count   int        `json:"count"`
}

// ─────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────

// List returns records newest first, or by relevance when a query is given.
func (s *Service) List(ctx context.Context, f ListFilter) ([]RecordView, error) {
	var (
		recs []*domain.Record
		err  error
	)
	if f.Owner != "" {
		recs, err = s.records.ListByOwner(ctx, f.Owner)
	} else {
		recs, err = s.records.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	if f.Query != "" {
		hits := domain.RankRecords(f.Query, recs)
		recs = make([]*domain.Record, len(hits))
		for i, h := range hits {
			recs[i] = h.Record
		}
	}

	out := make([]RecordView, len(recs))
	for i, r := range recs {
		out[i] = viewOf(r)
	}
	return out, nil
}

// Get returns one record with the number of users bookmarking it.
func (s *Service) Get(ctx context.Context, recordID string) (RecordView, error) {
	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return RecordView{}, err
	}
	n, err := s.bookmarks.CountForRecord(ctx, recordID)
	if err != nil {
		return RecordView{}, err
	}
	view := viewOf(rec)
	view.BookmarkCount = &n
	return view, nil
}

// Snapshot returns every record, for aggregation.
func (s *Service) Snapshot(ctx context.Context) ([]*domain.Record, error) {
	return s.records.ListAll(ctx)
}

// ─────────────────────────────────────────────────────────────────
// Creation
// ─────────────────────────────────────────────────────────────────

// CreateWithOwner adds a release to the caller's collection. When a record
// with the same product code already exists the caller's ownership is
// attached to it instead, and created is false.
func (s *Service) CreateWithOwner(ctx context.Context, who domain.Identity, in RecordInput, facts domain.OwnershipFacts) (RecordView, bool, error) {
	if err := requireIdentity(who); err != nil {
		return RecordView{}, false, err
	}
	if err := s.validate.Validate("invalid record", in); err != nil {
		return RecordView{}, false, err
	}
	if err := s.validate.Validate("invalid ownership facts", facts); err != nil {
		return RecordView{}, false, err
	}

	if existing, err := s.findByProductCode(ctx, in.ProductCode); err != nil {
		return RecordView{}, false, err
	} else if existing != nil {
		view, err := s.AttachOwnership(ctx, who, existing.ID, who.UserID, facts)
		return view, false, err
	}

	recordID, err := id.Generate(id.PrefixRecord)
	if err != nil {
		return RecordView{}, false, apperr.Internal("failed to generate record id", err)
	}
	now := s.now().UTC()
	rec := &domain.Record{
		ID:                   recordID,
		PrimaryOwnerID:       who.UserID,
		PrimaryOwnerUsername: who.Username,
		CreatedAt:            now,
	}
	in.apply(rec)
	rec.UpsertOwnership(who.UserID, who.Username, facts, now)

	created, err := s.records.Create(ctx, rec)
	if holder := store.ConflictHolder(err); holder != "" {
		// Lost a race on the product code
		view, err := s.AttachOwnership(ctx, who, holder, who.UserID, facts)
		return view, false, err
	}
	if err != nil {
		return RecordView{}, false, err
	}

	s.log.Info("record created",
		logger.String("record_id", created.ID),
		logger.String("user_id", who.UserID))
	return viewOf(created), true, nil
}

// CreateForBookmarkOnly creates a record without owners so it can be
// bookmarked. An existing record with the same product code is returned
// instead, with created false.
func (s *Service) CreateForBookmarkOnly(ctx context.Context, who domain.Identity, in RecordInput) (RecordView, bool, error) {
	if err := requireIdentity(who); err != nil {
		return RecordView{}, false, err
	}
	if err := s.validate.Validate("invalid record", in); err != nil {
		return RecordView{}, false, err
	}

	if existing, err := s.findByProductCode(ctx, in.ProductCode); err != nil {
		return RecordView{}, false, err
	} else if existing != nil {
		return viewOf(existing), false, nil
	}

	recordID, err := id.Generate(id.PrefixRecord)
	if err != nil {
		return RecordView{}, false, apperr.Internal("failed to generate record id", err)
	}
	rec := &domain.Record{ID: recordID, CreatedAt: s.now().UTC()}
	in.apply(rec)

	created, err := s.records.Create(ctx, rec)
	if holder := store.ConflictHolder(err); holder != "" {
		view, err := s.Get(ctx, holder)
		return view, false, err
	}
	if err != nil {
		return RecordView{}, false, err
	}

	s.log.Info("bookmark target created",
		logger.String("record_id", created.ID),
		logger.String("user_id", who.UserID))
	return viewOf(created), true, nil
}

// CreateBookmarkTarget creates (or finds) an owner-less record and bookmarks
// it for the caller, unless the caller already owns it.
func (s *Service) CreateBookmarkTarget(ctx context.Context, who domain.Identity, in RecordInput) (RecordView, *domain.Bookmark, error) {
	view, _, err := s.CreateForBookmarkOnly(ctx, who, in)
	if err != nil {
		return RecordView{}, nil, err
	}
	if view.IsOwnedBy(who.UserID) {
		return view, nil, nil
	}
	b, _, err := s.bookmarks.Add(ctx, who.UserID, view.ID)
	if err != nil {
		return RecordView{}, nil, err
	}
	return view, &b, nil
}

// ─────────────────────────────────────────────────────────────────
// Descriptive metadata
// ─────────────────────────────────────────────────────────────────

// UpdateMetadata overwrites the descriptive fields present in patch. Owners
// and admins may edit a record; anyone may enrich a record nobody owns.
// Ownership and rating facts are never touched.
func (s *Service) UpdateMetadata(ctx context.Context, who domain.Identity, recordID string, patch MetadataPatch) (RecordView, error) {
	if err := requireIdentity(who); err != nil {
		return RecordView{}, err
	}
	if patch.Empty() {
		return RecordView{}, apperr.Validation("no metadata field to update")
	}
	if err := s.validate.Validate("invalid metadata", patch); err != nil {
		return RecordView{}, err
	}

	rec, err := s.records.Update(ctx, recordID, guarded("", func(r *domain.Record) error {
		if !who.Admin && r.OwnerCount() > 0 && !r.IsOwnedBy(who.UserID) {
			return apperr.Unauthorized("only owners may edit this record")
		}
		patch.apply(r)
		return nil
	}))
	if err != nil {
		return RecordView{}, err
	}
	return viewOf(rec), nil
}

// DeleteRecord removes a record entirely. Admin only.
func (s *Service) DeleteRecord(ctx context.Context, who domain.Identity, recordID string) error {
	if err := requireIdentity(who); err != nil {
		return err
	}
	if !who.Admin {
		return apperr.Unauthorized("deleting a record requires an administrator")
	}
	deleted, err := s.records.Delete(ctx, recordID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFoundf("record %s not found", recordID)
	}
	s.log.Warn("record deleted",
		logger.String("record_id", recordID),
		logger.String("user_id", who.UserID))
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Ownership merge engine
// ─────────────────────────────────────────────────────────────────

// AttachOwnership upserts targetUserID's ownership fact, keeping its
// original addedAt, then drops the caller's bookmark on the record.
func (s *Service) AttachOwnership(ctx context.Context, who domain.Identity, recordID, targetUserID string, facts domain.OwnershipFacts) (RecordView, error) {
	if err := requireSelf(who, targetUserID); err != nil {
		return RecordView{}, err
	}
	if err := s.validate.Validate("invalid ownership facts", facts); err != nil {
		return RecordView{}, err
	}

	username := who.Username
	if who.UserID != targetUserID {
		username = ""
	}

	rec, err := s.records.Update(ctx, recordID, guarded(targetUserID, func(r *domain.Record) error {
		r.UpsertOwnership(targetUserID, username, facts, s.now().UTC())
		return nil
	}))
	if err != nil {
		return RecordView{}, err
	}

	if _, err := s.bookmarks.Remove(ctx, targetUserID, recordID); err != nil {
		s.log.Error("failed to drop bookmark after attach",
			logger.String("record_id", recordID),
			logger.String("user_id", targetUserID),
			logger.Error(err))
		return RecordView{}, err
	}

	s.log.Info("ownership attached",
		logger.String("record_id", recordID),
		logger.String("user_id", targetUserID),
		logger.Int("owners", len(rec.Owners)))
	return viewOf(rec), nil
}

// DetachOwnership removes exactly targetUserID's ownership fact. The record
// stays even when no owner remains.
func (s *Service) DetachOwnership(ctx context.Context, who domain.Identity, recordID, targetUserID string) (RecordView, error) {
	if err := requireSelf(who, targetUserID); err != nil {
		return RecordView{}, err
	}

	rec, err := s.records.Update(ctx, recordID, guarded(targetUserID, func(r *domain.Record) error {
		if !r.RemoveOwnership(targetUserID) {
			return apperr.NotFoundf("user %s does not own record %s", targetUserID, recordID)
		}
		return nil
	}))
	if err != nil {
		return RecordView{}, err
	}

	s.log.Info("ownership detached",
		logger.String("record_id", recordID),
		logger.String("user_id", targetUserID),
		logger.Int("owners", len(rec.Owners)))
	return viewOf(rec), nil
}

// ─────────────────────────────────────────────────────────────────
// Rating aggregator
// ─────────────────────────────────────────────────────────────────

// SetRating upserts the caller's rating, or removes it when the value is
// nil or 0, and returns the new public average.
func (s *Service) SetRating(ctx context.Context, who domain.Identity, recordID string, in RatingInput) (RatingResult, error) {
	if err := requireIdentity(who); err != nil {
		return RatingResult{}, err
	}
	if err := s.validate.Validate("invalid rating", in); err != nil {
		return RatingResult{}, err
	}

	rec, err := s.records.Update(ctx, recordID, guarded(who.UserID, func(r *domain.Record) error {
		if in.Rating == nil || *in.Rating == 0 {
			r.RemoveRating(who.UserID)
			return nil
		}
		r.UpsertRating(who.UserID, who.Username, *in.Rating, s.now().UTC())
		return nil
	}))
	if err != nil {
		return RatingResult{}, err
	}

	summary := rec.RatingSummary()
	return RatingResult{
		Record:  viewOf(rec),
		Average: summary.Average,
		Count:   summary.Count,
	}, nil
}

// ─────────────────────────────────────────────────────────────────
// Bookmarks
// ─────────────────────────────────────────────────────────────────

// AddBookmark bookmarks a record for the caller. Idempotent.
func (s *Service) AddBookmark(ctx context.Context, who domain.Identity, recordID string) (domain.Bookmark, bool, error) {
	if err := requireIdentity(who); err != nil {
		return domain.Bookmark{}, false, err
	}
	return s.bookmarks.Add(ctx, who.UserID, recordID)
}

// RemoveBookmark removes the caller's bookmark and reports whether it existed.
func (s *Service) RemoveBookmark(ctx context.Context, who domain.Identity, recordID string) (bool, error) {
	if err := requireIdentity(who); err != nil {
		return false, err
	}
	return s.bookmarks.Remove(ctx, who.UserID, recordID)
}

// ListBookmarks returns the caller's bookmarks joined with their records.
func (s *Service) ListBookmarks(ctx context.Context, who domain.Identity) ([]domain.BookmarkWithRecord, error) {
	if err := requireIdentity(who); err != nil {
		return nil, err
	}
	return s.bookmarks.ListWithRecords(ctx, who.UserID)
}

// ─────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────

func (s *Service) findByProductCode(ctx context.Context, code string) (*domain.Record, error) {
	if store.NormalizeProductCode(code) == "" {
		return nil, nil
	}
	rec, err := s.records.FindByProductCode(ctx, code)
	if apperr.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func requireIdentity(who domain.Identity) error {
	if who.UserID == "" {
		return apperr.Unauthorized("authentication required")
	}
	return nil
}

// requireSelf allows a user to act on their own facts only, admins excepted.
func requireSelf(who domain.Identity, targetUserID string) error {
	if err := requireIdentity(who); err != nil {
		return err
	}
	if targetUserID == "" {
		return apperr.Validation("user id is required")
	}
	if who.UserID != targetUserID && !who.Admin {
		return apperr.Unauthorized("you may only change your own ownership")
	}
	return nil
}
