package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/franckmandon/vinylib-sub000/internal/catalog"
	"github.com/franckmandon/vinylib-sub000/internal/domain"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/mw"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/respond"
)

// createRecordRequest is the record metadata plus the caller's ownership facts.
type createRecordRequest struct {
	catalog.RecordInput
	Ownership domain.OwnershipFacts `json:"ownership"`
}

type bookmarkTargetResponse struct {
	Record   catalog.RecordView `json:"record"`
	Bookmark *domain.Bookmark   `json:"bookmark,omitempty"`
}

type deletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func ListRecords(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		views, err := d.Catalog.List(r.Context(), catalog.ListFilter{
			Owner: strings.TrimSpace(q.Get("owner")),
			Query: strings.TrimSpace(q.Get("q")),
		})
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, views)
	}
}

func GetRecord(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := d.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, view)
	}
}

// CreateRecord answers 201 for a new record and 200 when the caller was
// attached to an existing record with the same product code.
func CreateRecord(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRecordRequest
		if err := respond.Decode(w, r, &req); err != nil {
			respond.Error(w, d.Logger, err)
			return
		}

		view, created, err := d.Catalog.CreateWithOwner(r.Context(), mw.IdentityFrom(r.Context()), req.RecordInput, req.Ownership)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		respond.JSON(w, status, view)
	}
}

func CreateBookmarkTarget(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in catalog.RecordInput
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, d.Logger, err)
			return
		}

		view, b, err := d.Catalog.CreateBookmarkTarget(r.Context(), mw.IdentityFrom(r.Context()), in)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, bookmarkTargetResponse{Record: view, Bookmark: b})
	}
}

func UpdateRecord(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch catalog.MetadataPatch
		if err := respond.Decode(w, r, &patch); err != nil {
			respond.Error(w, d.Logger, err)
			return
		}

		view, err := d.Catalog.UpdateMetadata(r.Context(), mw.IdentityFrom(r.Context()), chi.URLParam(r, "id"), patch)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, view)
	}
}

func DeleteRecord(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordID := chi.URLParam(r, "id")
		if err := d.Catalog.DeleteRecord(r.Context(), mw.IdentityFrom(r.Context()), recordID); err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, deletedResponse{ID: recordID, Deleted: true})
	}
}
