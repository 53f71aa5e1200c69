package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/mw"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/respond"
)

type removedResponse struct {
	RecordID string `json:"recordId"`
	Removed  bool   `json:"removed"`
}

func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Catalog.ListBookmarks(r.Context(), mw.IdentityFrom(r.Context()))
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, list)
	}
}

// AddBookmark answers 201 when the bookmark is new and 200 when it existed.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, created, err := d.Catalog.AddBookmark(r.Context(), mw.IdentityFrom(r.Context()), chi.URLParam(r, "recordId"))
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		respond.JSON(w, status, b)
	}
}

func RemoveBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordID := chi.URLParam(r, "recordId")
		removed, err := d.Catalog.RemoveBookmark(r.Context(), mw.IdentityFrom(r.Context()), recordID)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, removedResponse{RecordID: recordID, Removed: removed})
	}
}
