package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/mw"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/respond"
)

// AttachOwner upserts the ownership fact of {userId} on {id}. An empty body
// attaches with no facts.
func AttachOwner(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var facts domain.OwnershipFacts
		if r.ContentLength != 0 {
			if err := respond.Decode(w, r, &facts); err != nil {
				respond.Error(w, d.Logger, err)
				return
			}
		}

		view, err := d.Catalog.AttachOwnership(r.Context(), mw.IdentityFrom(r.Context()),
			chi.URLParam(r, "id"), chi.URLParam(r, "userId"), facts)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, view)
	}
}

func DetachOwner(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := d.Catalog.DetachOwnership(r.Context(), mw.IdentityFrom(r.Context()),
			chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, view)
	}
}
