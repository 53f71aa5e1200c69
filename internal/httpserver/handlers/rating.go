package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/franckmandon/vinylib-sub000/internal/catalog"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/mw"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/respond"
)

// SetRating sets the caller's rating; {"rating":0} or null clears it.
func SetRating(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in catalog.RatingInput
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, d.Logger, err)
			return
		}

		res, err := d.Catalog.SetRating(r.Context(), mw.IdentityFrom(r.Context()), chi.URLParam(r, "id"), in)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, res)
	}
}
