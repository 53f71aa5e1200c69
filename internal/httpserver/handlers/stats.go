package handlers

import (
	"net/http"

	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/mw"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/respond"
	"github.com/franckmandon/vinylib-sub000/internal/stats"
)

// Stats computes the caller's collection statistics over a fresh snapshot.
func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who := mw.IdentityFrom(r.Context())
		if who.UserID == "" {
			respond.Error(w, d.Logger, apperr.Unauthorized("authentication required"))
			return
		}

		snapshot, err := d.Catalog.Snapshot(r.Context())
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, stats.Compute(snapshot, who.UserID, d.Now()))
	}
}
