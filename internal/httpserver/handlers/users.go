package handlers

import (
	"net/http"

	"github.com/franckmandon/vinylib-sub000/internal/catalog"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/respond"
)

func RegisterUser(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in catalog.RegisterInput
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, d.Logger, err)
			return
		}

		u, err := d.Accounts.Register(r.Context(), in)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusCreated, u)
	}
}
