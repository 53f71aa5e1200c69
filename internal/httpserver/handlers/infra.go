package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
)

type componentStatus struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend,omitempty"`
	Records *int   `json:"records,omitempty"`
	Users   *int   `json:"users,omitempty"`
	Error   string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		store := checkStore(ctx, d)
		mode := "operational"
		if !store.OK {
			mode = "critical"
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(infraResponse{
			Mode:       mode,
			Components: map[string]componentStatus{"store": store},
		})
	}
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	st := componentStatus{Backend: d.Backend}
	if err := d.Records.Ping(ctx); err != nil {
		st.Error = "unreachable"
		return st
	}

	records, err := d.Records.Count(ctx)
	if err != nil {
		st.Error = "failed to count records"
		return st
	}
	users, err := d.Users.Count(ctx)
	if err != nil {
		st.Error = "failed to count users"
		return st
	}

	st.OK = true
	st.Records = &records
	st.Users = &users
	return st
}
