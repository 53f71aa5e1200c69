package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/handlers"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Get("/api/bookmarks", handlers.ListBookmarks(d))
	r.Put("/api/bookmarks/{recordId}", handlers.AddBookmark(d))
	r.Delete("/api/bookmarks/{recordId}", handlers.RemoveBookmark(d))
}
