package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/handlers"
)

func init() { Register(registerRecords) }

func registerRecords(r chi.Router, d deps.Deps) {
	r.Route("/api/records", func(r chi.Router) {
		r.Get("/", handlers.ListRecords(d))
		r.Post("/", handlers.CreateRecord(d))
		r.Post("/bookmark-targets", handlers.CreateBookmarkTarget(d))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetRecord(d))
			r.Patch("/", handlers.UpdateRecord(d))
			r.Delete("/", handlers.DeleteRecord(d))

			r.Put("/owners/{userId}", handlers.AttachOwner(d))
			r.Delete("/owners/{userId}", handlers.DetachOwner(d))
			r.Put("/rating", handlers.SetRating(d))
		})
	})
}
