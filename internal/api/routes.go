package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"parkatlas/internal/db"
	"parkatlas/internal/jobs"
	"parkatlas/internal/transfer"
)

// NewRouter creates and configures the Chi router
func NewRouter(database *db.DB, runner *jobs.Runner, chunks *transfer.ChunkManager, uploadDir string) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(Logger)
	r.Use(CORS)

	h := NewHandlers(database, runner, chunks, uploadDir)

	r.Route("/api", func(r chi.Router) {
		r.Get("/parks", h.ListParks)
		r.Get("/parks/{id}", h.GetPark)
		r.Get("/quality/report", h.QualityReport)
		r.Post("/ingest/upload", h.UploadIngest)
		r.Post("/ingest/trigger", h.TriggerIngest)
		r.Get("/ingest/jobs", h.ListJobs)
		r.Get("/ingest/jobs/{id}", h.GetJob)
	})

	return r
}
