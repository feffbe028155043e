package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/apexwatch/face-enroll/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	batchHandler := handlers.NewBatchHandler(s.config, s.pipeline)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Batch pipeline
	s.router.Route("/api/v1/batch", func(r chi.Router) {
		r.Get("/", batchHandler.Get)
		r.Get("/stats", batchHandler.Stats)
		r.Get("/events", batchHandler.Events)

		r.Post("/items", batchHandler.AddItems)
		r.Delete("/items", batchHandler.Clear)
		r.Patch("/items/{itemId}", batchHandler.UpdateItem)
		r.Delete("/items/{itemId}", batchHandler.RemoveItem)
		r.Get("/items/{itemId}/preview", batchHandler.Preview)

		r.Post("/start", batchHandler.Start)
		r.Post("/pause", batchHandler.Pause)
		r.Post("/resume", batchHandler.Resume)
		r.Post("/retry", batchHandler.Retry)
	})
}
