package exam

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns exam router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public catalog
	r.Get("/", h.ListExams)
	r.Get("/{examID}", h.GetExam)

	// Session lifecycle (auth required)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/{examID}/start", h.Start)
		r.Get("/sessions", h.MySessions)
		r.Get("/sessions/{sessionID}", h.Resume)
		r.Put("/sessions/{sessionID}/progress", h.SaveProgress)
		r.Post("/sessions/{sessionID}/submit", h.Submit)
		r.Delete("/sessions/{sessionID}", h.Abandon)
	})

	return r
}
