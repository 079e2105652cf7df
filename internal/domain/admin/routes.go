package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns admin router. Everything behind auth + admin role.
func (h *Handler) Routes(authMiddleware, adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)
	r.Use(adminOnly)

	r.Get("/stats", h.Stats)
	r.Get("/activity", h.RecentActivity)
	r.Get("/transactions", h.SearchTransactions)
	r.Post("/credits/grant", h.GrantCredits)
	r.Get("/feed", h.LiveFeed)

	return r
}
