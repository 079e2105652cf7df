package leaderboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/middleware"
	"github.com/coduxa/coduxa-api/internal/pkg/response"
)

// Handler handles leaderboard HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates leaderboard handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Top handles GET /leaderboard
func (h *Handler) Top(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.service.Top(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load leaderboard")
		response.InternalError(w)
		return
	}
	response.OK(w, entries)
}

// Me handles GET /leaderboard/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	entry, err := h.service.UserRank(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotRanked) {
			response.NotFound(w, "No exam results yet")
			return
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load rank")
		response.InternalError(w)
		return
	}
	response.OK(w, entry)
}

// Routes returns leaderboard router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Top)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/me", h.Me)
	})

	return r
}
