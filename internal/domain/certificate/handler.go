package certificate

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/middleware"
	"github.com/coduxa/coduxa-api/internal/pkg/response"
)

// Handler handles certificate HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates certificate handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListMine handles GET /certificates
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	certs, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list certificates")
		response.InternalError(w)
		return
	}
	response.OK(w, certs)
}

// Verify handles GET /certificates/verify/{serial}. Public: anyone
// holding a serial can confirm it is genuine.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	cert, err := h.service.Verify(r.Context(), serial)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Certificate not found")
			return
		}
		log.Error().Err(err).Str("serial", serial).Msg("failed to verify certificate")
		response.InternalError(w)
		return
	}
	response.OK(w, cert)
}

// Revoke handles DELETE /certificates/{serial} (admin only)
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	if err := h.service.Revoke(r.Context(), serial); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Certificate not found")
			return
		}
		log.Error().Err(err).Str("serial", serial).Msg("failed to revoke certificate")
		response.InternalError(w)
		return
	}
	response.NoContent(w)
}

// Routes returns certificate router
func (h *Handler) Routes(authMiddleware, adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/verify/{serial}", h.Verify)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListMine)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Delete("/{serial}", h.Revoke)
		})
	})

	return r
}
