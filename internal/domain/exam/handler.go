package exam

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/domain/credits"
	"github.com/coduxa/coduxa-api/internal/middleware"
	"github.com/coduxa/coduxa-api/internal/pkg/response"
	"github.com/coduxa/coduxa-api/internal/pkg/validator"
)

// Handler handles exam HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates exam handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListExams handles GET /exams
func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.service.ListExams(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list exams")
		response.InternalError(w)
		return
	}
	response.OK(w, exams)
}

// GetExam handles GET /exams/{examID}
func (h *Handler) GetExam(w http.ResponseWriter, r *http.Request) {
	examID, err := uuid.Parse(chi.URLParam(r, "examID"))
	if err != nil {
		response.BadRequest(w, "Invalid exam id")
		return
	}

	e, err := h.service.GetExam(r.Context(), examID)
	if err != nil {
		if errors.Is(err, ErrExamNotFound) {
			response.NotFound(w, "Exam not found")
			return
		}
		log.Error().Err(err).Str("exam_id", examID.String()).Msg("failed to get exam")
		response.InternalError(w)
		return
	}
	response.OK(w, e)
}

// Start handles POST /exams/{examID}/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	examID, err := uuid.Parse(chi.URLParam(r, "examID"))
	if err != nil {
		response.BadRequest(w, "Invalid exam id")
		return
	}

	session, err := h.service.Start(r.Context(), userID, examID)
	if err != nil {
		switch {
		case errors.Is(err, ErrExamNotFound):
			response.NotFound(w, "Exam not found")
		case errors.Is(err, credits.ErrInsufficientCredits):
			response.PaymentRequired(w, "Not enough credits to start this exam")
		default:
			log.Error().Err(err).Str("exam_id", examID.String()).Msg("failed to start exam")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, session)
}

// SaveProgress handles PUT /exams/sessions/{sessionID}/progress
func (h *Handler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "Invalid session id")
		return
	}

	var req SaveProgressRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.service.SaveProgress(r.Context(), userID, sessionID, &req); err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			response.NotFound(w, "Session not found")
		case errors.Is(err, ErrSessionClosed):
			response.Conflict(w, "Session is no longer in progress")
		default:
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to save progress")
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// Resume handles GET /exams/sessions/{sessionID}
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "Invalid session id")
		return
	}

	resp, err := h.service.Resume(r.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			response.NotFound(w, "Session not found")
			return
		}
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to resume session")
		response.InternalError(w)
		return
	}

	response.OK(w, resp)
}

// Submit handles POST /exams/sessions/{sessionID}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "Invalid session id")
		return
	}

	var req SubmitRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	result, err := h.service.Submit(r.Context(), userID, sessionID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			response.NotFound(w, "Session not found")
		case errors.Is(err, ErrSessionClosed):
			response.Conflict(w, "Session already submitted")
		default:
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to submit session")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// Abandon handles DELETE /exams/sessions/{sessionID}
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "Invalid session id")
		return
	}

	if err := h.service.Abandon(r.Context(), userID, sessionID); err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			response.NotFound(w, "Session not found")
		case errors.Is(err, ErrSessionClosed):
			response.Conflict(w, "Session is no longer in progress")
		default:
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to abandon session")
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// MySessions handles GET /exams/sessions
func (h *Handler) MySessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessions, err := h.service.MySessions(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sessions")
		response.InternalError(w)
		return
	}
	response.OK(w, sessions)
}
