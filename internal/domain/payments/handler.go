package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/middleware"
	"github.com/coduxa/coduxa-api/internal/pkg/response"
	"github.com/coduxa/coduxa-api/internal/pkg/validator"
	"github.com/coduxa/coduxa-api/internal/pkg/xendit"
)

// Handler handles payment HTTP requests
type Handler struct {
	service       *Service
	callbackToken string
}

// NewHandler creates payments handler. callbackToken may be empty in
// development, which disables webhook authentication.
func NewHandler(service *Service, callbackToken string) *Handler {
	return &Handler{service: service, callbackToken: callbackToken}
}

// CreateInvoiceRequest is the top-up initiation payload
type CreateInvoiceRequest struct {
	PackID string `json:"pack_id" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// ListPacks handles GET /payments/packs
func (h *Handler) ListPacks(w http.ResponseWriter, r *http.Request) {
	response.OK(w, Packs)
}

// CreateInvoice handles POST /payments/invoice
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	invoice, err := h.service.CreateTopUpInvoice(r.Context(), userID, req.PackID, req.Email)
	if err != nil {
		if errors.Is(err, ErrUnknownPack) {
			response.BadRequest(w, "unknown pack_id")
			return
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("invoice creation failed")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{
		"invoice_id":  invoice.ID,
		"invoice_url": invoice.InvoiceURL,
		"external_id": invoice.ExternalID,
	})
}

// GetHistory handles GET /payments
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 20
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	payments, err := h.service.History(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, payments, response.Meta{
		Limit:   limit,
		Offset:  offset,
		Count:   len(payments),
		HasNext: len(payments) == limit,
	})
}

// Webhook handles POST /webhook (and the /api/payments/webhook alias).
//
// 200 means processed or intentionally skipped; the gateway retries on any
// other status, so non-actionable callbacks must still acknowledge. 400 is
// reserved for payloads no fallback can resolve, 500 for a credit mutation
// that failed through both ledger paths.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.callbackToken != "" {
		if !xendit.VerifyCallbackToken(r.Header.Get("x-callback-token"), h.callbackToken) {
			response.Unauthorized(w, "invalid callback token")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		response.BadRequest(w, "cannot read body")
		return
	}

	cb, err := xendit.ParseInvoiceCallback(body)
	if err != nil {
		response.BadRequest(w, "invalid webhook payload")
		return
	}

	result, err := h.service.ProcessInvoiceCallback(r.Context(), cb)
	if err != nil {
		if errors.Is(err, ErrUnresolvablePayload) {
			log.Warn().
				Str("external_id", cb.ExternalID).
				Str("description", cb.Description).
				Msg("webhook rejected: unresolvable payload")
			response.BadRequest(w, "cannot resolve user or credits")
			return
		}
		log.Error().Err(err).Str("external_id", cb.ExternalID).Msg("webhook credit mutation failed")
		response.InternalError(w)
		return
	}

	if result.Skipped {
		response.OK(w, map[string]string{"status": "skipped"})
		return
	}

	log.Info().
		Str("user_id", result.UserID).
		Int("credits", result.Credits).
		Bool("fallback", result.Fallback).
		Msg("webhook processed")

	response.OK(w, map[string]string{"status": "ok"})
}

// Routes returns payments router (authenticated endpoints)
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/packs", h.ListPacks)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetHistory)
		r.Post("/invoice", h.CreateInvoice)
	})

	return r
}

// WebhookRoutes returns webhook router (no auth, callback token verification)
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Webhook)
	return r
}
