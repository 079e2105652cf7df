package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/domain/activity"
	"github.com/coduxa/coduxa-api/internal/domain/credits"
	"github.com/coduxa/coduxa-api/internal/middleware"
	"github.com/coduxa/coduxa-api/internal/pkg/response"
	"github.com/coduxa/coduxa-api/internal/pkg/validator"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler handles admin HTTP requests
type Handler struct {
	service  *Service
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates admin handler
func NewHandler(service *Service, hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Stats handles GET /admin/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load dashboard stats")
		response.InternalError(w)
		return
	}
	response.OK(w, stats)
}

// GrantCredits handles POST /admin/credits/grant
func (h *Handler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetUserID(r.Context())

	var req GrantCreditsRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.service.GrantCredits(r.Context(), adminID, &req); err != nil {
		if errors.Is(err, credits.ErrInvalidAmount) {
			response.BadRequest(w, "Invalid user id or amount")
			return
		}
		log.Error().Err(err).Str("user_id", req.UserID).Msg("credit grant failed")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"status": "granted"})
}

// RecentActivity handles GET /admin/activity.
// A user_id query narrows the feed to one user's entries.
func (h *Handler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var entries []activity.Entry
	var err error
	if userID := q.Get("user_id"); userID != "" {
		offset, _ := strconv.Atoi(q.Get("offset"))
		entries, err = h.service.UserActivity(r.Context(), userID, limit, offset)
	} else {
		entries, err = h.service.RecentActivity(r.Context(), limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to load activity feed")
		response.InternalError(w)
		return
	}
	response.OK(w, entries)
}

// SearchTransactions handles GET /admin/transactions
func (h *Handler) SearchTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	req := &SearchTransactionsRequest{
		UserID: q.Get("user_id"),
		TxType: q.Get("tx_type"),
		Limit:  limit,
		Offset: offset,
	}

	txs, err := h.service.SearchTransactions(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("transaction search failed")
		response.InternalError(w)
		return
	}
	response.OK(w, txs)
}

// LiveFeed handles GET /admin/feed (WebSocket upgrade)
func (h *Handler) LiveFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Connection{
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	h.hub.Register(client)

	go h.wsReader(client)
	go h.wsWriter(client)
}

// wsReader drains the connection. The feed is one-way; inbound frames
// only serve the pong handler and close detection.
func (h *Handler) wsReader(client *Connection) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("feed read error")
			}
			return
		}
	}
}

func (h *Handler) wsWriter(client *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
