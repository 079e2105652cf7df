package admin

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EventType for dashboard live feed messages
type EventType string

const (
	EventCreditPurchase EventType = "credit_purchase"
	EventCreditGrant    EventType = "credit_grant"
)

// feedChannel is the Redis Pub/Sub channel carrying feed events
// between API instances.
const feedChannel = "admin:feed"

// FeedEvent is one live feed message
type FeedEvent struct {
	Type        EventType `json:"type"`
	UserID      string    `json:"user_id"`
	Credits     int       `json:"credits"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`

	// SenderInstanceID prevents an instance from re-broadcasting its
	// own events received back from Redis.
	SenderInstanceID string `json:"sender_instance_id,omitempty"`
}

// Connection represents one dashboard WebSocket client
type Connection struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans live feed events out to connected dashboard clients.
// With Redis configured, events publish through Pub/Sub so every API
// instance sees them; without it the hub degrades to local-only fanout.
type Hub struct {
	connections map[*Connection]bool
	redis       *redis.Client
	pubsub      *redis.PubSub
	mu          sync.RWMutex

	register   chan *Connection
	unregister chan *Connection

	ctx        context.Context
	cancel     context.CancelFunc
	instanceID string
}

// NewHub creates a live feed hub
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[*Connection]bool),
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
		instanceID:  uuid.NewString(),
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, feedChannel)
	}
	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn] = true
			h.mu.Unlock()
			log.Debug().Msg("dashboard client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.Send)
			}
			h.mu.Unlock()
			log.Debug().Msg("dashboard client disconnected")
		}
	}
}

// Shutdown stops the hub and closes the Redis subscription
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		_ = h.pubsub.Close()
	}
}

// Register adds a dashboard client
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a dashboard client
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// PublishCreditPurchase pushes a reconciled purchase to the feed.
// Satisfies the payment service's EventPublisher.
func (h *Hub) PublishCreditPurchase(userID string, creditAmount int, packTitle string) {
	h.Publish(&FeedEvent{
		Type:        EventCreditPurchase,
		UserID:      userID,
		Credits:     creditAmount,
		Description: packTitle,
		At:          time.Now(),
	})
}

// Publish broadcasts an event locally and, when Redis is available,
// to every other API instance.
func (h *Hub) Publish(event *FeedEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.broadcastLocal(event)

	if h.redis == nil {
		return
	}
	event.SenderInstanceID = h.instanceID
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := h.redis.Publish(h.ctx, feedChannel, payload).Err(); err != nil {
		log.Warn().Err(err).Msg("feed publish failed")
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event FeedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			if event.SenderInstanceID == h.instanceID {
				continue
			}
			h.broadcastLocal(&event)
		}
	}
}

// broadcastLocal sends an event to clients connected to this instance.
// Slow clients drop the event instead of blocking the hub.
func (h *Hub) broadcastLocal(event *FeedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.connections {
		select {
		case conn.Send <- data:
		default:
		}
	}
}
