package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans events out to connected observers. Session-scoped events reach
// observers of that session; sensor-level events reach every observer.
// Delivery is best-effort: a slow observer's buffer overflowing drops the
// message for that observer only.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	SessionID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.relayRedis()
	}
	return h
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionClients, ok := h.clients[client.SessionID]; ok {
		delete(sessionClients, client)
		if len(sessionClients) == 0 {
			delete(h.clients, client.SessionID)
		}
	}
	close(client.Send)
}

// Broadcast delivers a session-scoped event to that session's observers.
// With redis attached the event goes through pub/sub so observers on other
// replicas see it too; local delivery then happens in relayRedis.
func (h *Hub) Broadcast(sessionID string, event Event) {
	payload := event.Encode()

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), eventChannel(sessionID), payload).Err()
		if err == nil {
			return
		}
		log.Printf("redis publish error: %v", err)
	}
	h.deliver(sessionID, payload)
}

// BroadcastAll delivers a sensor-level event to every connected observer
// regardless of session.
func (h *Hub) BroadcastAll(event Event) {
	payload := event.Encode()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sessionClients := range h.clients {
		for client := range sessionClients {
			select {
			case client.Send <- payload:
			default:
			}
		}
	}
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	// Hold the lock across the send so Unregister cannot mutate the map
	// or close a Send channel mid-iteration.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) relayRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "cogload:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(sessionIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func eventChannel(sessionID string) string {
	return "cogload:" + sessionID + ":events"
}

func sessionIDFromChannel(ch string) string {
	// cogload:{session}:events. Session ids are uuids, so the id itself
	// never contains ':'.
	const prefix = "cogload:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
