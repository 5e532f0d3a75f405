package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	clusterChannel = "tutor_session_events"

	FrameStatus = "status"
	FrameTurn   = "turn"
	FrameFiles  = "files"
	FrameReset  = "reset"
	FrameClosed = "closed"
)

// Frame is the JSON message pushed to status channel subscribers.
type Frame struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Data      interface{} `json:"data,omitempty"`
}

type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

// Hub fans session frames out to every connected client of that session,
// and to other instances through redis when configured.
type Hub struct {
	// session id -> connected clients (several tabs may watch one session)
	clients map[string]map[*Client]struct{}

	register     chan *Client
	unregister   chan *Client
	closeSession chan string
	// closed when Run returns so late callers never block
	done chan struct{}

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:      make(map[string]map[*Client]struct{}),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		closeSession: make(chan string),
		done:         make(chan struct{}),
		rdb:          rdb,
		instanceID:   uuid.NewString(),
		logger:       log,
	}
}

// Run owns client registration until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.SessionID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.SessionID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case sessionID := <-h.closeSession:
			h.mu.Lock()
			for client := range h.clients[sessionID] {
				h.remove(client)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held. Send is closed here and nowhere else.
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Session has no more watchers", map[string]interface{}{"session_id": client.SessionID})
	}
}

// Publish sends a frame to local watchers of sessionID and to other instances.
func (h *Hub) Publish(sessionID, frameType string, data interface{}) {
	payload, err := json.Marshal(Frame{Type: frameType, SessionID: sessionID, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode frame", map[string]interface{}{"error": err.Error(), "type": frameType})
		return
	}

	h.deliver(sessionID, payload)

	if h.rdb != nil {
		msg, _ := json.Marshal(clusterMessage{Origin: h.instanceID, SessionID: sessionID, Message: payload})
		if err := h.rdb.Publish(context.Background(), clusterChannel, msg).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// CloseSession disconnects every local watcher of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.Publish(sessionID, FrameClosed, nil)
	select {
	case h.closeSession <- sessionID:
	case <-h.done:
	}
}

// attach registers client, reporting false once the hub has stopped.
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		if !client.enqueue(payload) {
			h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
			// unregister is served by Run, which needs the write lock we hold
			go client.leave()
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var cm clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
			h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if cm.Origin == h.instanceID {
			continue
		}
		h.deliver(cm.SessionID, cm.Message)
	}
}
