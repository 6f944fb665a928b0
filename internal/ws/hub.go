package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	rediskeys "github.com/HenryAG36/online-mini-golf-sub000/internal/redis"
)

// EventsChannel carries session messages between nodes.
var EventsChannel = rediskeys.Key("events")

// envelope is what goes over the redis channel.
type envelope struct {
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

// Hub maintains the set of connected clients, grouped into one room per session.
type Hub struct {
	clients    map[string]*Client            // session/player -> Client
	rooms      map[string]map[string]*Client // sessionID -> playerID -> Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	rdb *redis.Client
	log *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// UseRedis routes broadcasts through redis so every node's clients see them.
func (h *Hub) UseRedis(rdb *redis.Client) { h.rdb = rdb }

// Broadcast sends msg to every client in the session's room, on this node or,
// with redis, on any node.
func (h *Hub) Broadcast(sessionID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal broadcast", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	if h.rdb != nil {
		env, _ := json.Marshal(envelope{SessionID: sessionID, Payload: data})
		err := h.rdb.Publish(context.Background(), EventsChannel, env).Err()
		if err == nil {
			return
		}
		h.log.Warn("publish failed, delivering locally", zap.String("session_id", sessionID), zap.Error(err))
	}
	h.deliver(sessionID, data)
}

func (h *Hub) deliver(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[sessionID] {
		select {
		case client.send <- data:
		default:
			h.log.Warn("client send buffer full, dropping message",
				zap.String("session_id", sessionID), zap.String("player_id", client.playerID))
		}
	}
}

// sendTo queues msg for one client if it is still registered.
func (h *Hub) sendTo(c *Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal message", zap.String("player_id", c.playerID), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[c.key()] != c {
		return
	}
	select {
	case c.send <- data:
	default:
		h.log.Warn("client send buffer full, dropping message", zap.String("player_id", c.playerID))
	}
}

// RoomSize returns how many clients watch a session on this node.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Run processes registrations until ctx ends, then drops every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for key, c := range h.clients {
				delete(h.clients, key)
				close(c.send)
			}
			h.rooms = make(map[string]map[string]*Client)
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if old, exists := h.clients[client.key()]; exists {
				h.log.Info("player reconnecting, closing old connection",
					zap.String("session_id", old.sessionID), zap.String("player_id", old.playerID))
				h.drop(old)
				old.closeConn("replaced by new connection")
			}
			h.clients[client.key()] = client
			if _, exists := h.rooms[client.sessionID]; !exists {
				h.rooms[client.sessionID] = make(map[string]*Client)
			}
			h.rooms[client.sessionID][client.playerID] = client
			h.mu.Unlock()

			h.log.Info("player connected",
				zap.String("session_id", client.sessionID),
				zap.String("player_id", client.playerID),
				zap.Bool("local", client.session != nil))
			if client.session != nil {
				h.sendTo(client, client.session.State())
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.key()]; ok && cur == client {
				h.drop(client)
				h.log.Info("player disconnected",
					zap.String("session_id", client.sessionID), zap.String("player_id", client.playerID))
			}
			h.mu.Unlock()
		}
	}
}

// join hands a new client to Run. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// drop removes c from the maps and closes its queue. Callers hold mu.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c.key())
	if room, exists := h.rooms[c.sessionID]; exists {
		delete(room, c.playerID)
		if len(room) == 0 {
			delete(h.rooms, c.sessionID)
		}
	}
	close(c.send)
}

// Subscribe delivers messages published by any node to local rooms until ctx
// ends. Without redis it just waits.
func (h *Hub) Subscribe(ctx context.Context) error {
	if h.rdb == nil {
		<-ctx.Done()
		return nil
	}

	pubsub := h.rdb.Subscribe(ctx, EventsChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	h.log.Info("event subscriber started", zap.String("channel", EventsChannel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.log.Info("event subscriber stopping")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.SessionID == "" {
				h.log.Warn("invalid event payload", zap.String("payload", msg.Payload))
				continue
			}
			h.deliver(env.SessionID, env.Payload)
		}
	}
}
