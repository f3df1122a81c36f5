package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/FranMor97/Book-Server/internal/auth"
	"github.com/FranMor97/Book-Server/internal/events"
	"github.com/FranMor97/Book-Server/internal/metrics"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	textMessage = websocket.TextMessage
	pingMessage = websocket.PingMessage

	DefaultPingInterval = 30 * time.Second
	DefaultPongTimeout  = 90 * time.Second
)

var errClientClosed = errors.New("client connection closed")

// Hub owns the connection registry: connections by id, the connections of
// each user and the members of each room. All three maps share one lock.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	users   map[uint]map[string]*Client
	rooms   map[string]map[string]*Client

	limiters     *limiterPool
	log          *zap.Logger
	pingInterval time.Duration
	pongTimeout  time.Duration
}

type HubOptions struct {
	RateRPS      float64
	RateBurst    int
	PingInterval time.Duration
	PongTimeout  time.Duration
}

func NewHub(log *zap.Logger, opts HubOptions) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = DefaultPongTimeout
	}
	return &Hub{
		clients:      make(map[string]*Client),
		users:        make(map[uint]map[string]*Client),
		rooms:        make(map[string]map[string]*Client),
		limiters:     newLimiterPool(opts.RateRPS, opts.RateBurst),
		log:          log,
		pingInterval: opts.PingInterval,
		pongTimeout:  opts.PongTimeout,
	}
}

func (h *Hub) PongTimeout() time.Duration {
	return h.pongTimeout
}

// Register adds a pending client and starts its keepalive.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mu.Unlock()

	metrics.Connections.Inc()
	if h.pingInterval > 0 {
		go h.pingRoutine(client)
	}
	h.log.Debug("connection registered", zap.String("conn_id", client.ID), zap.Int("total", count))
}

// Unregister removes the client from every map. It is safe to call more
// than once and returns how many connections the user still has.
func (h *Hub) Unregister(client *Client) int {
	h.mu.Lock()
	// read under h.mu so a concurrent BindUser is either fully visible or
	// sees the client already gone
	userID := client.UserID()
	if _, ok := h.clients[client.ID]; !ok {
		remaining := len(h.users[userID])
		h.mu.Unlock()
		return remaining
	}
	delete(h.clients, client.ID)
	for room, members := range h.rooms {
		if _, ok := members[client.ID]; ok {
			h.leaveLocked(client, room)
		}
	}
	remaining := 0
	if conns, ok := h.users[userID]; ok {
		delete(conns, client.ID)
		remaining = len(conns)
		if remaining == 0 {
			delete(h.users, userID)
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.limiters.remove(client.ID)
	client.Close()
	metrics.Connections.Dec()
	h.log.Debug("connection unregistered",
		zap.String("conn_id", client.ID),
		zap.Uint("user_id", userID),
		zap.Int("total", count),
	)
	return remaining
}

// BindUser authenticates a pending client and subscribes it to its user
// room. It reports false if the client was already authenticated or closed.
func (h *Hub) BindUser(client *Client, identity auth.Identity) bool {
	if !client.authenticate(identity) {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return false
	}
	conns, ok := h.users[identity.UserID]
	if !ok {
		conns = make(map[string]*Client)
		h.users[identity.UserID] = conns
	}
	conns[client.ID] = client
	h.joinLocked(client, events.UserRoom(identity.UserID))
	return true
}

func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	h.joinLocked(client, room)
}

func (h *Hub) Leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

func (h *Hub) joinLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
		metrics.Rooms.Inc()
	}
	members[client.ID] = client
}

func (h *Hub) leaveLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client.ID)
	if len(members) == 0 {
		delete(h.rooms, room)
		metrics.Rooms.Dec()
	}
}

// EmitToRoom encodes once and writes to every client in the room. Clients
// whose write fails are dropped; that never fails the emit.
func (h *Hub) EmitToRoom(room, event string, payload interface{}) error {
	data, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			metrics.DeliveryFailures.Inc()
			h.log.Warn("dropping connection after failed write",
				zap.String("conn_id", c.ID),
				zap.Uint("user_id", c.UserID()),
				zap.String("event", event),
				zap.Error(err),
			)
			h.Unregister(c)
		}
	}
	metrics.EventsEmitted.WithLabelValues(event).Inc()
	return nil
}

func (h *Hub) EmitToGroup(groupID uint, event string, payload interface{}) error {
	return h.EmitToRoom(events.GroupRoom(groupID), event, payload)
}

func (h *Hub) EmitToUser(userID uint, event string, payload interface{}) error {
	return h.EmitToRoom(events.UserRoom(userID), event, payload)
}

// JoinUserToGroup subscribes every live connection of userID to the group.
func (h *Hub) JoinUserToGroup(userID, groupID uint) {
	room := events.GroupRoom(groupID)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.users[userID] {
		h.joinLocked(c, room)
	}
}

func (h *Hub) RemoveUserFromGroup(userID, groupID uint) {
	room := events.GroupRoom(groupID)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.users[userID] {
		h.leaveLocked(c, room)
	}
}

// Allow consumes one token from the client's inbound bucket.
func (h *Hub) Allow(client *Client) bool {
	return h.limiters.Allow(client.ID)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) InRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][client.ID]
	return ok
}

func (h *Hub) UserConnections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// WatchAuthentication closes the client if it is still pending after grace.
// The returned func cancels the watch.
func (h *Hub) WatchAuthentication(client *Client, grace time.Duration) func() {
	timer := time.AfterFunc(grace, func() {
		if client.State() != StatePending {
			return
		}
		metrics.AuthOutcomes.WithLabelValues("deferred", "timeout").Inc()
		h.log.Info("closing unauthenticated connection", zap.String("conn_id", client.ID), zap.Duration("grace", grace))
		SendAuthError(client, "auth_timeout", "Authentication timed out")
		h.Unregister(client)
	})
	return func() { timer.Stop() }
}

// pingRoutine sends periodic pings to keep the connection alive
func (h *Hub) pingRoutine(client *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.Done():
			return
		case <-ticker.C:
			if err := client.ping(10 * time.Second); err != nil {
				h.log.Debug("ping failed", zap.String("conn_id", client.ID), zap.Error(err))
				h.Unregister(client)
				return
			}
		}
	}
}
