package handlers

import (
	"time"

	"github.com/FranMor97/Book-Server/internal/auth"
	"github.com/FranMor97/Book-Server/internal/cache"
	"github.com/FranMor97/Book-Server/internal/handlers/ws"
	"github.com/FranMor97/Book-Server/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	groups    ws.GroupService
	gate      *auth.Gate
	hub       *ws.Hub
	userCache *cache.UserCache
	authGrace time.Duration
	log       *zap.Logger
}

func NewWebSocketHandler(groups ws.GroupService, gate *auth.Gate, hub *ws.Hub, userCache *cache.UserCache, authGrace time.Duration, log *zap.Logger) *WebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocketHandler{
		groups:    groups,
		gate:      gate,
		hub:       hub,
		userCache: userCache,
		authGrace: authGrace,
		log:       log,
	}
}

// GetHub returns the hub instance (the notifier broadcasts through it)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

// Upgrade rejects plain HTTP requests on the websocket route.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	client := ws.NewClient(c)
	h.hub.Register(client)

	ctx := &ws.MessageContext{
		Client:   client,
		Hub:      h.hub,
		Groups:   h.groups,
		Gate:     h.gate,
		Presence: h.userCache,
		Log:      h.log,
	}

	defer func() {
		userID := client.UserID()
		remaining := h.hub.Unregister(client)
		if userID != 0 && remaining == 0 {
			if err := h.userCache.SetUserOffline(userID); err != nil {
				h.log.Debug("presence update failed", zap.Uint("user_id", userID), zap.Error(err))
			}
		}
		h.log.Info("websocket disconnected", zap.String("conn_id", client.ID), zap.Uint("user_id", userID))
	}()

	pongTimeout := h.hub.PongTimeout()
	c.SetReadDeadline(time.Now().Add(pongTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	if userID, ok := c.Locals("userID").(uint); ok && userID != 0 {
		role, _ := c.Locals("role").(string)
		ws.Authenticated(ctx, auth.Identity{UserID: userID, Role: role}, "handshake")
	} else {
		if reason, ok := c.Locals("authError").(string); ok {
			metrics.AuthOutcomes.WithLabelValues("handshake", "invalid_token").Inc()
			h.log.Debug("upgrade token rejected, waiting for authenticate", zap.String("conn_id", client.ID), zap.String("reason", reason))
		}
		stop := h.hub.WatchAuthentication(client, h.authGrace)
		defer stop()
	}

	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read failed", zap.String("conn_id", client.ID), zap.Error(err))
			}
			return
		}
		// any inbound frame proves liveness
		c.SetReadDeadline(time.Now().Add(pongTimeout))
		ws.Dispatch(ctx, frame)
	}
}
