package ws

import (
	"errors"

	"github.com/FranMor97/Book-Server/internal/auth"
	"github.com/FranMor97/Book-Server/internal/events"
	"github.com/FranMor97/Book-Server/internal/metrics"
	"go.uber.org/zap"
)

// MessageAuthenticate carries a token for a connection that did not present
// one at upgrade.
type MessageAuthenticate struct {
	Token string `json:"token"`
}

func (msg *MessageAuthenticate) GetType() string {
	return events.Authenticate
}

func (msg *MessageAuthenticate) Process(ctx *MessageContext) error {
	if ctx.Client.IsAuthenticated() {
		return SendError(ctx.Client, "already_authenticated", "Connection is already authenticated", "")
	}

	identity, err := ctx.Gate.Verify(msg.Token)
	if err != nil {
		code := "invalid_token"
		if errors.Is(err, auth.ErrExpired) {
			code = "expired_token"
		}
		metrics.AuthOutcomes.WithLabelValues("deferred", code).Inc()
		ctx.Log.Info("websocket authentication failed", zap.String("conn_id", ctx.Client.ID), zap.Error(err))
		SendAuthError(ctx.Client, code, err.Error())
		ctx.Hub.Unregister(ctx.Client)
		return nil
	}

	Authenticated(ctx, *identity, "deferred")
	return nil
}

// Authenticated finishes the handshake for a verified identity: the client
// joins its user room and one room per group membership, then receives
// the connected event.
func Authenticated(ctx *MessageContext, identity auth.Identity, path string) {
	if !ctx.Hub.BindUser(ctx.Client, identity) {
		return
	}
	metrics.AuthOutcomes.WithLabelValues(path, "ok").Inc()

	groups, err := ctx.Groups.ListGroupIDsForUser(identity.UserID)
	if err != nil {
		ctx.Log.Error("could not load group memberships",
			zap.String("conn_id", ctx.Client.ID),
			zap.Uint("user_id", identity.UserID),
			zap.Error(err),
		)
		groups = []uint{}
	}
	for _, id := range groups {
		ctx.Hub.Join(ctx.Client, events.GroupRoom(id))
	}

	if ctx.Presence != nil {
		if err := ctx.Presence.SetUserOnline(identity.UserID); err != nil {
			ctx.Log.Debug("presence update failed", zap.Uint("user_id", identity.UserID), zap.Error(err))
		}
	}

	ctx.Log.Info("websocket authenticated",
		zap.String("conn_id", ctx.Client.ID),
		zap.Uint("user_id", identity.UserID),
		zap.String("path", path),
		zap.Int("groups", len(groups)),
	)
	ctx.Client.Send(events.Connected, events.ConnectedPayload{
		Status: "connected",
		UserID: identity.UserID,
		Groups: groups,
	})
}
