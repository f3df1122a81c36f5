package ws

import (
	"encoding/json"

	"github.com/FranMor97/Book-Server/internal/events"
	"go.uber.org/zap"
)

func Deserialize(jsonBytes []byte) (Message, error) {
	var wrapper SerializedMessage
	if err := json.Unmarshal(jsonBytes, &wrapper); err != nil {
		return nil, err
	}

	return DeserializeSerializedMessage(&wrapper)
}

func DeserializeSerializedMessage(wrapper *SerializedMessage) (Message, error) {
	msg, err := CreateMessage(wrapper.Type, typeRegistry)
	if err != nil {
		return nil, err
	}

	// ping and similar commands may omit the payload
	if len(wrapper.Payload) == 0 || string(wrapper.Payload) == "null" {
		return msg, nil
	}
	if err := FromJson(wrapper.Payload, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// allowedWhilePending lists the commands a pending client may send.
var allowedWhilePending = map[string]bool{
	events.Authenticate: true,
	events.Ping:         true,
}

// Dispatch handles one inbound frame. Every failure is reported to the
// client as an event; Dispatch never fails the read loop.
func Dispatch(ctx *MessageContext, frame []byte) {
	client := ctx.Client

	if !ctx.Hub.Allow(client) {
		SendError(client, "rate_limited", "Too many messages, slow down", "")
		return
	}

	msg, err := Deserialize(frame)
	if err != nil {
		ctx.Log.Debug("invalid websocket frame", zap.String("conn_id", client.ID), zap.Error(err))
		SendError(client, "invalid_message", "Invalid message format", err.Error())
		return
	}

	if !client.IsAuthenticated() && !allowedWhilePending[msg.GetType()] {
		SendAuthError(client, "unauthenticated", "Authenticate before sending "+msg.GetType())
		return
	}

	if err := msg.Process(ctx); err != nil {
		sendServiceError(ctx, msg.GetType(), err)
	}
}
