package ws

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/FranMor97/Book-Server/internal/auth"
	"github.com/FranMor97/Book-Server/internal/events"
	"github.com/FranMor97/Book-Server/internal/service"
	"go.uber.org/zap"
)

// GroupService is the slice of the membership engine the socket needs.
type GroupService interface {
	CanView(groupID, viewerID uint) error
	ListGroupIDsForUser(userID uint) ([]uint, error)
	UpdateProgress(groupID, userID uint, currentPage int) (*service.ProgressUpdate, error)
}

// Presence records which users have a live connection.
type Presence interface {
	SetUserOnline(userID uint) error
	SetUserOffline(userID uint) error
}

// MessageContext provides all dependencies needed for message processing
type MessageContext struct {
	Client   *Client
	Hub      *Hub
	Groups   GroupService
	Gate     *auth.Gate
	Presence Presence
	Log      *zap.Logger
}

// Message interface for all WebSocket message types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func FromJson(jsonBytes []byte, msg Message) error {
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

// SendError sends an error event to the client
func SendError(client *Client, code, message, details string) error {
	return client.Send(events.Error, events.ErrorPayload{
		Message: message,
		Code:    code,
		Details: details,
	})
}

func SendAuthError(client *Client, code, message string) error {
	return client.Send(events.AuthError, events.ErrorPayload{
		Message: message,
		Code:    code,
	})
}

// sendServiceError reports a failed command. Service errors carry their
// kind and message; anything else is reported generically.
func sendServiceError(ctx *MessageContext, msgType string, err error) error {
	if kind := service.KindOf(err); kind != "" {
		return SendError(ctx.Client, string(kind), err.Error(), msgType)
	}
	ctx.Log.Error("websocket command failed",
		zap.String("conn_id", ctx.Client.ID),
		zap.Uint("user_id", ctx.Client.UserID()),
		zap.String("type", msgType),
		zap.Error(err),
	)
	return SendError(ctx.Client, "processing_failed", "Failed to process message", msgType)
}
