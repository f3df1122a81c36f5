package ws

import "github.com/FranMor97/Book-Server/internal/events"

// MessagePing is a keepalive ping from client
type MessagePing struct {
}

func (msg *MessagePing) GetType() string {
	return events.Ping
}

func (msg *MessagePing) Process(ctx *MessageContext) error {
	return ctx.Client.Send(events.Pong, struct{}{})
}
