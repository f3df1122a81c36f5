package ws

import (
	"github.com/FranMor97/Book-Server/internal/events"
)

// MessageJoinGroup subscribes the socket to a group room. Members may join
// any of their groups; anyone may preview a public group.
type MessageJoinGroup struct {
	GroupID uint `json:"groupId"`
}

func (msg *MessageJoinGroup) GetType() string {
	return events.JoinGroup
}

func (msg *MessageJoinGroup) Process(ctx *MessageContext) error {
	if msg.GroupID == 0 {
		return SendError(ctx.Client, "invalid_argument", "groupId is required", msg.GetType())
	}
	if err := ctx.Groups.CanView(msg.GroupID, ctx.Client.UserID()); err != nil {
		return err
	}
	ctx.Hub.Join(ctx.Client, events.GroupRoom(msg.GroupID))
	return ctx.Client.Send(events.JoinedGroup, events.GroupRef{GroupID: msg.GroupID})
}

// MessageLeaveGroup only unsubscribes the socket; membership is unchanged.
type MessageLeaveGroup struct {
	GroupID uint `json:"groupId"`
}

func (msg *MessageLeaveGroup) GetType() string {
	return events.LeaveGroup
}

func (msg *MessageLeaveGroup) Process(ctx *MessageContext) error {
	ctx.Hub.Leave(ctx.Client, events.GroupRoom(msg.GroupID))
	return ctx.Client.Send(events.LeftGroup, events.GroupRef{GroupID: msg.GroupID})
}

type MessageUpdateProgress struct {
	GroupID     uint `json:"groupId"`
	CurrentPage *int `json:"currentPage"`
}

func (msg *MessageUpdateProgress) GetType() string {
	return events.UpdateReadingProgress
}

// Process delegates to the membership engine, which broadcasts the update
// to the group room, this socket included.
func (msg *MessageUpdateProgress) Process(ctx *MessageContext) error {
	if msg.GroupID == 0 || msg.CurrentPage == nil {
		return SendError(ctx.Client, "invalid_argument", "groupId and currentPage are required", msg.GetType())
	}
	_, err := ctx.Groups.UpdateProgress(msg.GroupID, ctx.Client.UserID(), *msg.CurrentPage)
	return err
}

type MessageSubscribeBookComments struct {
	BookID uint `json:"bookId"`
}

func (msg *MessageSubscribeBookComments) GetType() string {
	return events.SubscribeBookComments
}

func (msg *MessageSubscribeBookComments) Process(ctx *MessageContext) error {
	if msg.BookID == 0 {
		return SendError(ctx.Client, "invalid_argument", "bookId is required", msg.GetType())
	}
	ctx.Hub.Join(ctx.Client, events.BookRoom(msg.BookID))
	return ctx.Client.Send(events.SubscribedBookComments, events.BookRef{BookID: msg.BookID})
}
