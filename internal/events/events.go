// Package events holds the wire-level names and payloads of the realtime
// channel. Clients match on these strings, so they must not change.
package events

import (
	"fmt"

	"github.com/FranMor97/Book-Server/internal/models"
)

// Inbound
const (
	Authenticate          = "authenticate"
	JoinGroup             = "join:group"
	LeaveGroup            = "leave:group"
	UpdateReadingProgress = "update:reading-progress"
	SubscribeBookComments = "subscribe:book-comments"
	Ping                  = "ping"
)

// Outbound
const (
	Connected              = "connected"
	JoinedGroup            = "joined:group"
	LeftGroup              = "left:group"
	SubscribedBookComments = "subscribed:book-comments"
	Error                  = "error"
	AuthError              = "auth-error"
	ReadingProgressUpdated = "reading-progress:updated"
	GroupMessageNew        = "group-message:new"
	GroupKicked            = "group:kicked"
	Pong                   = "pong"
)

func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func GroupRoom(groupID uint) string {
	return fmt.Sprintf("group:%d", groupID)
}

func BookRoom(bookID uint) string {
	return fmt.Sprintf("book:%d", bookID)
}

type ConnectedPayload struct {
	Status string `json:"status"`
	UserID uint   `json:"userId"`
	Groups []uint `json:"groups"`
}

type ProgressUpdatedPayload struct {
	Message      *models.GroupMessageResponse `json:"message"`
	UserID       uint                         `json:"userId"`
	User         models.UserSummary           `json:"user"`
	PreviousPage int                          `json:"previousPage"`
	CurrentPage  int                          `json:"currentPage"`
	GroupID      uint                         `json:"groupId"`
}

type KickedPayload struct {
	GroupID   uint   `json:"groupId"`
	GroupName string `json:"groupName"`
	ByUserID  uint   `json:"byUserId"`
}

type GroupRef struct {
	GroupID uint `json:"groupId"`
}

type BookRef struct {
	BookID uint `json:"bookId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
