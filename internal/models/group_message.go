package models

import "time"

type MessageType string

const (
	TextMessage     MessageType = "text"
	SystemMessage   MessageType = "system"
	ProgressMessage MessageType = "progress"
)

// GroupMessage is append-only; rows are only removed together with their group.
type GroupMessage struct {
	ID        uint        `gorm:"primarykey" json:"id" msgpack:"id"`
	GroupID   uint        `gorm:"not null;index:idx_group_messages_group_created,priority:1" json:"groupId" msgpack:"group_id"`
	UserID    uint        `gorm:"not null" json:"userId" msgpack:"user_id"`
	Text      string      `gorm:"type:text;not null" json:"text" msgpack:"text"`
	Type      MessageType `gorm:"type:varchar(20);default:'text'" json:"type" msgpack:"type"`
	CreatedAt time.Time   `gorm:"index:idx_group_messages_group_created,priority:2,sort:desc" json:"createdAt" msgpack:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-" msgpack:"-"`
}

func (GroupMessage) TableName() string {
	return "group_messages"
}

type GroupMessageResponse struct {
	ID        uint        `json:"id" msgpack:"id"`
	GroupID   uint        `json:"groupId" msgpack:"group_id"`
	UserID    uint        `json:"userId" msgpack:"user_id"`
	User      UserSummary `json:"user" msgpack:"user"`
	Text      string      `json:"text" msgpack:"text"`
	Type      MessageType `json:"type" msgpack:"type"`
	CreatedAt time.Time   `json:"createdAt" msgpack:"created_at"`
}

func (m *GroupMessage) ToResponse() GroupMessageResponse {
	user := m.User.ToSummary()
	if user.ID == 0 {
		user.ID = m.UserID
	}
	return GroupMessageResponse{
		ID:        m.ID,
		GroupID:   m.GroupID,
		UserID:    m.UserID,
		User:      user,
		Text:      m.Text,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
	}
}
