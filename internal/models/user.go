package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is owned by the account service; this backend only reads it.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FirstName string `gorm:"not null" json:"firstName"`
	LastName1 string `gorm:"column:last_name1;not null" json:"lastName1"`
	LastName2 string `gorm:"column:last_name2" json:"lastName2"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Avatar    string `json:"avatar"`
	Role      string `gorm:"not null;default:client" json:"role"`
}

// UserSummary is the denormalized author/actor card embedded in group payloads.
type UserSummary struct {
	ID        uint   `json:"id" msgpack:"id"`
	FirstName string `json:"firstName" msgpack:"first_name"`
	LastName1 string `json:"lastName1" msgpack:"last_name1"`
	Avatar    string `json:"avatar" msgpack:"avatar"`
}

func (u *User) ToSummary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName1: u.LastName1,
		Avatar:    u.Avatar,
	}
}

// DisplayName falls back to a neutral label when the card is empty.
func (s UserSummary) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName1)
	if name == "" {
		return "A reader"
	}
	return name
}
