package models

import (
	"time"
)

type GroupRole string

const (
	RoleAdmin  GroupRole = "admin"
	RoleMember GroupRole = "member"
)

type ReadingGoal struct {
	PagesPerDay      *int       `json:"pagesPerDay,omitempty"`
	TargetFinishDate *time.Time `json:"targetFinishDate,omitempty"`
}

func (g ReadingGoal) IsZero() bool {
	return g.PagesPerDay == nil && g.TargetFinishDate == nil
}

type ReadingGroup struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name        string      `gorm:"size:100;not null;index" json:"name"`
	Description string      `gorm:"size:500" json:"description"`
	BookID      uint        `gorm:"not null;index" json:"bookId"`
	CreatorID   uint        `gorm:"not null" json:"creatorId"`
	IsPrivate   bool        `gorm:"default:false" json:"isPrivate"`
	ReadingGoal ReadingGoal `gorm:"embedded;embeddedPrefix:reading_goal_" json:"readingGoal"`

	// Version guards conditional writes; bumped on every persisted mutation.
	Version int `gorm:"not null;default:1" json:"-"`

	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members"`
}

func (ReadingGroup) TableName() string {
	return "reading_groups"
}

type GroupMember struct {
	GroupID     uint      `gorm:"primaryKey" json:"-"`
	UserID      uint      `gorm:"primaryKey;index" json:"userId"`
	Role        GroupRole `gorm:"type:varchar(20);default:'member'" json:"role"`
	CurrentPage int       `gorm:"not null;default:0" json:"currentPage"`
	JoinedAt    time.Time `json:"joinedAt"`
	Seq         int       `gorm:"not null;default:0" json:"-"`
}

func (GroupMember) TableName() string {
	return "reading_group_members"
}

// Roster returns the keyed view of the member list.
func (g *ReadingGroup) Roster() *Roster {
	return NewRoster(g.Members)
}

// ApplyRoster writes the roster back as the ordered member list.
func (g *ReadingGroup) ApplyRoster(r *Roster) {
	members := r.Ordered()
	for i := range members {
		members[i].GroupID = g.ID
	}
	g.Members = members
}

// Member returns a copy of the entry for userID.
func (g *ReadingGroup) Member(userID uint) (GroupMember, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return GroupMember{}, false
}

func (g *ReadingGroup) IsMember(userID uint) bool {
	_, ok := g.Member(userID)
	return ok
}

func (g *ReadingGroup) IsAdmin(userID uint) bool {
	m, ok := g.Member(userID)
	return ok && m.Role == RoleAdmin
}

func (g *ReadingGroup) AdminCount() int {
	n := 0
	for _, m := range g.Members {
		if m.Role == RoleAdmin {
			n++
		}
	}
	return n
}

type MemberView struct {
	GroupMember
	User UserSummary `json:"user"`
}

// ReadingGroupView is a group with its book, creator and members resolved
// to display cards. Book is nil when the catalog has no entry.
type ReadingGroupView struct {
	ReadingGroup
	Book    *BookSummary `json:"book"`
	Creator UserSummary  `json:"creator"`
	Members []MemberView `json:"members"`
}
