package models

import (
	"sort"
	"time"
)

// Roster is the keyed form of a group's member list. Entries keep their Seq
// so Ordered reproduces the stored order.
type Roster struct {
	byUser  map[uint]*GroupMember
	nextSeq int
}

func NewRoster(members []GroupMember) *Roster {
	r := &Roster{byUser: make(map[uint]*GroupMember, len(members))}
	for i, m := range members {
		m := m
		// rows written before Seq existed fall back to list position
		if m.Seq == 0 {
			m.Seq = i + 1
		}
		if m.Seq >= r.nextSeq {
			r.nextSeq = m.Seq + 1
		}
		r.byUser[m.UserID] = &m
	}
	if r.nextSeq == 0 {
		r.nextSeq = 1
	}
	return r
}

func (r *Roster) Len() int {
	return len(r.byUser)
}

func (r *Roster) Get(userID uint) (*GroupMember, bool) {
	m, ok := r.byUser[userID]
	return m, ok
}

// Add appends userID at the end of the order. It returns false if the user
// is already present.
func (r *Roster) Add(userID uint, role GroupRole, joinedAt time.Time) (*GroupMember, bool) {
	if _, exists := r.byUser[userID]; exists {
		return nil, false
	}
	m := &GroupMember{
		UserID:      userID,
		Role:        role,
		CurrentPage: 0,
		JoinedAt:    joinedAt,
		Seq:         r.nextSeq,
	}
	r.nextSeq++
	r.byUser[userID] = m
	return m, true
}

func (r *Roster) Remove(userID uint) bool {
	if _, ok := r.byUser[userID]; !ok {
		return false
	}
	delete(r.byUser, userID)
	return true
}

func (r *Roster) AdminCount() int {
	n := 0
	for _, m := range r.byUser {
		if m.Role == RoleAdmin {
			n++
		}
	}
	return n
}

// First returns the earliest member (by Seq) matching pred.
func (r *Roster) First(pred func(GroupMember) bool) (*GroupMember, bool) {
	var best *GroupMember
	for _, m := range r.byUser {
		if !pred(*m) {
			continue
		}
		if best == nil || m.Seq < best.Seq {
			best = m
		}
	}
	return best, best != nil
}

func (r *Roster) Ordered() []GroupMember {
	out := make([]GroupMember, 0, len(r.byUser))
	for _, m := range r.byUser {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
