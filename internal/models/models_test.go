package models

import (
	"testing"
	"time"
)

func TestRosterPreservesOrder(t *testing.T) {
	now := time.Now()
	r := NewRoster(nil)
	for _, id := range []uint{7, 3, 9} {
		if _, ok := r.Add(id, RoleMember, now); !ok {
			t.Fatalf("Add(%d) reported duplicate", id)
		}
	}

	if _, ok := r.Add(3, RoleAdmin, now); ok {
		t.Errorf("Add of existing user should report false")
	}

	r.Remove(3)
	r.Add(3, RoleMember, now)

	got := r.Ordered()
	want := []uint{7, 9, 3}
	if len(got) != len(want) {
		t.Fatalf("Ordered len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].UserID != id {
			t.Errorf("Ordered[%d] = %d, want %d", i, got[i].UserID, id)
		}
	}
}

func TestRosterFromStoredMembers(t *testing.T) {
	members := []GroupMember{
		{UserID: 1, Role: RoleAdmin, Seq: 4},
		{UserID: 2, Role: RoleMember, Seq: 2},
		{UserID: 3, Role: RoleAdmin, Seq: 9},
	}
	r := NewRoster(members)

	if r.AdminCount() != 2 {
		t.Errorf("AdminCount = %d, want 2", r.AdminCount())
	}

	first, ok := r.First(func(m GroupMember) bool { return m.Role == RoleAdmin })
	if !ok || first.UserID != 1 {
		t.Errorf("First admin = %+v, want user 1", first)
	}

	added, _ := r.Add(10, RoleMember, time.Now())
	if added.Seq != 10 {
		t.Errorf("new Seq = %d, want 10", added.Seq)
	}
}

func TestApplyRosterSetsGroupID(t *testing.T) {
	g := &ReadingGroup{ID: 5, Members: []GroupMember{{UserID: 1, Role: RoleAdmin, Seq: 1}}}
	r := g.Roster()
	r.Add(2, RoleMember, time.Now())
	m, _ := r.Get(1)
	m.CurrentPage = 42
	g.ApplyRoster(r)

	if len(g.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(g.Members))
	}
	for _, m := range g.Members {
		if m.GroupID != 5 {
			t.Errorf("member %d GroupID = %d, want 5", m.UserID, m.GroupID)
		}
	}
	if g.Members[0].CurrentPage != 42 {
		t.Errorf("CurrentPage = %d, want 42", g.Members[0].CurrentPage)
	}
	if !g.IsAdmin(1) || g.IsAdmin(2) {
		t.Errorf("unexpected admin flags")
	}
}

func TestGroupMessageToResponse(t *testing.T) {
	createdAt := time.Now()
	msg := &GroupMessage{
		ID:        3,
		GroupID:   1,
		UserID:    8,
		Text:      "hello",
		Type:      TextMessage,
		CreatedAt: createdAt,
	}

	resp := msg.ToResponse()
	if resp.User.ID != 8 {
		t.Errorf("User.ID = %d, want 8 when author not preloaded", resp.User.ID)
	}
	if resp.Text != "hello" || resp.Type != TextMessage || !resp.CreatedAt.Equal(createdAt) {
		t.Errorf("unexpected response %+v", resp)
	}

	msg.User = User{ID: 8, FirstName: "Ana", LastName1: "Ruiz", Avatar: "a.png"}
	resp = msg.ToResponse()
	if resp.User.DisplayName() != "Ana Ruiz" || resp.User.Avatar != "a.png" {
		t.Errorf("unexpected user card %+v", resp.User)
	}
}

func TestDisplayNameFallback(t *testing.T) {
	if got := (UserSummary{}).DisplayName(); got != "A reader" {
		t.Errorf("DisplayName = %q, want placeholder", got)
	}
}
