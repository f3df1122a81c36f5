package cache

import (
	"strings"
	"testing"

	"github.com/FranMor97/Book-Server/internal/models"
)

// Without Redis every cache degrades to a silent miss.
func TestCachesWithoutRedis(t *testing.T) {
	var nilUsers *UserCache
	users := NewUserCache(nil)
	for _, uc := range []*UserCache{nilUsers, users} {
		if err := uc.SetCard(models.UserSummary{ID: 1}); err != nil {
			t.Errorf("SetCard: %v", err)
		}
		if _, ok := uc.GetCard(1); ok {
			t.Errorf("GetCard should miss without redis")
		}
		if err := uc.SetUserOnline(1); err != nil {
			t.Errorf("SetUserOnline: %v", err)
		}
		if online, err := uc.GetOnlineUsers(); err != nil || len(online) != 0 {
			t.Errorf("GetOnlineUsers = %v, %v; want empty", online, err)
		}
		if err := uc.SetUserOffline(1); err != nil {
			t.Errorf("SetUserOffline: %v", err)
		}
	}

	messages := NewMessageCache(nil)
	if _, ok := messages.Generation(1); ok {
		t.Errorf("Generation should be unavailable without redis")
	}
	if err := messages.SetFirstPage(1, 20, 0, &GroupMessagePage{Total: 3}); err != nil {
		t.Errorf("SetFirstPage: %v", err)
	}
	if _, ok := messages.GetFirstPage(1, 20, 0); ok {
		t.Errorf("GetFirstPage should miss without redis")
	}
	if err := messages.InvalidateGroup(1); err != nil {
		t.Errorf("InvalidateGroup: %v", err)
	}
}

func TestGroupFirstPageKey(t *testing.T) {
	if got := groupFirstPageKey(12, 20, 3); got != "group:12:messages:first:20:3" {
		t.Errorf("groupFirstPageKey = %q", got)
	}
	if groupFirstPageKey(12, 20, 3) == groupFirstPageKey(12, 20, 4) {
		t.Error("pages of different generations must not share a key")
	}
	// InvalidateGroup deletes "group:%d:messages:first:*"; the generation must survive it.
	if got := groupGenerationKey(12); strings.HasPrefix(got, "group:12:messages:first:") {
		t.Errorf("generation key %q would be deleted on invalidation", got)
	}
}
