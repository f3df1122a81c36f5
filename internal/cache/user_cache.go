package cache

import (
	"fmt"
	"strconv"
	"time"

	"github.com/FranMor97/Book-Server/internal/models"
)

const (
	OnlineUsersTTL = 90 * time.Second // Match pong timeout
	UserCardTTL    = 10 * time.Minute

	onlineUsersKey = "online:users"
)

// UserCache holds presence and the display cards used in notifications.
// A nil receiver or nil Redis turns every call into a no-op miss.
type UserCache struct {
	redis *RedisCache
}

func NewUserCache(redis *RedisCache) *UserCache {
	return &UserCache{redis: redis}
}

func (uc *UserCache) enabled() bool {
	return uc != nil && uc.redis != nil
}

func userCardKey(userID uint) string {
	return fmt.Sprintf("user:card:%d", userID)
}

func (uc *UserCache) GetCard(userID uint) (models.UserSummary, bool) {
	var card models.UserSummary
	if !uc.enabled() {
		return card, false
	}
	ok := uc.redis.GetMsgpack(userCardKey(userID), &card)
	return card, ok
}

func (uc *UserCache) SetCard(card models.UserSummary) error {
	if !uc.enabled() {
		return nil
	}
	return uc.redis.SetMsgpack(userCardKey(card.ID), card, UserCardTTL)
}

func (uc *UserCache) SetUserOnline(userID uint) error {
	if !uc.enabled() {
		return nil
	}
	if err := uc.redis.SetAdd(onlineUsersKey, userID); err != nil {
		return err
	}
	return uc.redis.Set(fmt.Sprintf("online:%d", userID), []byte("1"), OnlineUsersTTL)
}

func (uc *UserCache) SetUserOffline(userID uint) error {
	if !uc.enabled() {
		return nil
	}
	if err := uc.redis.SetRemove(onlineUsersKey, userID); err != nil {
		return err
	}
	return uc.redis.Delete(fmt.Sprintf("online:%d", userID))
}

func (uc *UserCache) GetOnlineUsers() ([]uint, error) {
	if !uc.enabled() {
		return nil, nil
	}
	members, err := uc.redis.SetMembers(onlineUsersKey)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(members))
	for _, member := range members {
		if id, err := strconv.ParseUint(member, 10, 32); err == nil {
			userIDs = append(userIDs, uint(id))
		}
	}
	return userIDs, nil
}
