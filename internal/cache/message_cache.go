package cache

import (
	"fmt"
	"time"

	"github.com/FranMor97/Book-Server/internal/models"
)

const GroupMessagesTTL = 5 * time.Minute

// GroupMessagePage is the cached form of the newest page of a group's log.
type GroupMessagePage struct {
	Messages []models.GroupMessageResponse `msgpack:"messages"`
	Total    int64                         `msgpack:"total"`
}

// MessageCache caches the first page of each group's message log. Older
// pages always go to the database.
//
// Pages are stored under the group's log generation, which every append
// bumps. A reader that loaded the page before an append writes it under
// the old generation, where nobody looks for it again.
type MessageCache struct {
	redis *RedisCache
}

func NewMessageCache(redis *RedisCache) *MessageCache {
	return &MessageCache{redis: redis}
}

func (mc *MessageCache) enabled() bool {
	return mc != nil && mc.redis != nil
}

func groupGenerationKey(groupID uint) string {
	return fmt.Sprintf("group:%d:messages:gen", groupID)
}

func groupFirstPageKey(groupID uint, limit int, gen int64) string {
	return fmt.Sprintf("group:%d:messages:first:%d:%d", groupID, limit, gen)
}

// Generation returns the current log generation of the group. ok is false
// when the cache is unavailable; callers then skip it entirely.
func (mc *MessageCache) Generation(groupID uint) (int64, bool) {
	if !mc.enabled() {
		return 0, false
	}
	gen, err := mc.redis.GetInt(groupGenerationKey(groupID))
	if err != nil {
		return 0, false
	}
	return gen, true
}

func (mc *MessageCache) GetFirstPage(groupID uint, limit int, gen int64) (*GroupMessagePage, bool) {
	if !mc.enabled() {
		return nil, false
	}
	var page GroupMessagePage
	if !mc.redis.GetMsgpack(groupFirstPageKey(groupID, limit, gen), &page) {
		return nil, false
	}
	return &page, true
}

func (mc *MessageCache) SetFirstPage(groupID uint, limit int, gen int64, page *GroupMessagePage) error {
	if !mc.enabled() {
		return nil
	}
	return mc.redis.SetMsgpack(groupFirstPageKey(groupID, limit, gen), page, GroupMessagesTTL)
}

// InvalidateGroup bumps the group's generation, then drops the pages cached
// under older ones.
func (mc *MessageCache) InvalidateGroup(groupID uint) error {
	if !mc.enabled() {
		return nil
	}
	if _, err := mc.redis.Incr(groupGenerationKey(groupID)); err != nil {
		return err
	}
	return mc.redis.DeletePattern(fmt.Sprintf("group:%d:messages:first:*", groupID))
}
