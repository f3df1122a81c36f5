package testutil

import (
	"fmt"
	"sync"

	"github.com/FranMor97/Book-Server/internal/cache"
)

// MemoryMessageCache keeps first pages per generation like cache.MessageCache
// does in Redis.
type MemoryMessageCache struct {
	mu    sync.Mutex
	gens  map[uint]int64
	pages map[string]cache.GroupMessagePage

	// BeforeSet runs at the start of SetFirstPage, between a reader's query
	// and its cache write.
	BeforeSet func(groupID uint)
	Hits      int
}

func NewMemoryMessageCache() *MemoryMessageCache {
	return &MemoryMessageCache{
		gens:  make(map[uint]int64),
		pages: make(map[string]cache.GroupMessagePage),
	}
}

func pageKey(groupID uint, limit int, gen int64) string {
	return fmt.Sprintf("%d:%d:%d", groupID, limit, gen)
}

func (c *MemoryMessageCache) Generation(groupID uint) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[groupID], true
}

func (c *MemoryMessageCache) GetFirstPage(groupID uint, limit int, gen int64) (*cache.GroupMessagePage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page, ok := c.pages[pageKey(groupID, limit, gen)]
	if !ok {
		return nil, false
	}
	c.Hits++
	return &page, true
}

func (c *MemoryMessageCache) SetFirstPage(groupID uint, limit int, gen int64, page *cache.GroupMessagePage) error {
	if hook := c.BeforeSet; hook != nil {
		c.BeforeSet = nil
		hook(groupID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[pageKey(groupID, limit, gen)] = *page
	return nil
}

func (c *MemoryMessageCache) InvalidateGroup(groupID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[groupID]++
	for key := range c.pages {
		var gid uint
		if _, err := fmt.Sscanf(key, "%d:", &gid); err == nil && gid == groupID {
			delete(c.pages, key)
		}
	}
	return nil
}
