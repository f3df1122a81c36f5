package service

import "sync"

// groupLocks serializes mutations per group id inside this process. Entries
// are reference counted and dropped when the last holder unlocks.
type groupLocks struct {
	mu      sync.Mutex
	entries map[uint]*groupLock
}

type groupLock struct {
	mu   sync.Mutex
	refs int
}

func newGroupLocks() *groupLocks {
	return &groupLocks{entries: make(map[uint]*groupLock)}
}

func (l *groupLocks) lock(groupID uint) func() {
	l.mu.Lock()
	entry, ok := l.entries[groupID]
	if !ok {
		entry = &groupLock{}
		l.entries[groupID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, groupID)
		}
		l.mu.Unlock()
	}
}

func (l *groupLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
