package testutil

import "sync"

// Emitted is one event captured by RecordingBroadcaster.
type Emitted struct {
	GroupID uint
	UserID  uint
	Event   string
	Payload interface{}
}

// RecordingBroadcaster captures realtime traffic and room bookkeeping.
type RecordingBroadcaster struct {
	mu       sync.Mutex
	ToGroups []Emitted
	ToUsers  []Emitted
	rooms    map[uint]map[uint]bool
	Err      error
}

func NewRecordingBroadcaster() *RecordingBroadcaster {
	return &RecordingBroadcaster{rooms: make(map[uint]map[uint]bool)}
}

func (b *RecordingBroadcaster) EmitToGroup(groupID uint, event string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ToGroups = append(b.ToGroups, Emitted{GroupID: groupID, Event: event, Payload: payload})
	return b.Err
}

func (b *RecordingBroadcaster) EmitToUser(userID uint, event string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ToUsers = append(b.ToUsers, Emitted{UserID: userID, Event: event, Payload: payload})
	return b.Err
}

func (b *RecordingBroadcaster) JoinUserToGroup(userID, groupID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rooms[groupID] == nil {
		b.rooms[groupID] = make(map[uint]bool)
	}
	b.rooms[groupID][userID] = true
}

func (b *RecordingBroadcaster) RemoveUserFromGroup(userID, groupID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms[groupID], userID)
}

func (b *RecordingBroadcaster) InRoom(userID, groupID uint) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rooms[groupID][userID]
}

// GroupEvents returns the names of events sent to groupID, in order.
func (b *RecordingBroadcaster) GroupEvents(groupID uint) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.ToGroups {
		if e.GroupID == groupID {
			out = append(out, e.Event)
		}
	}
	return out
}
