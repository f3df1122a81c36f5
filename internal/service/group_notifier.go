package service

import (
	"fmt"
	"time"

	"github.com/FranMor97/Book-Server/internal/cache"
	"github.com/FranMor97/Book-Server/internal/events"
	"github.com/FranMor97/Book-Server/internal/models"
	"github.com/FranMor97/Book-Server/internal/repository"
	"go.uber.org/zap"
)

// Broadcaster is the realtime side as seen by business logic. Room
// bookkeeping and reachability live behind it.
type Broadcaster interface {
	EmitToGroup(groupID uint, event string, payload interface{}) error
	EmitToUser(userID uint, event string, payload interface{}) error
	JoinUserToGroup(userID, groupID uint)
	RemoveUserFromGroup(userID, groupID uint)
}

// GroupNotifier composes system/progress log entries and their realtime
// payloads. It is only called after the triggering write has committed.
type GroupNotifier struct {
	messageRepo  repository.GroupMessageRepositoryInterface
	messageCache MessagePageCache
	users        *UserDirectory
	broadcaster  Broadcaster
	log          *zap.Logger
	now          func() time.Time
}

func NewGroupNotifier(
	messageRepo repository.GroupMessageRepositoryInterface,
	messageCache MessagePageCache,
	users *UserDirectory,
	log *zap.Logger,
) *GroupNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	if messageCache == nil {
		messageCache = cache.NewMessageCache(nil)
	}
	return &GroupNotifier{
		messageRepo:  messageRepo,
		messageCache: messageCache,
		users:        users,
		log:          log,
		now:          time.Now,
	}
}

// SetBroadcaster attaches the hub. The hub needs the group service for its
// handshake, so it is created after the notifier.
func (n *GroupNotifier) SetBroadcaster(b Broadcaster) {
	n.broadcaster = b
}

// append writes a log entry and decorates it with the author's card.
func (n *GroupNotifier) append(groupID, userID uint, kind models.MessageType, text string, author models.UserSummary) (*models.GroupMessageResponse, error) {
	msg := &models.GroupMessage{
		GroupID:   groupID,
		UserID:    userID,
		Text:      text,
		Type:      kind,
		CreatedAt: n.now(),
	}
	if err := n.messageRepo.Create(msg); err != nil {
		return nil, fmt.Errorf("append %s message to group %d: %w", kind, groupID, err)
	}
	if err := n.messageCache.InvalidateGroup(groupID); err != nil {
		n.log.Debug("message cache invalidation failed", zap.Uint("group_id", groupID), zap.Error(err))
	}

	resp := msg.ToResponse()
	resp.User = author
	return &resp, nil
}

// system records a system entry and fans it out. Failures are logged only:
// the membership change it describes has already been committed.
func (n *GroupNotifier) system(groupID, actorID uint, text string) {
	author := n.users.Card(actorID)
	resp, err := n.append(groupID, actorID, models.SystemMessage, text, author)
	if err != nil {
		n.log.Error("system message not recorded", zap.Uint("group_id", groupID), zap.Uint("user_id", actorID), zap.Error(err))
		return
	}
	n.emitGroup(groupID, events.GroupMessageNew, resp)
}

func (n *GroupNotifier) emitGroup(groupID uint, event string, payload interface{}) {
	if n.broadcaster == nil {
		return
	}
	if err := n.broadcaster.EmitToGroup(groupID, event, payload); err != nil {
		n.log.Warn("group broadcast failed", zap.Uint("group_id", groupID), zap.String("event", event), zap.Error(err))
	}
}

func (n *GroupNotifier) emitUser(userID uint, event string, payload interface{}) {
	if n.broadcaster == nil {
		return
	}
	if err := n.broadcaster.EmitToUser(userID, event, payload); err != nil {
		n.log.Warn("user notification failed", zap.Uint("user_id", userID), zap.String("event", event), zap.Error(err))
	}
}

func (n *GroupNotifier) GroupCreated(group *models.ReadingGroup) {
	if n.broadcaster != nil {
		n.broadcaster.JoinUserToGroup(group.CreatorID, group.ID)
	}
	n.system(group.ID, group.CreatorID, "Group created")
}

func (n *GroupNotifier) MemberJoined(group *models.ReadingGroup, userID uint) {
	if n.broadcaster != nil {
		n.broadcaster.JoinUserToGroup(userID, group.ID)
	}
	name := n.users.Card(userID).DisplayName()
	n.system(group.ID, userID, fmt.Sprintf("%s joined the group", name))
}

func (n *GroupNotifier) MemberLeft(groupID, userID uint, groupDeleted bool) {
	if n.broadcaster != nil {
		n.broadcaster.RemoveUserFromGroup(userID, groupID)
	}
	if groupDeleted {
		if err := n.messageCache.InvalidateGroup(groupID); err != nil {
			n.log.Debug("message cache invalidation failed", zap.Uint("group_id", groupID), zap.Error(err))
		}
		return
	}
	name := n.users.Card(userID).DisplayName()
	n.system(groupID, userID, fmt.Sprintf("%s left the group", name))
}

func (n *GroupNotifier) CreatorChanged(groupID, previousID, newID uint) {
	name := n.users.Card(newID).DisplayName()
	n.system(groupID, previousID, fmt.Sprintf("%s is now the group owner", name))
}

func (n *GroupNotifier) RoleChanged(group *models.ReadingGroup, adminID, targetID uint, action RoleAction) {
	target := n.users.Card(targetID).DisplayName()

	var text string
	switch action {
	case ActionPromote:
		text = fmt.Sprintf("%s is now an admin", target)
	case ActionDemote:
		text = fmt.Sprintf("%s is no longer an admin", target)
	case ActionKick:
		text = fmt.Sprintf("%s was removed from the group", target)
		if n.broadcaster != nil {
			n.broadcaster.RemoveUserFromGroup(targetID, group.ID)
		}
		n.emitUser(targetID, events.GroupKicked, events.KickedPayload{
			GroupID:   group.ID,
			GroupName: group.Name,
			ByUserID:  adminID,
		})
	}
	n.system(group.ID, adminID, text)
}

func (n *GroupNotifier) SettingsUpdated(group *models.ReadingGroup, adminID uint) {
	n.system(group.ID, adminID, "Group settings updated")
}

// ProgressUpdated records the progress entry and broadcasts it. Unchanged
// pages are still recorded and sent.
func (n *GroupNotifier) ProgressUpdated(groupID, userID uint, previousPage, currentPage int) *events.ProgressUpdatedPayload {
	user := n.users.Card(userID)
	text := fmt.Sprintf("%s advanced from page %d to page %d", user.DisplayName(), previousPage, currentPage)

	resp, err := n.append(groupID, userID, models.ProgressMessage, text, user)
	if err != nil {
		n.log.Error("progress message not recorded", zap.Uint("group_id", groupID), zap.Uint("user_id", userID), zap.Error(err))
	}

	payload := &events.ProgressUpdatedPayload{
		Message:      resp,
		UserID:       userID,
		User:         user,
		PreviousPage: previousPage,
		CurrentPage:  currentPage,
		GroupID:      groupID,
	}
	n.emitGroup(groupID, events.ReadingProgressUpdated, payload)
	return payload
}

// ChatPosted persists a member's text message. Unlike system entries, a
// failed write is the caller's failure.
func (n *GroupNotifier) ChatPosted(groupID, userID uint, text string) (*models.GroupMessageResponse, error) {
	resp, err := n.append(groupID, userID, models.TextMessage, text, n.users.Card(userID))
	if err != nil {
		return nil, err
	}
	n.emitGroup(groupID, events.GroupMessageNew, resp)
	return resp, nil
}
