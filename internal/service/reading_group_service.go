package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FranMor97/Book-Server/internal/cache"
	"github.com/FranMor97/Book-Server/internal/metrics"
	"github.com/FranMor97/Book-Server/internal/models"
	"github.com/FranMor97/Book-Server/internal/repository"
	"github.com/FranMor97/Book-Server/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxWriteAttempts = 3

type RoleAction string

const (
	ActionPromote RoleAction = "promote"
	ActionDemote  RoleAction = "demote"
	ActionKick    RoleAction = "kick"
)

type CreateGroupInput struct {
	Name        string             `json:"name" validate:"required,max=100"`
	Description string             `json:"description" validate:"max=500"`
	BookID      uint               `json:"bookId" validate:"required"`
	IsPrivate   bool               `json:"isPrivate"`
	ReadingGoal models.ReadingGoal `json:"readingGoal"`
}

// SettingsPatch only touches fields that are set.
type SettingsPatch struct {
	Name        *string             `json:"name,omitempty" validate:"omitempty,max=100"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=500"`
	IsPrivate   *bool               `json:"isPrivate,omitempty"`
	ReadingGoal *models.ReadingGoal `json:"readingGoal,omitempty"`
}

type ProgressUpdate struct {
	GroupID      uint                         `json:"groupId"`
	UserID       uint                         `json:"userId"`
	PreviousPage int                          `json:"previousPage"`
	CurrentPage  int                          `json:"currentPage"`
	Message      *models.GroupMessageResponse `json:"message"`
	Group        *models.ReadingGroupView     `json:"group"`
}

type LeaveResult struct {
	GroupDeleted bool  `json:"groupDeleted"`
	NewCreatorID *uint `json:"newCreatorId,omitempty"`
}

type GroupSearchResult struct {
	Groups []models.ReadingGroupView `json:"data"`
	Total  int64                     `json:"total"`
	Page   int                       `json:"page"`
	Limit  int                       `json:"limit"`
	Pages  int                       `json:"pages"`
}

type MessagePage struct {
	Messages []models.GroupMessageResponse `json:"data"`
	Total    int64                         `json:"total"`
	Page     int                           `json:"page"`
	Limit    int                           `json:"limit"`
	Pages    int                           `json:"pages"`
}

// MessagePageCache holds the first page of each group's message log, keyed
// by a generation that InvalidateGroup advances.
type MessagePageCache interface {
	Generation(groupID uint) (int64, bool)
	GetFirstPage(groupID uint, limit int, gen int64) (*cache.GroupMessagePage, bool)
	SetFirstPage(groupID uint, limit int, gen int64, page *cache.GroupMessagePage) error
	InvalidateGroup(groupID uint) error
}

// ReadingGroupService is the membership engine. Every mutation of a group
// runs under that group's lock and is written with a version check, and
// notifications go out only after the write commits.
type ReadingGroupService struct {
	groupRepo        repository.ReadingGroupRepositoryInterface
	messageRepo      repository.GroupMessageRepositoryInterface
	bookRepo         repository.BookRepositoryInterface
	notifier         *GroupNotifier
	users            *UserDirectory
	messageCache     MessagePageCache
	locks            *groupLocks
	log              *zap.Logger
	maxMessageLength int
	now              func() time.Time
}

func NewReadingGroupService(
	groupRepo repository.ReadingGroupRepositoryInterface,
	messageRepo repository.GroupMessageRepositoryInterface,
	bookRepo repository.BookRepositoryInterface,
	notifier *GroupNotifier,
	messageCache MessagePageCache,
	log *zap.Logger,
	maxMessageLength int,
) *ReadingGroupService {
	if log == nil {
		log = zap.NewNop()
	}
	if messageCache == nil {
		messageCache = cache.NewMessageCache(nil)
	}
	if maxMessageLength <= 0 {
		maxMessageLength = validation.DefaultMaxMessageLength
	}
	return &ReadingGroupService{
		groupRepo:        groupRepo,
		messageRepo:      messageRepo,
		bookRepo:         bookRepo,
		notifier:         notifier,
		users:            notifier.users,
		messageCache:     messageCache,
		locks:            newGroupLocks(),
		log:              log,
		maxMessageLength: maxMessageLength,
		now:              time.Now,
	}
}

func (s *ReadingGroupService) loadGroup(groupID uint) (*models.ReadingGroup, error) {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("reading group not found")
		}
		return nil, fmt.Errorf("load reading group %d: %w", groupID, err)
	}
	return group, nil
}

// apply re-reads the group, runs fn and writes the result conditionally,
// retrying when another writer got there first. fn returns true to delete
// the group instead of saving it. Callers hold the group lock.
func (s *ReadingGroupService) apply(groupID uint, fn func(group *models.ReadingGroup) (bool, error)) (*models.ReadingGroup, bool, error) {
	for attempt := 1; ; attempt++ {
		group, err := s.loadGroup(groupID)
		if err != nil {
			return nil, false, err
		}

		deleteGroup, err := fn(group)
		if err != nil {
			return nil, false, err
		}

		if deleteGroup {
			err = s.groupRepo.DeleteWithMessages(group)
		} else {
			err = s.groupRepo.Save(group)
		}
		if err == nil {
			return group, deleteGroup, nil
		}
		if !errors.Is(err, repository.ErrStaleGroup) {
			return nil, false, err
		}
		if attempt >= maxWriteAttempts {
			return nil, false, conflict("reading group was modified concurrently, please retry")
		}
		metrics.StaleWriteRetries.Inc()
		s.log.Debug("stale group write, retrying", zap.Uint("group_id", groupID), zap.Int("attempt", attempt))
	}
}

func record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.MembershipOps.WithLabelValues(op, outcome).Inc()
}

func (s *ReadingGroupService) CreateGroup(creatorID uint, input CreateGroupInput) (group *models.ReadingGroup, err error) {
	defer func() { record("create", err) }()

	input.Name = strings.TrimSpace(input.Name)
	if !validation.ValidGroupName(input.Name) {
		return nil, invalidArgument("group name is required and must be at most %d characters", validation.MaxGroupNameLength)
	}

	exists, err := s.bookRepo.Exists(input.BookID)
	if err != nil {
		return nil, fmt.Errorf("check book %d: %w", input.BookID, err)
	}
	if !exists {
		return nil, notFound("book not found")
	}

	group = &models.ReadingGroup{
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		BookID:      input.BookID,
		CreatorID:   creatorID,
		IsPrivate:   input.IsPrivate,
		ReadingGoal: input.ReadingGoal,
		Version:     1,
	}
	roster := models.NewRoster(nil)
	roster.Add(creatorID, models.RoleAdmin, s.now())
	group.ApplyRoster(roster)

	if err := s.groupRepo.Create(group); err != nil {
		return nil, fmt.Errorf("create reading group: %w", err)
	}

	s.log.Info("reading group created", zap.Uint("group_id", group.ID), zap.Uint("user_id", creatorID))
	s.notifier.GroupCreated(group)
	return group, nil
}

func (s *ReadingGroupService) visibleGroup(groupID, viewerID uint) (*models.ReadingGroup, error) {
	group, err := s.loadGroup(groupID)
	if err != nil {
		return nil, err
	}
	if group.IsPrivate && !group.IsMember(viewerID) {
		return nil, forbidden("you do not have access to this group")
	}
	return group, nil
}

// CanView reports whether viewerID may see the group: members always,
// anyone else only when it is public.
func (s *ReadingGroupService) CanView(groupID, viewerID uint) error {
	_, err := s.visibleGroup(groupID, viewerID)
	return err
}

// GetGroup hides private groups from non-members.
func (s *ReadingGroupService) GetGroup(groupID, viewerID uint) (*models.ReadingGroupView, error) {
	group, err := s.visibleGroup(groupID, viewerID)
	if err != nil {
		return nil, err
	}
	return s.View(group), nil
}

// View resolves the group's book, creator and member cards. Lookups are
// best effort like every other display card.
func (s *ReadingGroupService) View(group *models.ReadingGroup) *models.ReadingGroupView {
	return &s.views([]models.ReadingGroup{*group})[0]
}

func (s *ReadingGroupService) views(groups []models.ReadingGroup) []models.ReadingGroupView {
	books := make(map[uint]*models.BookSummary)
	cards := make(map[uint]models.UserSummary)
	card := func(userID uint) models.UserSummary {
		c, ok := cards[userID]
		if !ok {
			c = s.users.Card(userID)
			cards[userID] = c
		}
		return c
	}

	out := make([]models.ReadingGroupView, len(groups))
	for i := range groups {
		g := groups[i]
		book, ok := books[g.BookID]
		if !ok {
			if b, err := s.bookRepo.FindByID(g.BookID); err == nil && b != nil {
				summary := b.ToSummary()
				book = &summary
			} else {
				s.log.Warn("book lookup failed", zap.Uint("group_id", g.ID), zap.Uint("book_id", g.BookID), zap.Error(err))
			}
			books[g.BookID] = book
		}

		members := make([]models.MemberView, len(g.Members))
		for j, m := range g.Members {
			members[j] = models.MemberView{GroupMember: m, User: card(m.UserID)}
		}
		out[i] = models.ReadingGroupView{
			ReadingGroup: g,
			Book:         book,
			Creator:      card(g.CreatorID),
			Members:      members,
		}
	}
	return out
}

func (s *ReadingGroupService) ListGroupsForUser(userID uint) ([]models.ReadingGroupView, error) {
	groups, err := s.groupRepo.FindByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list groups for user %d: %w", userID, err)
	}
	return s.views(groups), nil
}

func (s *ReadingGroupService) ListGroupIDsForUser(userID uint) ([]uint, error) {
	return s.groupRepo.FindIDsByUser(userID)
}

func normalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func pageCount(total int64, limit int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func (s *ReadingGroupService) SearchPublicGroups(query string, page, limit int) (*GroupSearchResult, error) {
	page, limit = normalizePage(page, limit, 20, 50)
	groups, total, err := s.groupRepo.SearchPublic(strings.TrimSpace(query), (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("search public groups: %w", err)
	}
	return &GroupSearchResult{
		Groups: s.views(groups),
		Total:  total,
		Page:   page,
		Limit:  limit,
		Pages:  pageCount(total, limit),
	}, nil
}

func (s *ReadingGroupService) JoinGroup(groupID, userID uint) (group *models.ReadingGroup, err error) {
	defer func() { record("join", err) }()

	unlock := s.locks.lock(groupID)
	defer unlock()

	group, _, err = s.apply(groupID, func(g *models.ReadingGroup) (bool, error) {
		roster := g.Roster()
		if _, added := roster.Add(userID, models.RoleMember, s.now()); !added {
			return false, conflict("you are already a member of this group")
		}
		g.ApplyRoster(roster)
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.MemberJoined(group, userID)
	return group, nil
}

func (s *ReadingGroupService) UpdateProgress(groupID, userID uint, currentPage int) (update *ProgressUpdate, err error) {
	defer func() { record("progress", err) }()

	if currentPage < 0 {
		return nil, invalidArgument("current page must be zero or greater")
	}

	unlock := s.locks.lock(groupID)
	defer unlock()

	var previousPage int
	group, _, err := s.apply(groupID, func(g *models.ReadingGroup) (bool, error) {
		roster := g.Roster()
		member, ok := roster.Get(userID)
		if !ok {
			return false, forbidden("you are not a member of this group")
		}
		previousPage = member.CurrentPage
		member.CurrentPage = currentPage
		g.ApplyRoster(roster)
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	payload := s.notifier.ProgressUpdated(groupID, userID, previousPage, currentPage)
	return &ProgressUpdate{
		GroupID:      groupID,
		UserID:       userID,
		PreviousPage: previousPage,
		CurrentPage:  currentPage,
		Message:      payload.Message,
		Group:        s.View(group),
	}, nil
}

func (s *ReadingGroupService) SetMemberRole(groupID, adminID, targetID uint, action RoleAction) (group *models.ReadingGroup, err error) {
	defer func() { record(string("role_"+action), err) }()

	switch action {
	case ActionPromote, ActionDemote, ActionKick:
	default:
		return nil, invalidArgument("unknown action %q", action)
	}

	unlock := s.locks.lock(groupID)
	defer unlock()

	group, _, err = s.apply(groupID, func(g *models.ReadingGroup) (bool, error) {
		roster := g.Roster()
		actor, ok := roster.Get(adminID)
		if !ok || actor.Role != models.RoleAdmin {
			return false, forbidden("only group admins can manage members")
		}
		if adminID == targetID {
			return false, invalidState("you cannot %s yourself", action)
		}
		target, ok := roster.Get(targetID)
		if !ok {
			return false, notFound("user is not a member of this group")
		}

		switch action {
		case ActionPromote:
			if target.Role == models.RoleAdmin {
				return false, invalidState("user is already an admin")
			}
			target.Role = models.RoleAdmin
		case ActionDemote:
			if target.Role != models.RoleAdmin {
				return false, invalidState("user is not an admin")
			}
			if roster.AdminCount() <= 1 {
				return false, invalidState("a group must keep at least one admin")
			}
			target.Role = models.RoleMember
		case ActionKick:
			roster.Remove(targetID)
			// the creator must stay a member
			if g.CreatorID == targetID {
				g.CreatorID = adminID
			}
		}

		g.ApplyRoster(roster)
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member role changed",
		zap.Uint("group_id", groupID),
		zap.Uint("user_id", adminID),
		zap.Uint("target_id", targetID),
		zap.String("action", string(action)),
	)
	s.notifier.RoleChanged(group, adminID, targetID, action)
	return group, nil
}

func (s *ReadingGroupService) UpdateSettings(groupID, adminID uint, patch SettingsPatch) (group *models.ReadingGroup, err error) {
	defer func() { record("settings", err) }()

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if !validation.ValidGroupName(name) {
			return nil, invalidArgument("group name is required and must be at most %d characters", validation.MaxGroupNameLength)
		}
		patch.Name = &name
	}

	unlock := s.locks.lock(groupID)
	defer unlock()

	group, _, err = s.apply(groupID, func(g *models.ReadingGroup) (bool, error) {
		if !g.IsAdmin(adminID) {
			return false, forbidden("only group admins can change settings")
		}
		if patch.Name != nil {
			g.Name = *patch.Name
		}
		if patch.Description != nil {
			g.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.IsPrivate != nil {
			g.IsPrivate = *patch.IsPrivate
		}
		if patch.ReadingGoal != nil {
			g.ReadingGoal = *patch.ReadingGoal
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SettingsUpdated(group, adminID)
	return group, nil
}

// LeaveGroup removes userID. A sole admin must hand over first; a leaving
// creator passes ownership to the first other admin, else the first other
// member (who is promoted); the last member leaving deletes the group and
// its message log.
func (s *ReadingGroupService) LeaveGroup(groupID, userID uint) (result *LeaveResult, err error) {
	defer func() { record("leave", err) }()

	unlock := s.locks.lock(groupID)
	defer unlock()

	var newCreator *uint
	_, deleted, err := s.apply(groupID, func(g *models.ReadingGroup) (bool, error) {
		newCreator = nil
		roster := g.Roster()
		member, ok := roster.Get(userID)
		if !ok {
			return false, invalidState("you are not a member of this group")
		}

		if member.Role == models.RoleAdmin && roster.AdminCount() == 1 && roster.Len() > 1 {
			return false, invalidState("you are the only admin; appoint another admin before leaving")
		}

		if roster.Len() == 1 {
			return true, nil
		}

		if g.CreatorID == userID {
			next, ok := roster.First(func(m models.GroupMember) bool {
				return m.UserID != userID && m.Role == models.RoleAdmin
			})
			if !ok {
				next, _ = roster.First(func(m models.GroupMember) bool { return m.UserID != userID })
			}
			next.Role = models.RoleAdmin
			g.CreatorID = next.UserID
			id := next.UserID
			newCreator = &id
		}

		roster.Remove(userID)
		g.ApplyRoster(roster)
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	if deleted {
		s.log.Info("reading group deleted after last member left", zap.Uint("group_id", groupID), zap.Uint("user_id", userID))
	}
	s.notifier.MemberLeft(groupID, userID, deleted)
	if newCreator != nil {
		s.notifier.CreatorChanged(groupID, userID, *newCreator)
	}
	return &LeaveResult{GroupDeleted: deleted, NewCreatorID: newCreator}, nil
}

func (s *ReadingGroupService) PostMessage(groupID, userID uint, text string) (msg *models.GroupMessageResponse, err error) {
	defer func() { record("post_message", err) }()

	text = validation.TrimAndLimit(text, s.maxMessageLength)
	if text == "" {
		return nil, invalidArgument("message cannot be empty")
	}

	group, err := s.loadGroup(groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, forbidden("you are not a member of this group")
	}

	return s.notifier.ChatPosted(groupID, userID, text)
}

func (s *ReadingGroupService) ListMessages(groupID, userID uint, page, limit int) (*MessagePage, error) {
	page, limit = normalizePage(page, limit, 20, 100)

	group, err := s.loadGroup(groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, forbidden("you are not a member of this group")
	}

	// The generation is read before the query so a page loaded ahead of a
	// concurrent append is stored where it will not be served.
	var gen int64
	cacheable := false
	if page == 1 {
		if gen, cacheable = s.messageCache.Generation(groupID); cacheable {
			if cached, ok := s.messageCache.GetFirstPage(groupID, limit, gen); ok {
				return &MessagePage{
					Messages: cached.Messages,
					Total:    cached.Total,
					Page:     page,
					Limit:    limit,
					Pages:    pageCount(cached.Total, limit),
				}, nil
			}
		}
	}

	messages, err := s.messageRepo.FindByGroup(groupID, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages of group %d: %w", groupID, err)
	}
	total, err := s.messageRepo.CountByGroup(groupID)
	if err != nil {
		return nil, fmt.Errorf("count messages of group %d: %w", groupID, err)
	}

	responses := make([]models.GroupMessageResponse, len(messages))
	for i := range messages {
		responses[i] = messages[i].ToResponse()
	}

	if cacheable {
		if err := s.messageCache.SetFirstPage(groupID, limit, gen, &cache.GroupMessagePage{Messages: responses, Total: total}); err != nil {
			s.log.Debug("message cache write failed", zap.Uint("group_id", groupID), zap.Error(err))
		}
	}

	return &MessagePage{
		Messages: responses,
		Total:    total,
		Page:     page,
		Limit:    limit,
		Pages:    pageCount(total, limit),
	}, nil
}
