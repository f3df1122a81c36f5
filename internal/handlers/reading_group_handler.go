package handlers

import (
	"github.com/FranMor97/Book-Server/internal/httpx"
	"github.com/FranMor97/Book-Server/internal/models"
	"github.com/FranMor97/Book-Server/internal/service"
	"github.com/FranMor97/Book-Server/internal/validation"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReadingGroupHandler struct {
	groupService *service.ReadingGroupService
	log          *zap.Logger
}

func NewReadingGroupHandler(groupService *service.ReadingGroupService, log *zap.Logger) *ReadingGroupHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReadingGroupHandler{groupService: groupService, log: log}
}

// Register mounts the group routes on an authenticated router.
func (h *ReadingGroupHandler) Register(r fiber.Router) {
	r.Post("/groups", h.CreateGroup)
	r.Get("/groups", h.ListMyGroups)
	r.Get("/groups/search", h.SearchGroups)
	r.Get("/groups/:id", h.GetGroup)
	r.Patch("/groups/:id", h.UpdateSettings)
	r.Post("/groups/:id/join", h.JoinGroup)
	r.Patch("/groups/:id/progress", h.UpdateProgress)
	r.Post("/groups/:id/members/:userId/role", h.SetMemberRole)
	r.Delete("/groups/:id/leave", h.LeaveGroup)
	r.Get("/groups/:id/messages", h.ListMessages)
	r.Post("/groups/:id/messages", h.PostMessage)
}

type CreateGroupRequest struct {
	Name        string             `json:"name" validate:"required,max=100"`
	Description string             `json:"description" validate:"max=500"`
	BookID      uint               `json:"bookId" validate:"required"`
	IsPrivate   bool               `json:"isPrivate"`
	ReadingGoal models.ReadingGoal `json:"readingGoal"`
}

type UpdateProgressRequest struct {
	CurrentPage *int `json:"currentPage" validate:"required,gte=0"`
}

type SetRoleRequest struct {
	Action string `json:"action" validate:"required,oneof=promote demote kick"`
}

type PostMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// actor returns the authenticated user and the :id group. When ok is false
// the error response has already been written.
func actor(c *fiber.Ctx) (userID, groupID uint, ok bool) {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		httpx.Unauthorized(c, "unauthorized", "Unauthorized")
		return 0, 0, false
	}
	groupID, err = httpx.ParamUint(c, "id")
	if err != nil {
		httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
		return 0, 0, false
	}
	return userID, groupID, true
}

// parseBody decodes and validates the JSON body, writing a 400 on failure.
func parseBody(c *fiber.Ctx, out interface{}) bool {
	if err := c.BodyParser(out); err != nil {
		httpx.BadRequest(c, "invalid_body", "Invalid request body")
		return false
	}
	if err := validation.Struct(out); err != nil {
		httpx.BadRequest(c, "validation_failed", err.Error())
		return false
	}
	return true
}

func (h *ReadingGroupHandler) CreateGroup(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req CreateGroupRequest
	if !parseBody(c, &req) {
		return nil
	}

	group, err := h.groupService.CreateGroup(userID, service.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		BookID:      req.BookID,
		IsPrivate:   req.IsPrivate,
		ReadingGoal: req.ReadingGoal,
	})
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.groupService.View(group))
}

func (h *ReadingGroupHandler) ListMyGroups(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	groups, err := h.groupService.ListGroupsForUser(userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(groups)
}

func (h *ReadingGroupHandler) SearchGroups(c *fiber.Ctx) error {
	result, err := h.groupService.SearchPublicGroups(c.Query("q"), c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *ReadingGroupHandler) GetGroup(c *fiber.Ctx) error {
	userID, groupID, ok := actor(c)
	if !ok {
		return nil
	}

	group, err := h.groupService.GetGroup(groupID, userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(group)
}

func (h *ReadingGroupHandler) UpdateSettings(c *fiber.Ctx) error {
	userID, groupID, ok := actor(c)
	if !ok {
		return nil
	}

	var patch service.SettingsPatch
	if !parseBody(c, &patch) {
		return nil
	}

	group, err := h.groupService.UpdateSettings(groupID, userID, patch)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(h.groupService.View(group))
}

func (h *ReadingGroupHandler) JoinGroup(c *fiber.Ctx) error {
	userID, groupID, ok := actor(c)
	if !ok {
		return nil
	}

	group, err := h.groupService.JoinGroup(groupID, userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(h.groupService.View(group))
}

func (h *ReadingGroupHandler) UpdateProgress(c *fiber.Ctx) error {
	userID, groupID, ok := actor(c)
	if !ok {
		return nil
	}

	var req UpdateProgressRequest
	if !parseBody(c, &req) {
		return nil
	}

	update, err := h.groupService.UpdateProgress(groupID, userID, *req.CurrentPage)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(update)
}

func (h *ReadingGroupHandler) SetMemberRole(c *fiber.Ctx) error {
	userID, groupID, ok := actor(c)
	if !ok {
		return nil
	}
	targetID, err := httpx.ParamUint(c, "userId")
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	var req SetRoleRequest
	if !parseBody(c, &req) {
		return nil
	}

	group, err := h.groupService.SetMemberRole(groupID, userID, targetID, service.RoleAction(req.Action))
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(h.groupService.View(group))
}

func (h *ReadingGroupHandler) LeaveGroup(c *fiber.Ctx) error {
	userID, groupID, ok := actor(c)
	if !ok {
		return nil
	}

	result, err := h.groupService.LeaveGroup(groupID, userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *ReadingGroupHandler) ListMessages(c *fiber.Ctx) error {
	userID, groupID, ok := actor(c)
	if !ok {
		return nil
	}

	page, err := h.groupService.ListMessages(groupID, userID, c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(page)
}

func (h *ReadingGroupHandler) PostMessage(c *fiber.Ctx) error {
	userID, groupID, ok := actor(c)
	if !ok {
		return nil
	}

	var req PostMessageRequest
	if !parseBody(c, &req) {
		return nil
	}

	msg, err := h.groupService.PostMessage(groupID, userID, req.Text)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
