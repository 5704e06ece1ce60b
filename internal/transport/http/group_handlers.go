package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/proto"
	"github.com/pulsechat/pulsechat-server/internal/store"
)

// GroupHandlers provides HTTP handlers for group management endpoints.
type GroupHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewGroupHandlers creates a new group handlers instance.
func NewGroupHandlers(st store.Store, logger *zerolog.Logger) *GroupHandlers {
	return &GroupHandlers{
		store: st,
		log:   logger,
	}
}

// CreateGroupRequest represents the create group request body.
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// AddMemberRequest represents the add member request body.
type AddMemberRequest struct {
	UserID  int64 `json:"userId" binding:"required"`
	IsAdmin bool  `json:"isAdmin"`
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	CreatedBy    int64   `json:"createdBy"`
	CreatedAt    string  `json:"createdAt"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

// GroupMemberResponse represents a group member in API responses.
type GroupMemberResponse struct {
	UserID  int64 `json:"userId"`
	IsAdmin bool  `json:"isAdmin"`
}

func groupResponse(g *store.Group) GroupResponse {
	return GroupResponse{
		ID:           g.ID,
		Name:         g.Name,
		CreatedBy:    g.CreatedBy,
		CreatedAt:    g.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		ProfileImage: g.ProfileImage,
	}
}

// CreateGroup handles group creation; the creator becomes the first admin.
// POST /api/groups
func (h *GroupHandlers) CreateGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create group request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	group, err := h.store.CreateGroup(c.Request.Context(), req.Name, uid)
	if err != nil {
		h.log.Error().Err(err).Str("group_name", req.Name).Msg("failed to create group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("group_name", group.Name).Int64("group_id", group.ID).Int64("creator_id", uid).Msg("group created successfully")
	c.JSON(http.StatusCreated, groupResponse(group))
}

// ListGroups lists groups the caller belongs to.
// GET /api/groups
func (h *GroupHandlers) ListGroups(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groups, err := h.store.ListGroupsFor(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list groups")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]GroupResponse, 0, len(groups))
	for _, group := range groups {
		response = append(response, groupResponse(group))
	}

	c.JSON(http.StatusOK, response)
}

// ListMembers lists the members of a group the caller belongs to.
// GET /api/groups/:id/members
func (h *GroupHandlers) ListMembers(c *gin.Context) {
	uid, groupID, ok := h.callerAndGroup(c)
	if !ok {
		return
	}

	if !h.requireMember(c, groupID, uid) {
		return
	}

	members, err := h.store.ListMembers(c.Request.Context(), groupID)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to list members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]GroupMemberResponse, 0, len(members))
	for _, member := range members {
		response = append(response, GroupMemberResponse{UserID: member.UserID, IsAdmin: member.IsAdmin})
	}

	c.JSON(http.StatusOK, response)
}

// ListMessages returns the message history of a group the caller belongs to.
// GET /api/groups/:id/messages
func (h *GroupHandlers) ListMessages(c *gin.Context) {
	uid, groupID, ok := h.callerAndGroup(c)
	if !ok {
		return
	}

	if !h.requireMember(c, groupID, uid) {
		return
	}

	messages, err := h.store.ListGroupMessages(c.Request.Context(), groupID)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to list group messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.GroupMessagePayload, 0, len(messages))
	for _, msg := range messages {
		response = append(response, proto.GroupMessagePayload{
			ID:            msg.ID,
			SenderID:      msg.SenderID,
			GroupID:       msg.GroupID,
			Content:       msg.Content,
			CreatedAt:     msg.CreatedAt,
			IsDeleted:     msg.IsDeleted,
			LastEditedAt:  msg.LastEditedAt,
			AttachmentURL: msg.AttachmentURL,
		})
	}

	c.JSON(http.StatusOK, response)
}

// AddMember adds a user to a group. Admin only.
// POST /api/groups/:id/members
func (h *GroupHandlers) AddMember(c *gin.Context) {
	uid, groupID, ok := h.callerAndGroup(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add member request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	admin, err := h.store.IsAdmin(c.Request.Context(), groupID, uid)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to check admin flag")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !admin {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only group admins may add members"})
		return
	}

	if err := h.store.AddMember(c.Request.Context(), groupID, req.UserID, req.IsAdmin); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found"})
			return
		}
		h.log.Error().Err(err).Int64("group_id", groupID).Int64("user_id", req.UserID).Msg("failed to add member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveMember removes a user from a group. Allowed for admins and for a
// member removing themselves.
// DELETE /api/groups/:id/members/:userId
func (h *GroupHandlers) RemoveMember(c *gin.Context) {
	uid, groupID, ok := h.callerAndGroup(c)
	if !ok {
		return
	}

	targetID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || targetID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	if targetID != uid {
		admin, err := h.store.IsAdmin(c.Request.Context(), groupID, uid)
		if err != nil {
			h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to check admin flag")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		if !admin {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "only group admins may remove other members"})
			return
		}
	}

	if err := h.store.RemoveMember(c.Request.Context(), groupID, targetID); err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Int64("user_id", targetID).Msg("failed to remove member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *GroupHandlers) callerAndGroup(c *gin.Context) (int64, int64, bool) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return 0, 0, false
	}

	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || groupID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return 0, 0, false
	}

	return uid, groupID, true
}

func (h *GroupHandlers) requireMember(c *gin.Context, groupID, uid int64) bool {
	member, err := h.store.IsMember(c.Request.Context(), groupID, uid)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to check membership")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return false
	}
	if !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of this group"})
		return false
	}
	return true
}
