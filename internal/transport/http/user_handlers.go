package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/store"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		log:   logger,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	IsOnline     bool    `json:"isOnline"`
	ProfileImage *string `json:"profileImage,omitempty"`
	UnreadCount  int     `json:"unreadCount,omitempty"`
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		IsOnline:     u.IsOnline,
		ProfileImage: u.ProfileImage,
	}
}

// ListUsers returns every user except the caller, with presence and the
// caller's unread message count per user.
// GET /api/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	unread, err := h.store.UnreadCounts(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to load unread counts")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		if u.ID == uid {
			continue
		}
		resp := userResponse(u)
		resp.UnreadCount = unread[u.ID]
		response = append(response, resp)
	}

	c.JSON(http.StatusOK, response)
}
