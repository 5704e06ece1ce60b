package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/proto"
	"github.com/pulsechat/pulsechat-server/internal/store"
)

// MessageHandlers provides HTTP handlers for direct message history.
type MessageHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store: st,
		log:   logger,
	}
}

// GetConversation returns the full message history between the caller and
// another user. Unread messages addressed to the caller are marked read as a
// side effect, so unread counts reset when a conversation is opened.
// GET /api/messages/:userId
func (h *MessageHandlers) GetConversation(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	peerID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || peerID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	messages, err := h.store.ListConversation(c.Request.Context(), uid, peerID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Int64("peer_id", peerID).Msg("failed to load conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.MessagePayload, 0, len(messages))
	for _, msg := range messages {
		if msg.ReceiverID == uid && !msg.IsRead {
			if err := h.store.MarkMessageRead(c.Request.Context(), msg.ID); err != nil {
				h.log.Warn().Err(err).Int64("message_id", msg.ID).Msg("failed to mark message read")
			} else {
				msg.IsRead = true
			}
		}
		response = append(response, proto.MessagePayload{
			ID:            msg.ID,
			SenderID:      msg.SenderID,
			ReceiverID:    msg.ReceiverID,
			Content:       msg.Content,
			CreatedAt:     msg.CreatedAt,
			IsRead:        msg.IsRead,
			IsDeleted:     msg.IsDeleted,
			LastEditedAt:  msg.LastEditedAt,
			AttachmentURL: msg.AttachmentURL,
		})
	}

	c.JSON(http.StatusOK, response)
}
