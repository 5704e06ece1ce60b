package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	InboundTypeAuth               = "auth"
	InboundTypeChat               = "chat"
	InboundTypeTyping             = "typing"
	InboundTypeEdit               = "edit"
	InboundTypeDelete             = "delete"
	InboundTypeGroupChat          = "groupChat"
	InboundTypeGroupTyping        = "groupTyping"
	InboundTypeGroupEditMessage   = "groupEditMessage"
	InboundTypeGroupDeleteMessage = "groupDeleteMessage"

	OutboundTypeMessage            = "message"
	OutboundTypeTyping             = "typing"
	OutboundTypeMessageEdit        = "messageEdit"
	OutboundTypeMessageDelete      = "messageDelete"
	OutboundTypeGroupMessage       = "groupMessage"
	OutboundTypeGroupTyping        = "groupTyping"
	OutboundTypeGroupMessageEdit   = "groupMessageEdit"
	OutboundTypeGroupMessageDelete = "groupMessageDelete"
	OutboundTypeError              = "error"
)

// AuthData binds a user identity to the connection. Token is required when
// the server validates sessions; the identity it carries must match UserID.
type AuthData struct {
	UserID int64  `json:"userId"`
	Token  string `json:"token,omitempty"`
}

// ChatData is a direct message from the client.
type ChatData struct {
	Content       string  `json:"content"`
	ReceiverID    int64   `json:"receiverId"`
	AttachmentURL *string `json:"attachmentUrl,omitempty"`
}

// TypingData is a direct typing indicator from the client.
type TypingData struct {
	ReceiverID int64 `json:"receiverId"`
	IsTyping   bool  `json:"isTyping"`
}

// EditData rewrites a direct message.
type EditData struct {
	MessageID  int64  `json:"messageId"`
	Content    string `json:"content"`
	ReceiverID int64  `json:"receiverId"`
}

// DeleteData soft-deletes a direct message.
type DeleteData struct {
	MessageID  int64 `json:"messageId"`
	ReceiverID int64 `json:"receiverId"`
}

// GroupChatData is a group message from the client.
type GroupChatData struct {
	Content       string  `json:"content"`
	GroupID       int64   `json:"groupId"`
	AttachmentURL *string `json:"attachmentUrl,omitempty"`
}

// GroupTypingData is a group typing indicator from the client.
type GroupTypingData struct {
	GroupID  int64 `json:"groupId"`
	IsTyping bool  `json:"isTyping"`
}

// GroupEditData rewrites a group message.
type GroupEditData struct {
	MessageID int64  `json:"messageId"`
	Content   string `json:"content"`
	GroupID   int64  `json:"groupId"`
}

// GroupDeleteData soft-deletes a group message.
type GroupDeleteData struct {
	MessageID int64 `json:"messageId"`
	GroupID   int64 `json:"groupId"`
}

// MessagePayload is the canonical persisted form of a direct message, echoed
// to the sender and delivered to the receiver.
type MessagePayload struct {
	ID            int64      `json:"id"`
	SenderID      int64      `json:"senderId"`
	ReceiverID    int64      `json:"receiverId"`
	Content       string     `json:"content"`
	CreatedAt     time.Time  `json:"createdAt"`
	IsRead        bool       `json:"isRead"`
	IsDeleted     bool       `json:"isDeleted"`
	LastEditedAt  *time.Time `json:"lastEditedAt,omitempty"`
	AttachmentURL *string    `json:"attachmentUrl,omitempty"`
}

// GroupMessagePayload is the canonical persisted form of a group message.
type GroupMessagePayload struct {
	ID            int64      `json:"id"`
	SenderID      int64      `json:"senderId"`
	GroupID       int64      `json:"groupId"`
	Content       string     `json:"content"`
	CreatedAt     time.Time  `json:"createdAt"`
	IsDeleted     bool       `json:"isDeleted"`
	LastEditedAt  *time.Time `json:"lastEditedAt,omitempty"`
	AttachmentURL *string    `json:"attachmentUrl,omitempty"`
}

// TypingPayload notifies a peer about a user's typing state.
type TypingPayload struct {
	UserID   int64 `json:"userId"`
	IsTyping bool  `json:"isTyping"`
}

// GroupTypingPayload notifies group members about a member's typing state.
type GroupTypingPayload struct {
	GroupID  int64 `json:"groupId"`
	UserID   int64 `json:"userId"`
	IsTyping bool  `json:"isTyping"`
}

// MessageDeletePayload notifies that a direct message was deleted.
type MessageDeletePayload struct {
	MessageID int64 `json:"messageId"`
}

// GroupMessageDeletePayload notifies that a group message was deleted.
type GroupMessageDeletePayload struct {
	MessageID int64 `json:"messageId"`
	GroupID   int64 `json:"groupId"`
}

// ErrorPayload describes a protocol or domain error returned to the sender.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
