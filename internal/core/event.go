package core

import "github.com/pulsechat/pulsechat-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage delivers a persisted direct message.
	EventMessage EventKind = iota
	// EventTyping notifies the peer that a user started or stopped typing.
	EventTyping
	// EventMessageEdit delivers the canonical record of an edited direct message.
	EventMessageEdit
	// EventMessageDelete notifies that a direct message was soft-deleted.
	EventMessageDelete
	// EventGroupMessage delivers a persisted group message.
	EventGroupMessage
	// EventGroupTyping notifies group members about a member's typing state.
	EventGroupTyping
	// EventGroupMessageEdit delivers the canonical record of an edited group message.
	EventGroupMessageEdit
	// EventGroupMessageDelete notifies that a group message was soft-deleted.
	EventGroupMessageDelete
	// EventError notifies the originating client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind

	Message      *store.Message
	GroupMessage *store.GroupMessage

	// Typing and delete notifications.
	UserID    int64
	GroupID   int64
	MessageID int64
	IsTyping  bool

	Error *CoreError
}
