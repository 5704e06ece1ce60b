package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandAuth binds a user identity to the connection.
	CommandAuth CommandKind = iota
	// CommandSendMessage persists and delivers a direct message.
	CommandSendMessage
	// CommandTyping forwards a direct typing indicator.
	CommandTyping
	// CommandEditMessage rewrites a direct message's content.
	CommandEditMessage
	// CommandDeleteMessage soft-deletes a direct message.
	CommandDeleteMessage
	// CommandSendGroupMessage persists and broadcasts a group message.
	CommandSendGroupMessage
	// CommandGroupTyping forwards a group typing indicator.
	CommandGroupTyping
	// CommandEditGroupMessage rewrites a group message's content.
	CommandEditGroupMessage
	// CommandDeleteGroupMessage soft-deletes a group message.
	CommandDeleteGroupMessage
)

// Command represents an action requested by a connection. Which fields are
// meaningful depends on Kind; the transport mapper validates the payload
// before a command is ever constructed.
type Command struct {
	Kind CommandKind

	// Auth.
	UserID int64
	Token  string

	// Message addressing.
	ReceiverID int64
	GroupID    int64
	MessageID  int64

	// Message body.
	Content       string
	AttachmentURL *string

	// Typing state.
	IsTyping bool
}
