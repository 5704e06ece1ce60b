package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsOnline     bool
	ProfileImage *string
	CreatedAt    time.Time
}

// Message represents a persisted direct message between two users.
type Message struct {
	ID            int64
	SenderID      int64
	ReceiverID    int64
	Content       string
	CreatedAt     time.Time
	IsRead        bool
	IsDeleted     bool
	LastEditedAt  *time.Time
	AttachmentURL *string
}

// Group represents a named group chat.
type Group struct {
	ID           int64
	Name         string
	CreatedBy    int64
	CreatedAt    time.Time
	ProfileImage *string
}

// GroupMember represents group membership with an admin flag.
type GroupMember struct {
	GroupID int64
	UserID  int64
	IsAdmin bool
	AddedAt time.Time
}

// GroupMessage represents a persisted message scoped to a group.
type GroupMessage struct {
	ID            int64
	GroupID       int64
	SenderID      int64
	Content       string
	CreatedAt     time.Time
	IsDeleted     bool
	LastEditedAt  *time.Time
	AttachmentURL *string
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers lists all users.
	ListUsers(ctx context.Context) ([]*User, error)

	// SetUserOnline updates the persisted online flag for a user.
	SetUserOnline(ctx context.Context, userID int64, online bool) error

	// UpdateProfileImage updates the user's profile image URL.
	UpdateProfileImage(ctx context.Context, userID int64, url string) error
}

// MessageStore handles direct message persistence.
type MessageStore interface {
	// CreateMessage persists a direct message and returns the canonical record.
	CreateMessage(ctx context.Context, msg *Message) (*Message, error)

	// GetMessage retrieves a direct message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListConversation returns all messages between two users, oldest first.
	ListConversation(ctx context.Context, userA, userB int64) ([]*Message, error)

	// EditMessage replaces the message content and stamps last_edited_at.
	EditMessage(ctx context.Context, id int64, content string) (*Message, error)

	// SoftDeleteMessage marks the message deleted without removing it.
	SoftDeleteMessage(ctx context.Context, id int64) error

	// MarkMessageRead sets the read flag on a message.
	MarkMessageRead(ctx context.Context, id int64) error

	// UnreadCounts returns unread message counts for a receiver, keyed by sender.
	UnreadCounts(ctx context.Context, receiverID int64) (map[int64]int, error)
}

// GroupStore handles group, membership and group message persistence.
type GroupStore interface {
	// CreateGroup creates a group and adds the creator as its first admin.
	CreateGroup(ctx context.Context, name string, createdBy int64) (*Group, error)

	// GetGroup retrieves a group by ID.
	GetGroup(ctx context.Context, id int64) (*Group, error)

	// ListGroupsFor lists groups the user is a member of.
	ListGroupsFor(ctx context.Context, userID int64) ([]*Group, error)

	// AddMember adds a user to a group.
	AddMember(ctx context.Context, groupID, userID int64, isAdmin bool) error

	// RemoveMember removes a user from a group.
	RemoveMember(ctx context.Context, groupID, userID int64) error

	// IsMember reports whether the user belongs to the group.
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)

	// IsAdmin reports whether the user is an admin of the group.
	IsAdmin(ctx context.Context, groupID, userID int64) (bool, error)

	// ListMembers lists all members of a group.
	ListMembers(ctx context.Context, groupID int64) ([]*GroupMember, error)

	// CreateGroupMessage persists a group message and returns the canonical record.
	CreateGroupMessage(ctx context.Context, msg *GroupMessage) (*GroupMessage, error)

	// GetGroupMessage retrieves a group message by ID.
	GetGroupMessage(ctx context.Context, id int64) (*GroupMessage, error)

	// ListGroupMessages returns all messages of a group, oldest first.
	ListGroupMessages(ctx context.Context, groupID int64) ([]*GroupMessage, error)

	// EditGroupMessage replaces the message content and stamps last_edited_at.
	EditGroupMessage(ctx context.Context, id int64, content string) (*GroupMessage, error)

	// SoftDeleteGroupMessage marks the group message deleted without removing it.
	SoftDeleteGroupMessage(ctx context.Context, id int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	GroupStore

	// Close closes the underlying database connection.
	Close() error
}
