// Package memory provides an in-memory store.Store implementation.
// It backs tests and ephemeral deployments; state is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pulsechat/pulsechat-server/internal/store"
)

// MemoryStore implements store.Store with process-local maps.
type MemoryStore struct {
	mu sync.Mutex

	users         map[int64]*store.User
	messages      map[int64]*store.Message
	groups        map[int64]*store.Group
	groupMembers  map[int64][]*store.GroupMember
	groupMessages map[int64]*store.GroupMessage

	nextUserID         int64
	nextMessageID      int64
	nextGroupID        int64
	nextGroupMessageID int64
}

// New constructs an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{
		users:              make(map[int64]*store.User),
		messages:           make(map[int64]*store.Message),
		groups:             make(map[int64]*store.Group),
		groupMembers:       make(map[int64][]*store.GroupMember),
		groupMessages:      make(map[int64]*store.GroupMessage),
		nextUserID:         1,
		nextMessageID:      1,
		nextGroupID:        1,
		nextGroupMessageID: 1,
	}
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

// ==== UserStore implementation ====

func (m *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return nil, fmt.Errorf("user %q already exists", username)
		}
	}

	user := &store.User{
		ID:           m.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.nextUserID++
	m.users[user.ID] = user

	copied := *user
	return &copied, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id int64) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]*store.User, 0, len(m.users))
	for _, u := range m.users {
		copied := *u
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *MemoryStore) SetUserOnline(_ context.Context, userID int64, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}
	user.IsOnline = online
	return nil
}

func (m *MemoryStore) UpdateProfileImage(_ context.Context, userID int64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}
	user.ProfileImage = &url
	return nil
}

// ==== MessageStore implementation ====

func (m *MemoryStore) CreateMessage(_ context.Context, msg *store.Message) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := &store.Message{
		ID:            m.nextMessageID,
		SenderID:      msg.SenderID,
		ReceiverID:    msg.ReceiverID,
		Content:       msg.Content,
		CreatedAt:     time.Now().UTC(),
		AttachmentURL: msg.AttachmentURL,
	}
	m.nextMessageID++
	m.messages[saved.ID] = saved

	copied := *saved
	return &copied, nil
}

func (m *MemoryStore) GetMessage(_ context.Context, id int64) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	copied := *msg
	return &copied, nil
}

func (m *MemoryStore) ListConversation(_ context.Context, userA, userB int64) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var messages []*store.Message
	for _, msg := range m.messages {
		if (msg.SenderID == userA && msg.ReceiverID == userB) ||
			(msg.SenderID == userB && msg.ReceiverID == userA) {
			copied := *msg
			messages = append(messages, &copied)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages, nil
}

func (m *MemoryStore) EditMessage(_ context.Context, id int64, content string) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	now := time.Now().UTC()
	msg.Content = content
	msg.LastEditedAt = &now

	copied := *msg
	return &copied, nil
}

func (m *MemoryStore) SoftDeleteMessage(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	msg.IsDeleted = true
	return nil
}

func (m *MemoryStore) MarkMessageRead(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	msg.IsRead = true
	return nil
}

func (m *MemoryStore) UnreadCounts(_ context.Context, receiverID int64) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[int64]int)
	for _, msg := range m.messages {
		if msg.ReceiverID == receiverID && !msg.IsRead && !msg.IsDeleted {
			counts[msg.SenderID]++
		}
	}
	return counts, nil
}

// ==== GroupStore implementation ====

func (m *MemoryStore) CreateGroup(_ context.Context, name string, createdBy int64) (*store.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	group := &store.Group{
		ID:        m.nextGroupID,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	m.nextGroupID++
	m.groups[group.ID] = group
	m.groupMembers[group.ID] = []*store.GroupMember{{
		GroupID: group.ID,
		UserID:  createdBy,
		IsAdmin: true,
		AddedAt: group.CreatedAt,
	}}

	copied := *group
	return &copied, nil
}

func (m *MemoryStore) GetGroup(_ context.Context, id int64) (*store.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %d: %w", id, store.ErrNotFound)
	}
	copied := *group
	return &copied, nil
}

func (m *MemoryStore) ListGroupsFor(_ context.Context, userID int64) ([]*store.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var groups []*store.Group
	for groupID, members := range m.groupMembers {
		for _, member := range members {
			if member.UserID == userID {
				copied := *m.groups[groupID]
				groups = append(groups, &copied)
				break
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

func (m *MemoryStore) AddMember(_ context.Context, groupID, userID int64, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[groupID]; !ok {
		return fmt.Errorf("group %d: %w", groupID, store.ErrNotFound)
	}
	for _, member := range m.groupMembers[groupID] {
		if member.UserID == userID {
			return fmt.Errorf("user %d already in group %d", userID, groupID)
		}
	}
	m.groupMembers[groupID] = append(m.groupMembers[groupID], &store.GroupMember{
		GroupID: groupID,
		UserID:  userID,
		IsAdmin: isAdmin,
		AddedAt: time.Now().UTC(),
	})
	return nil
}

func (m *MemoryStore) RemoveMember(_ context.Context, groupID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := m.groupMembers[groupID]
	for i, member := range members {
		if member.UserID == userID {
			m.groupMembers[groupID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, member := range m.groupMembers[groupID] {
		if member.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) IsAdmin(_ context.Context, groupID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, member := range m.groupMembers[groupID] {
		if member.UserID == userID {
			return member.IsAdmin, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ListMembers(_ context.Context, groupID int64) ([]*store.GroupMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := make([]*store.GroupMember, 0, len(m.groupMembers[groupID]))
	for _, member := range m.groupMembers[groupID] {
		copied := *member
		members = append(members, &copied)
	}
	return members, nil
}

func (m *MemoryStore) CreateGroupMessage(_ context.Context, msg *store.GroupMessage) (*store.GroupMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := &store.GroupMessage{
		ID:            m.nextGroupMessageID,
		GroupID:       msg.GroupID,
		SenderID:      msg.SenderID,
		Content:       msg.Content,
		CreatedAt:     time.Now().UTC(),
		AttachmentURL: msg.AttachmentURL,
	}
	m.nextGroupMessageID++
	m.groupMessages[saved.ID] = saved

	copied := *saved
	return &copied, nil
}

func (m *MemoryStore) GetGroupMessage(_ context.Context, id int64) (*store.GroupMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.groupMessages[id]
	if !ok {
		return nil, fmt.Errorf("group message %d: %w", id, store.ErrNotFound)
	}
	copied := *msg
	return &copied, nil
}

func (m *MemoryStore) ListGroupMessages(_ context.Context, groupID int64) ([]*store.GroupMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var messages []*store.GroupMessage
	for _, msg := range m.groupMessages {
		if msg.GroupID == groupID {
			copied := *msg
			messages = append(messages, &copied)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages, nil
}

func (m *MemoryStore) EditGroupMessage(_ context.Context, id int64, content string) (*store.GroupMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.groupMessages[id]
	if !ok {
		return nil, fmt.Errorf("group message %d: %w", id, store.ErrNotFound)
	}
	now := time.Now().UTC()
	msg.Content = content
	msg.LastEditedAt = &now

	copied := *msg
	return &copied, nil
}

func (m *MemoryStore) SoftDeleteGroupMessage(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.groupMessages[id]
	if !ok {
		return fmt.Errorf("group message %d: %w", id, store.ErrNotFound)
	}
	msg.IsDeleted = true
	return nil
}
