package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pulsechat/pulsechat-server/internal/store"
)

// schema is applied on open; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_online     BOOLEAN NOT NULL DEFAULT 0,
	profile_image TEXT,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	content        TEXT NOT NULL,
	sender_id      INTEGER NOT NULL REFERENCES users(id),
	receiver_id    INTEGER NOT NULL REFERENCES users(id),
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_read        BOOLEAN NOT NULL DEFAULT 0,
	is_deleted     BOOLEAN NOT NULL DEFAULT 0,
	last_edited_at DATETIME,
	attachment_url TEXT
);

CREATE TABLE IF NOT EXISTS groups (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	created_by    INTEGER NOT NULL REFERENCES users(id),
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	profile_image TEXT
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id INTEGER NOT NULL REFERENCES groups(id),
	user_id  INTEGER NOT NULL REFERENCES users(id),
	added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_admin BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS group_messages (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	content        TEXT NOT NULL,
	sender_id      INTEGER NOT NULL REFERENCES users(id),
	group_id       INTEGER NOT NULL REFERENCES groups(id),
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_deleted     BOOLEAN NOT NULL DEFAULT 0,
	last_edited_at DATETIME,
	attachment_url TEXT
);

CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, receiver_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(receiver_id, is_read);
CREATE INDEX IF NOT EXISTS idx_group_messages_group ON group_messages(group_id, created_at);
CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, is_online, profile_image, created_at
		FROM users
		WHERE id = ?
	`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, is_online, profile_image, created_at
		FROM users
		WHERE username = ?
	`
	return scanUser(s.db.QueryRowContext(ctx, query, username))
}

// ListUsers lists all users.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	query := `
		SELECT id, username, password_hash, is_online, profile_image, created_at
		FROM users
		ORDER BY username
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetUserOnline updates the persisted online flag for a user.
func (s *SQLiteStore) SetUserOnline(ctx context.Context, userID int64, online bool) error {
	query := `UPDATE users SET is_online = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, online, userID); err != nil {
		return fmt.Errorf("update online status: %w", err)
	}
	return nil
}

// UpdateProfileImage updates the user's profile image URL.
func (s *SQLiteStore) UpdateProfileImage(ctx context.Context, userID int64, url string) error {
	query := `UPDATE users SET profile_image = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, url, userID); err != nil {
		return fmt.Errorf("update profile image: %w", err)
	}
	return nil
}

// ==== MessageStore implementation ====

// CreateMessage persists a direct message and returns the canonical record.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *store.Message) (*store.Message, error) {
	query := `
		INSERT INTO messages (content, sender_id, receiver_id, attachment_url)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.Content, msg.SenderID, msg.ReceiverID, msg.AttachmentURL)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetMessage(ctx, id)
}

// GetMessage retrieves a direct message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, content, sender_id, receiver_id, created_at, is_read, is_deleted, last_edited_at, attachment_url
		FROM messages
		WHERE id = ?
	`
	return scanMessage(s.db.QueryRowContext(ctx, query, id))
}

// ListConversation returns all messages between two users, oldest first.
func (s *SQLiteStore) ListConversation(ctx context.Context, userA, userB int64) ([]*store.Message, error) {
	query := `
		SELECT id, content, sender_id, receiver_id, created_at, is_read, is_deleted, last_edited_at, attachment_url
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, userA, userB, userB, userA)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// EditMessage replaces the message content and stamps last_edited_at.
func (s *SQLiteStore) EditMessage(ctx context.Context, id int64, content string) (*store.Message, error) {
	query := `UPDATE messages SET content = ?, last_edited_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, content, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	return s.GetMessage(ctx, id)
}

// SoftDeleteMessage marks the message deleted without removing it.
func (s *SQLiteStore) SoftDeleteMessage(ctx context.Context, id int64) error {
	query := `UPDATE messages SET is_deleted = 1 WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// MarkMessageRead sets the read flag on a message.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, id int64) error {
	query := `UPDATE messages SET is_read = 1 WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// UnreadCounts returns unread message counts for a receiver, keyed by sender.
func (s *SQLiteStore) UnreadCounts(ctx context.Context, receiverID int64) (map[int64]int, error) {
	query := `
		SELECT sender_id, COUNT(*)
		FROM messages
		WHERE receiver_id = ? AND is_read = 0 AND is_deleted = 0
		GROUP BY sender_id
	`
	rows, err := s.db.QueryContext(ctx, query, receiverID)
	if err != nil {
		return nil, fmt.Errorf("query unread counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var senderID int64
		var count int
		if err := rows.Scan(&senderID, &count); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[senderID] = count
	}
	return counts, rows.Err()
}

// ==== GroupStore implementation ====

// CreateGroup creates a group and adds the creator as its first admin.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name string, createdBy int64) (*store.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `INSERT INTO groups (name, created_by) VALUES (?, ?)`, name, createdBy)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	// A group always has at least one admin: its creator.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, is_admin) VALUES (?, ?, 1)`, id, createdBy); err != nil {
		return nil, fmt.Errorf("insert creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetGroup(ctx, id)
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id int64) (*store.Group, error) {
	query := `
		SELECT id, name, created_by, created_at, profile_image
		FROM groups
		WHERE id = ?
	`
	var group store.Group
	var profileImage sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.CreatedBy,
		&group.CreatedAt,
		&profileImage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query group: %w", err)
	}
	if profileImage.Valid {
		group.ProfileImage = &profileImage.String
	}
	return &group, nil
}

// ListGroupsFor lists groups the user is a member of.
func (s *SQLiteStore) ListGroupsFor(ctx context.Context, userID int64) ([]*store.Group, error) {
	query := `
		SELECT g.id, g.name, g.created_by, g.created_at, g.profile_image
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.created_at
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []*store.Group
	for rows.Next() {
		var group store.Group
		var profileImage sql.NullString
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt, &profileImage); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if profileImage.Valid {
			group.ProfileImage = &profileImage.String
		}
		groups = append(groups, &group)
	}
	return groups, rows.Err()
}

// AddMember adds a user to a group.
func (s *SQLiteStore) AddMember(ctx context.Context, groupID, userID int64, isAdmin bool) error {
	query := `INSERT INTO group_members (group_id, user_id, is_admin) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, groupID, userID, isAdmin); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a group.
func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID, userID int64) error {
	query := `DELETE FROM group_members WHERE group_id = ? AND user_id = ?`
	if _, err := s.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// IsMember reports whether the user belongs to the group.
func (s *SQLiteStore) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?`
	var one int
	err := s.db.QueryRowContext(ctx, query, groupID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return true, nil
}

// IsAdmin reports whether the user is an admin of the group.
func (s *SQLiteStore) IsAdmin(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `SELECT is_admin FROM group_members WHERE group_id = ? AND user_id = ?`
	var isAdmin bool
	err := s.db.QueryRowContext(ctx, query, groupID, userID).Scan(&isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query admin flag: %w", err)
	}
	return isAdmin, nil
}

// ListMembers lists all members of a group.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID int64) ([]*store.GroupMember, error) {
	query := `
		SELECT group_id, user_id, is_admin, added_at
		FROM group_members
		WHERE group_id = ?
		ORDER BY added_at
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []*store.GroupMember
	for rows.Next() {
		var m store.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.IsAdmin, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// CreateGroupMessage persists a group message and returns the canonical record.
func (s *SQLiteStore) CreateGroupMessage(ctx context.Context, msg *store.GroupMessage) (*store.GroupMessage, error) {
	query := `
		INSERT INTO group_messages (content, sender_id, group_id, attachment_url)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.Content, msg.SenderID, msg.GroupID, msg.AttachmentURL)
	if err != nil {
		return nil, fmt.Errorf("insert group message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetGroupMessage(ctx, id)
}

// GetGroupMessage retrieves a group message by ID.
func (s *SQLiteStore) GetGroupMessage(ctx context.Context, id int64) (*store.GroupMessage, error) {
	query := `
		SELECT id, content, sender_id, group_id, created_at, is_deleted, last_edited_at, attachment_url
		FROM group_messages
		WHERE id = ?
	`
	return scanGroupMessage(s.db.QueryRowContext(ctx, query, id))
}

// ListGroupMessages returns all messages of a group, oldest first.
func (s *SQLiteStore) ListGroupMessages(ctx context.Context, groupID int64) ([]*store.GroupMessage, error) {
	query := `
		SELECT id, content, sender_id, group_id, created_at, is_deleted, last_edited_at, attachment_url
		FROM group_messages
		WHERE group_id = ?
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.GroupMessage
	for rows.Next() {
		msg, err := scanGroupMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// EditGroupMessage replaces the message content and stamps last_edited_at.
func (s *SQLiteStore) EditGroupMessage(ctx context.Context, id int64, content string) (*store.GroupMessage, error) {
	query := `UPDATE group_messages SET content = ?, last_edited_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, content, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update group message: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("group message %d: %w", id, store.ErrNotFound)
	}
	return s.GetGroupMessage(ctx, id)
}

// SoftDeleteGroupMessage marks the group message deleted without removing it.
func (s *SQLiteStore) SoftDeleteGroupMessage(ctx context.Context, id int64) error {
	query := `UPDATE group_messages SET is_deleted = 1 WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete group message: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("group message %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// ==== scan helpers ====

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var user store.User
	var profileImage sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsOnline,
		&profileImage,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if profileImage.Valid {
		user.ProfileImage = &profileImage.String
	}
	return &user, nil
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	var lastEdited sql.NullTime
	var attachment sql.NullString
	err := row.Scan(
		&msg.ID,
		&msg.Content,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.CreatedAt,
		&msg.IsRead,
		&msg.IsDeleted,
		&lastEdited,
		&attachment,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	if lastEdited.Valid {
		msg.LastEditedAt = &lastEdited.Time
	}
	if attachment.Valid {
		msg.AttachmentURL = &attachment.String
	}
	return &msg, nil
}

func scanGroupMessage(row rowScanner) (*store.GroupMessage, error) {
	var msg store.GroupMessage
	var lastEdited sql.NullTime
	var attachment sql.NullString
	err := row.Scan(
		&msg.ID,
		&msg.Content,
		&msg.SenderID,
		&msg.GroupID,
		&msg.CreatedAt,
		&msg.IsDeleted,
		&lastEdited,
		&attachment,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group message: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("scan group message: %w", err)
	}
	if lastEdited.Valid {
		msg.LastEditedAt = &lastEdited.Time
	}
	if attachment.Valid {
		msg.AttachmentURL = &attachment.String
	}
	return &msg, nil
}
