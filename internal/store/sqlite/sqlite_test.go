package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/pulsechat/pulsechat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "hash-a")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if alice.ID == 0 || alice.Username != "alice" || alice.IsOnline {
		t.Fatalf("unexpected user: %+v", alice)
	}

	if _, err := s.CreateUser(ctx, "alice", "hash-b"); err == nil {
		t.Fatal("duplicate username should fail")
	}

	if _, err := s.GetUserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetUserOnline(ctx, alice.ID, true); err != nil {
		t.Fatalf("set online: %v", err)
	}
	got, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if !got.IsOnline {
		t.Fatal("online flag should persist")
	}

	if err := s.UpdateProfileImage(ctx, alice.ID, "/uploads/a.png"); err != nil {
		t.Fatalf("update profile image: %v", err)
	}
	got, err = s.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ProfileImage == nil || *got.ProfileImage != "/uploads/a.png" {
		t.Fatalf("profile image should persist, got %v", got.ProfileImage)
	}
}

func TestMessageLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "alice", "h")
	bob, _ := s.CreateUser(ctx, "bob", "h")

	msg, err := s.CreateMessage(ctx, &store.Message{
		SenderID:   alice.ID,
		ReceiverID: bob.ID,
		Content:    "hello",
	})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if msg.ID == 0 || msg.IsRead || msg.IsDeleted || msg.LastEditedAt != nil {
		t.Fatalf("unexpected fresh message: %+v", msg)
	}

	reply, err := s.CreateMessage(ctx, &store.Message{
		SenderID:   bob.ID,
		ReceiverID: alice.ID,
		Content:    "hi back",
	})
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}

	// Both directions show up in either ordering of the pair.
	conv, err := s.ListConversation(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if len(conv) != 2 || conv[0].ID != msg.ID || conv[1].ID != reply.ID {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	edited, err := s.EditMessage(ctx, msg.ID, "hello, edited")
	if err != nil {
		t.Fatalf("edit message: %v", err)
	}
	if edited.Content != "hello, edited" || edited.LastEditedAt == nil {
		t.Fatalf("unexpected edited message: %+v", edited)
	}

	if _, err := s.EditMessage(ctx, 999, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SoftDeleteMessage(ctx, msg.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if !got.IsDeleted {
		t.Fatal("soft delete should keep the row with is_deleted set")
	}
}

func TestUnreadCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "alice", "h")
	bob, _ := s.CreateUser(ctx, "bob", "h")
	carol, _ := s.CreateUser(ctx, "carol", "h")

	for i := 0; i < 3; i++ {
		if _, err := s.CreateMessage(ctx, &store.Message{SenderID: alice.ID, ReceiverID: bob.ID, Content: "a"}); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}
	read, err := s.CreateMessage(ctx, &store.Message{SenderID: carol.ID, ReceiverID: bob.ID, Content: "c"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if err := s.MarkMessageRead(ctx, read.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	counts, err := s.UnreadCounts(ctx, bob.ID)
	if err != nil {
		t.Fatalf("unread counts: %v", err)
	}
	if counts[alice.ID] != 3 {
		t.Fatalf("expected 3 unread from alice, got %d", counts[alice.ID])
	}
	if counts[carol.ID] != 0 {
		t.Fatalf("read messages must not count, got %d", counts[carol.ID])
	}
}

func TestGroupLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "alice", "h")
	bob, _ := s.CreateUser(ctx, "bob", "h")

	group, err := s.CreateGroup(ctx, "team", alice.ID)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	// The creator becomes the first admin atomically.
	admin, err := s.IsAdmin(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("is admin: %v", err)
	}
	if !admin {
		t.Fatal("creator should be admin")
	}

	if err := s.AddMember(ctx, group.ID, bob.ID, false); err != nil {
		t.Fatalf("add member: %v", err)
	}
	member, err := s.IsMember(ctx, group.ID, bob.ID)
	if err != nil {
		t.Fatalf("is member: %v", err)
	}
	if !member {
		t.Fatal("bob should be a member")
	}
	admin, _ = s.IsAdmin(ctx, group.ID, bob.ID)
	if admin {
		t.Fatal("bob should not be admin")
	}

	groups, err := s.ListGroupsFor(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != group.ID {
		t.Fatalf("unexpected groups for bob: %+v", groups)
	}

	members, err := s.ListMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	if err := s.RemoveMember(ctx, group.ID, bob.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	member, _ = s.IsMember(ctx, group.ID, bob.ID)
	if member {
		t.Fatal("bob should no longer be a member")
	}
}

func TestGroupMessageLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "alice", "h")
	group, _ := s.CreateGroup(ctx, "team", alice.ID)

	url := "/uploads/doc.pdf"
	msg, err := s.CreateGroupMessage(ctx, &store.GroupMessage{
		GroupID:       group.ID,
		SenderID:      alice.ID,
		Content:       "see attached",
		AttachmentURL: &url,
	})
	if err != nil {
		t.Fatalf("create group message: %v", err)
	}
	if msg.AttachmentURL == nil || *msg.AttachmentURL != url {
		t.Fatalf("attachment url should persist, got %v", msg.AttachmentURL)
	}

	edited, err := s.EditGroupMessage(ctx, msg.ID, "updated")
	if err != nil {
		t.Fatalf("edit group message: %v", err)
	}
	if edited.Content != "updated" || edited.LastEditedAt == nil {
		t.Fatalf("unexpected edited group message: %+v", edited)
	}

	if err := s.SoftDeleteGroupMessage(ctx, msg.ID); err != nil {
		t.Fatalf("soft delete group message: %v", err)
	}

	msgs, err := s.ListGroupMessages(ctx, group.ID)
	if err != nil {
		t.Fatalf("list group messages: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].IsDeleted {
		t.Fatalf("soft-deleted message should remain listed, got %+v", msgs)
	}

	if err := s.SoftDeleteGroupMessage(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
