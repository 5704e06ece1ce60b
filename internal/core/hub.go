package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pulsechat/pulsechat-server/internal/store"
	"github.com/rs/zerolog"
)

// AuthFunc validates a connection token and returns the user identity it
// carries. A nil AuthFunc makes the hub trust the userId named in the auth
// event, which is the wiring tests use.
type AuthFunc func(token string) (int64, error)

// FileRemover deletes an uploaded file by its public URL. The hub invokes it
// as a side effect of deleting a message that carries an attachment.
type FileRemover interface {
	Remove(url string) error
}

// Options carries optional hub collaborators.
type Options struct {
	Files     FileRemover
	Auth      AuthFunc
	TypingTTL time.Duration
	Logger    *zerolog.Logger
}

// Hub is the event router: it authenticates connections, keeps the registry
// and presence consistent with connection lifetime, persists chat events via
// the store and fans the canonical records out to live connections.
//
// Each attached connection gets one worker goroutine that drains its command
// inbox, finishing every command (store round-trips included) before taking
// the next. Commands from the same connection therefore never interleave;
// commands from different connections may.
type Hub struct {
	store    store.Store
	registry *Registry
	presence *Presence
	typing   *TypingTracker
	files    FileRemover
	auth     AuthFunc
	log      *zerolog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	wg      sync.WaitGroup
}

// NewHub constructs a hub over the given store. Zero-value Options are valid.
func NewHub(st store.Store, opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	h := &Hub{
		store:    st,
		registry: NewRegistry(),
		files:    opts.Files,
		auth:     opts.Auth,
		log:      logger,
		clients:  make(map[*Client]struct{}),
	}
	h.presence = NewPresence(st, logger)
	h.typing = NewTypingTracker(opts.TypingTTL, h.typingExpired)
	return h
}

// Run blocks until ctx is canceled, then tears the hub down: all typing
// timers are canceled, every attached connection is closed, and Run returns
// only after each worker has finished its teardown, so no user is left
// marked online by a graceful stop.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.typing.Stop()

	h.mu.Lock()
	for client := range h.clients {
		client.Close()
	}
	h.mu.Unlock()

	h.wg.Wait()
}

// Registry exposes the connection registry for liveness queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Attach takes ownership of a new, unauthenticated connection and starts its
// worker.
func (h *Hub) Attach(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.wg.Add(1)
	go h.worker(client)
}

// Detach closes the connection. The actual teardown runs on the connection's
// worker goroutine, which owns the client's state; Detach returns without
// waiting for it.
func (h *Hub) Detach(client *Client) {
	client.Close()
}

func (h *Hub) worker(client *Client) {
	defer h.wg.Done()
	defer h.teardown(client)

	for {
		select {
		case <-client.Done():
			return
		case cmd := <-client.Commands:
			h.dispatch(client, cmd)
		}
	}
}

// teardown runs on the worker goroutine once the connection is closed. If
// the connection still holds its user's registry slot the user goes offline
// and loses any pending typing indicators. A superseded connection's
// teardown is a no-op for registry and presence.
func (h *Hub) teardown(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	if client.UserID == 0 {
		return
	}
	if h.registry.Unregister(client.UserID, client) {
		h.typing.ClearUser(client.UserID)
		h.presence.MarkOffline(context.Background(), client.UserID)
		h.log.Debug().Int64("user_id", client.UserID).Str("conn_id", client.ID).Msg("connection unregistered")
	}
}

func (h *Hub) dispatch(client *Client, cmd *Command) {
	if client.UserID == 0 && cmd.Kind != CommandAuth {
		// Reject-fast: nothing is processed before authentication.
		h.log.Warn().Str("conn_id", client.ID).Msg("event before auth, closing connection")
		client.Close()
		return
	}

	switch cmd.Kind {
	case CommandAuth:
		h.handleAuth(client, cmd)
	case CommandSendMessage:
		h.handleSendMessage(client, cmd)
	case CommandTyping:
		h.handleTyping(client, cmd)
	case CommandEditMessage:
		h.handleEditMessage(client, cmd)
	case CommandDeleteMessage:
		h.handleDeleteMessage(client, cmd)
	case CommandSendGroupMessage:
		h.handleSendGroupMessage(client, cmd)
	case CommandGroupTyping:
		h.handleGroupTyping(client, cmd)
	case CommandEditGroupMessage:
		h.handleEditGroupMessage(client, cmd)
	case CommandDeleteGroupMessage:
		h.handleDeleteGroupMessage(client, cmd)
	default:
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

// handleAuth transitions the connection from Unauthenticated to
// Authenticated, registering it and marking the user online. A malformed or
// failed auth closes the connection.
func (h *Hub) handleAuth(client *Client, cmd *Command) {
	select {
	case <-client.Done():
		// The connection was closed while this command sat in the inbox;
		// registering it now would strand the user online.
		return
	default:
	}

	if client.UserID != 0 {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "already authenticated")})
		return
	}

	userID := cmd.UserID
	if h.auth != nil {
		claimed, err := h.auth(cmd.Token)
		if err != nil {
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("auth failed, closing connection")
			client.Close()
			return
		}
		if userID != 0 && userID != claimed {
			h.log.Warn().Int64("user_id", userID).Int64("claimed", claimed).Msg("auth identity mismatch")
			client.Close()
			return
		}
		userID = claimed
	}
	if userID == 0 {
		h.log.Warn().Str("conn_id", client.ID).Msg("malformed auth, closing connection")
		client.Close()
		return
	}

	client.UserID = userID

	// Single-session policy: a new connection supersedes and closes any
	// previous one for the same user.
	if old := h.registry.Register(userID, client); old != nil {
		old.send(&Event{Kind: EventError, Error: coreError(ErrCodeSessionReplaced, "session replaced by a newer connection")})
		old.Close()
		h.log.Info().Int64("user_id", userID).Msg("superseded previous session")
	}

	h.presence.MarkOnline(context.Background(), userID)
	h.log.Debug().Int64("user_id", userID).Str("conn_id", client.ID).Msg("connection authenticated")
}

func (h *Hub) handleSendMessage(client *Client, cmd *Command) {
	if cmd.Content == "" && cmd.AttachmentURL == nil {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "empty message")})
		return
	}

	saved, err := h.store.CreateMessage(context.Background(), &store.Message{
		SenderID:      client.UserID,
		ReceiverID:    cmd.ReceiverID,
		Content:       cmd.Content,
		AttachmentURL: cmd.AttachmentURL,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("sender", client.UserID).Msg("failed to persist message")
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeInternal, "failed to save message")})
		return
	}

	ev := &Event{Kind: EventMessage, Message: saved}
	h.pushToUser(saved.ReceiverID, ev)
	client.send(ev)
}

func (h *Hub) handleTyping(client *Client, cmd *Command) {
	h.typing.Set(DirectScope(client.UserID, cmd.ReceiverID), client.UserID, cmd.IsTyping)

	// Typing never echoes to the originator.
	h.pushToUser(cmd.ReceiverID, &Event{
		Kind:     EventTyping,
		UserID:   client.UserID,
		IsTyping: cmd.IsTyping,
	})
}

func (h *Hub) handleEditMessage(client *Client, cmd *Command) {
	msg, err := h.store.GetMessage(context.Background(), cmd.MessageID)
	if err != nil {
		h.sendStoreError(client, err, "failed to load message")
		return
	}
	if msg.SenderID != client.UserID {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeForbidden, "only the message owner may edit")})
		return
	}

	updated, err := h.store.EditMessage(context.Background(), cmd.MessageID, cmd.Content)
	if err != nil {
		h.sendStoreError(client, err, "failed to edit message")
		return
	}

	ev := &Event{Kind: EventMessageEdit, Message: updated}
	h.pushToUser(updated.ReceiverID, ev)
	client.send(ev)
}

func (h *Hub) handleDeleteMessage(client *Client, cmd *Command) {
	msg, err := h.store.GetMessage(context.Background(), cmd.MessageID)
	if err != nil {
		h.sendStoreError(client, err, "failed to load message")
		return
	}
	if msg.SenderID != client.UserID {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeForbidden, "only the message owner may delete")})
		return
	}

	h.removeAttachment(msg.AttachmentURL)

	if err := h.store.SoftDeleteMessage(context.Background(), cmd.MessageID); err != nil {
		h.sendStoreError(client, err, "failed to delete message")
		return
	}

	ev := &Event{Kind: EventMessageDelete, MessageID: msg.ID, UserID: client.UserID}
	h.pushToUser(msg.ReceiverID, ev)
	client.send(ev)
}

func (h *Hub) handleSendGroupMessage(client *Client, cmd *Command) {
	if cmd.Content == "" && cmd.AttachmentURL == nil {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "empty message")})
		return
	}

	member, err := h.store.IsMember(context.Background(), cmd.GroupID, client.UserID)
	if err != nil {
		h.sendStoreError(client, err, "failed to check membership")
		return
	}
	if !member {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeNotMember, "not a member of this group")})
		return
	}

	saved, err := h.store.CreateGroupMessage(context.Background(), &store.GroupMessage{
		GroupID:       cmd.GroupID,
		SenderID:      client.UserID,
		Content:       cmd.Content,
		AttachmentURL: cmd.AttachmentURL,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("sender", client.UserID).Int64("group_id", cmd.GroupID).Msg("failed to persist group message")
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeInternal, "failed to save message")})
		return
	}

	ev := &Event{Kind: EventGroupMessage, GroupMessage: saved, GroupID: saved.GroupID}
	h.fanOutGroup(saved.GroupID, client.UserID, ev)
	client.send(ev)
}

func (h *Hub) handleGroupTyping(client *Client, cmd *Command) {
	member, err := h.store.IsMember(context.Background(), cmd.GroupID, client.UserID)
	if err != nil || !member {
		// Non-member typing is silently dropped.
		return
	}

	h.typing.Set(GroupScope(cmd.GroupID), client.UserID, cmd.IsTyping)

	h.fanOutGroup(cmd.GroupID, client.UserID, &Event{
		Kind:     EventGroupTyping,
		GroupID:  cmd.GroupID,
		UserID:   client.UserID,
		IsTyping: cmd.IsTyping,
	})
}

func (h *Hub) handleEditGroupMessage(client *Client, cmd *Command) {
	msg, err := h.store.GetGroupMessage(context.Background(), cmd.MessageID)
	if err != nil {
		h.sendStoreError(client, err, "failed to load group message")
		return
	}

	// Membership is re-checked against the message's actual group, not the
	// group named in the payload.
	member, err := h.store.IsMember(context.Background(), msg.GroupID, client.UserID)
	if err != nil {
		h.sendStoreError(client, err, "failed to check membership")
		return
	}
	if !member {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeNotMember, "not a member of this group")})
		return
	}
	if msg.SenderID != client.UserID {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeForbidden, "only the message owner may edit")})
		return
	}

	updated, err := h.store.EditGroupMessage(context.Background(), cmd.MessageID, cmd.Content)
	if err != nil {
		h.sendStoreError(client, err, "failed to edit group message")
		return
	}

	ev := &Event{Kind: EventGroupMessageEdit, GroupMessage: updated, GroupID: updated.GroupID}
	h.fanOutGroup(updated.GroupID, client.UserID, ev)
	client.send(ev)
}

func (h *Hub) handleDeleteGroupMessage(client *Client, cmd *Command) {
	msg, err := h.store.GetGroupMessage(context.Background(), cmd.MessageID)
	if err != nil {
		h.sendStoreError(client, err, "failed to load group message")
		return
	}

	member, err := h.store.IsMember(context.Background(), msg.GroupID, client.UserID)
	if err != nil {
		h.sendStoreError(client, err, "failed to check membership")
		return
	}
	if !member {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeNotMember, "not a member of this group")})
		return
	}

	// Deleting is allowed for the message owner or a group admin.
	if msg.SenderID != client.UserID {
		admin, err := h.store.IsAdmin(context.Background(), msg.GroupID, client.UserID)
		if err != nil {
			h.sendStoreError(client, err, "failed to check admin flag")
			return
		}
		if !admin {
			client.send(&Event{Kind: EventError, Error: coreError(ErrCodeForbidden, "only the owner or an admin may delete")})
			return
		}
	}

	h.removeAttachment(msg.AttachmentURL)

	if err := h.store.SoftDeleteGroupMessage(context.Background(), cmd.MessageID); err != nil {
		h.sendStoreError(client, err, "failed to delete group message")
		return
	}

	ev := &Event{Kind: EventGroupMessageDelete, MessageID: msg.ID, GroupID: msg.GroupID, UserID: client.UserID}
	h.fanOutGroup(msg.GroupID, client.UserID, ev)
	client.send(ev)
}

// pushToUser delivers an event to the user's live connection; absent or
// closed targets are skipped, never queued.
func (h *Hub) pushToUser(userID int64, ev *Event) {
	if client, ok := h.registry.Resolve(userID); ok {
		client.send(ev)
	}
}

// fanOutGroup delivers an event to every live group member except the
// sender. Echoing to the sender, where the event type calls for it, is the
// caller's responsibility.
func (h *Hub) fanOutGroup(groupID, senderID int64, ev *Event) {
	members, err := h.store.ListMembers(context.Background(), groupID)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to resolve group members for fan-out")
		return
	}
	for _, member := range members {
		if member.UserID == senderID {
			continue
		}
		h.pushToUser(member.UserID, ev)
	}
}

// typingExpired is invoked by the typing tracker when an indicator lapses;
// it emits the implicit stopped-typing event to the same targets an explicit
// stop would reach.
func (h *Hub) typingExpired(scope TypingScope, userID int64) {
	if scope.GroupID != 0 {
		h.fanOutGroup(scope.GroupID, userID, &Event{
			Kind:    EventGroupTyping,
			GroupID: scope.GroupID,
			UserID:  userID,
		})
		return
	}
	h.pushToUser(scope.peerOf(userID), &Event{
		Kind:   EventTyping,
		UserID: userID,
	})
}

func (h *Hub) removeAttachment(url *string) {
	if url == nil || h.files == nil {
		return
	}
	if err := h.files.Remove(*url); err != nil {
		h.log.Warn().Err(err).Str("url", *url).Msg("failed to remove attachment file")
	}
}

func (h *Hub) sendStoreError(client *Client, err error, logMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		client.send(&Event{Kind: EventError, Error: coreError(ErrCodeMessageNotFound, "message not found")})
		return
	}
	h.log.Error().Err(err).Int64("user_id", client.UserID).Msg(logMsg)
	client.send(&Event{Kind: EventError, Error: coreError(ErrCodeInternal, "internal error")})
}
