package core

import (
	"context"

	"github.com/pulsechat/pulsechat-server/internal/store"
	"github.com/rs/zerolog"
)

// Presence writes a user's online flag through to the user store whenever
// registry membership changes. Presence is best-effort: a failed write is
// logged and never rolls back the registry change.
type Presence struct {
	users store.UserStore
	log   *zerolog.Logger
}

// NewPresence constructs a presence tracker over the given user store.
func NewPresence(users store.UserStore, logger *zerolog.Logger) *Presence {
	return &Presence{users: users, log: logger}
}

// MarkOnline records that the user has a live connection.
func (p *Presence) MarkOnline(ctx context.Context, userID int64) {
	if p.users == nil {
		return
	}
	if err := p.users.SetUserOnline(ctx, userID, true); err != nil {
		p.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to mark user online")
	}
}

// MarkOffline records that the user's connection closed.
func (p *Presence) MarkOffline(ctx context.Context, userID int64) {
	if p.users == nil {
		return
	}
	if err := p.users.SetUserOnline(ctx, userID, false); err != nil {
		p.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to mark user offline")
	}
}
