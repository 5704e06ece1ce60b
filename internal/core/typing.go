package core

import (
	"sync"
	"time"
)

// DefaultTypingTTL is the inactivity window after which a typing indicator
// expires without an explicit stopped-typing event.
const DefaultTypingTTL = 3 * time.Second

// TypingScope identifies one conversation for typing state: either a direct
// peer pair or a group.
type TypingScope struct {
	GroupID int64 // zero for direct scopes
	A, B    int64 // direct pair with A < B; zero for group scopes
}

// DirectScope returns the scope for the conversation between two users.
func DirectScope(u1, u2 int64) TypingScope {
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	return TypingScope{A: u1, B: u2}
}

// GroupScope returns the scope for a group conversation.
func GroupScope(groupID int64) TypingScope {
	return TypingScope{GroupID: groupID}
}

// peerOf returns the other member of a direct scope.
func (s TypingScope) peerOf(userID int64) int64 {
	if s.A == userID {
		return s.B
	}
	return s.A
}

// TypingTracker maintains per-scope sets of currently-typing users with
// timeout-driven expiry. It exclusively owns its timers; Stop and ClearUser
// cancel outstanding timers so no callback fires into torn-down state.
type TypingTracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	expired func(scope TypingScope, userID int64)
	timers  map[TypingScope]map[int64]*time.Timer
	stopped bool
}

// NewTypingTracker constructs a tracker. onExpired is invoked (from a timer
// goroutine) when a user's indicator lapses without an explicit stop; it may
// be nil.
func NewTypingTracker(ttl time.Duration, onExpired func(scope TypingScope, userID int64)) *TypingTracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingTracker{
		ttl:     ttl,
		expired: onExpired,
		timers:  make(map[TypingScope]map[int64]*time.Timer),
	}
}

// Set records that userID is (or is no longer) typing in scope. Starting to
// type (re)arms the expiry timer; stopping cancels it immediately.
func (t *TypingTracker) Set(scope TypingScope, userID int64, isTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	if !isTyping {
		t.removeLocked(scope, userID)
		return
	}

	if old, ok := t.timers[scope][userID]; ok {
		old.Stop()
	}
	if t.timers[scope] == nil {
		t.timers[scope] = make(map[int64]*time.Timer)
	}

	var timer *time.Timer
	timer = time.AfterFunc(t.ttl, func() {
		t.mu.Lock()
		// The timer may have been replaced or canceled since it was armed.
		if t.timers[scope][userID] != timer {
			t.mu.Unlock()
			return
		}
		t.removeLocked(scope, userID)
		t.mu.Unlock()

		if t.expired != nil {
			t.expired(scope, userID)
		}
	})
	t.timers[scope][userID] = timer
}

// TypingIn returns the users currently marked typing in scope.
func (t *TypingTracker) TypingIn(scope TypingScope) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := make([]int64, 0, len(t.timers[scope]))
	for userID := range t.timers[scope] {
		users = append(users, userID)
	}
	return users
}

// ClearUser cancels every pending indicator for userID across all scopes
// without emitting expiry fan-out. Called on connection teardown.
func (t *TypingTracker) ClearUser(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for scope := range t.timers {
		t.removeLocked(scope, userID)
	}
}

// Stop cancels all outstanding timers. The tracker accepts no further state
// after Stop.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	for scope, users := range t.timers {
		for userID, timer := range users {
			timer.Stop()
			delete(users, userID)
		}
		delete(t.timers, scope)
	}
}

func (t *TypingTracker) removeLocked(scope TypingScope, userID int64) {
	if timer, ok := t.timers[scope][userID]; ok {
		timer.Stop()
		delete(t.timers[scope], userID)
		if len(t.timers[scope]) == 0 {
			delete(t.timers, scope)
		}
	}
}
