package core

import (
	"context"
	"testing"
	"time"

	"github.com/pulsechat/pulsechat-server/internal/store"
	"github.com/pulsechat/pulsechat-server/internal/store/memory"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func newTestHub(t *testing.T, opts Options) (*Hub, *memory.MemoryStore) {
	t.Helper()

	st := memory.New()
	hub := NewHub(st, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	return hub, st
}

func mustUser(t *testing.T, st *memory.MemoryStore, username string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), username, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// connectAs attaches a fresh client and authenticates it as userID.
func connectAs(t *testing.T, hub *Hub, connID string, userID int64) *Client {
	t.Helper()

	client := NewClient(connID)
	hub.Attach(client)
	client.Commands <- &Command{Kind: CommandAuth, UserID: userID}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if live, ok := hub.Registry().Resolve(userID); ok && live == client {
			return client
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("connection %s never registered for user %d", connID, userID)
	return nil
}
