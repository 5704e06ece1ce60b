package core

import "sync"

// Client is one live connection as seen by the core layer.
// UserID is zero until the connection authenticates; the client's own hub
// worker is the only goroutine that touches it, teardown included.
type Client struct {
	ID     string
	UserID int64

	// Commands is the connection's inbox. The transport read loop produces
	// into it; exactly one hub worker consumes from it, so commands from the
	// same connection never interleave.
	Commands chan *Command

	// Events is drained by the transport write loop. Pushes are non-blocking;
	// a slow consumer loses events rather than stalling a sender.
	Events chan *Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 16),
		Events:   make(chan *Event, 16),
		done:     make(chan struct{}),
	}
}

// Close marks the client terminal. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed when the client has been shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// send delivers an event without blocking. Events to closed or slow clients
// are dropped; the persisted store remains the consistency backstop.
func (c *Client) send(ev *Event) {
	select {
	case <-c.done:
	case c.Events <- ev:
	default:
	}
}
