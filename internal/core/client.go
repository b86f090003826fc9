package core

import "sync"

const clientQueueSize = 32

// Client is one live transport connection as seen by the core layer.
// room is owned by the hub goroutine and must not be touched elsewhere.
type Client struct {
	ID       string
	Addr     string
	Commands chan *Command
	Events   chan *Event

	room     *Room
	done     chan struct{}
	doneOnce sync.Once
}

// NewClient constructs a client with initialized channels. addr is the
// client IP used for rate limiting and as a room creator address.
func NewClient(id, addr string) *Client {
	return &Client{
		ID:       id,
		Addr:     addr,
		Commands: make(chan *Command, clientQueueSize),
		Events:   make(chan *Event, clientQueueSize),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has unregistered the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// deliver queues an event without blocking. Events for slow consumers are dropped.
func (c *Client) deliver(event *Event) bool {
	select {
	case c.Events <- event:
		return true
	default:
		return false
	}
}
