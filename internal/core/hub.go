package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

var ErrHubStopped = errors.New("hub stopped")

type envelope struct {
	client *Client
	cmd    *Command
}

type query struct {
	fn   func(*Registry)
	done chan struct{}
}

// Hub is the single owner of room state. Every membership change and every
// relay runs on the goroutine started by Run, so handlers never interleave.
type Hub struct {
	registry *Registry
	clock    clock.Clock
	log      *zerolog.Logger

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	inbox      chan envelope
	queries    chan query
	stopped    chan struct{}
}

// NewHub creates a hub around registry. A nil registry gets a default one,
// a nil logger discards output.
func NewHub(registry *Registry, logger *zerolog.Logger) *Hub {
	if registry == nil {
		registry = NewRegistry(DefaultRoomCapacity, nil)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry:   registry,
		clock:      registry.clock,
		log:        logger,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		inbox:      make(chan envelope, 256),
		queries:    make(chan query),
		stopped:    make(chan struct{}),
	}
}

// Run processes hub traffic until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			c.markDone()
		}
		close(h.stopped)
	}()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			go h.pump(ctx, c)
		case c := <-h.unregister:
			h.disconnect(c)
		case env := <-h.inbox:
			h.handle(env.client, env.cmd)
		case q := <-h.queries:
			q.fn(h.registry)
			close(q.done)
		case <-ctx.Done():
			return
		}
	}
}

// RegisterClient makes c known to the hub and starts forwarding its commands.
// It returns once the hub has accepted c, so a later UnregisterClient is never
// processed first.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
	}
}

// UnregisterClient removes c from its room. Commands still queued for c are dropped.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Rooms returns a snapshot of every live room.
func (h *Hub) Rooms(ctx context.Context) ([]RoomInfo, error) {
	var infos []RoomInfo
	err := h.inspect(ctx, func(r *Registry) {
		infos = r.Snapshot()
	})
	return infos, err
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount(ctx context.Context) (int, error) {
	var n int
	err := h.inspect(ctx, func(r *Registry) {
		n = r.Len()
	})
	return n, err
}

func (h *Hub) inspect(ctx context.Context, fn func(*Registry)) error {
	q := query{fn: fn, done: make(chan struct{})}
	select {
	case h.queries <- q:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-q.done:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handle(c *Client, cmd *Command) {
	if _, live := h.clients[c]; !live {
		h.log.Debug().Str("client_id", c.ID).Stringer("command", cmd.Kind).Msg("dropping command from disconnected client")
		return
	}

	switch cmd.Kind {
	case CommandCreateRoom:
		h.createRoom(c)
	case CommandJoinRoom:
		h.joinRoom(c, cmd.Room)
	case CommandChangeRoom:
		h.changeRoom(c, cmd.Room)
	case CommandScanBarcode:
		h.scanBarcode(c, cmd.Scan)
	case CommandShareTemplate:
		h.shareTemplate(c, cmd.Template)
	}
}

func (h *Hub) createRoom(c *Client) {
	code, err := h.registry.GenerateCode()
	if err != nil {
		h.log.Error().Err(err).Str("client_id", c.ID).Int("rooms", h.registry.Len()).Msg("failed to create room")
		c.deliver(errorEvent(failure(CommandCreateRoom)))
		return
	}

	h.leaveCurrent(c)

	room, _ := h.registry.GetOrCreate(code, c.Addr)
	if err := h.registry.TryAddMember(room, c); err != nil {
		c.deliver(errorEvent(errRoomFull))
		return
	}
	c.room = room

	h.log.Info().Str("client_id", c.ID).Str("room", code).Msg("room created")
	c.deliver(&Event{Kind: EventRoomCode, Room: code})
}

func (h *Hub) joinRoom(c *Client, code string) {
	if !ValidRoomCode(code) {
		c.deliver(errorEvent(errInvalidRoomCode))
		return
	}

	room, ok := h.registry.Get(code)
	if !ok {
		c.deliver(errorEvent(errRoomNotFound))
		return
	}
	if c.room == room {
		c.deliver(&Event{Kind: EventRoomCode, Room: code})
		return
	}
	if err := h.registry.TryAddMember(room, c); err != nil {
		c.deliver(errorEvent(errRoomFull))
		return
	}

	h.leaveCurrent(c)
	c.room = room

	h.log.Info().Str("client_id", c.ID).Str("room", code).Int("members", room.Len()).Msg("client joined room")
	c.deliver(&Event{Kind: EventRoomCode, Room: code})
}

func (h *Hub) changeRoom(c *Client, code string) {
	if !ValidRoomCode(code) {
		c.deliver(errorEvent(errInvalidRoomCode))
		return
	}

	h.leaveCurrent(c)

	room, created := h.registry.GetOrCreate(code, c.Addr)
	if err := h.registry.TryAddMember(room, c); err != nil {
		c.deliver(errorEvent(errRoomFull))
		return
	}
	c.room = room

	h.log.Info().Str("client_id", c.ID).Str("room", code).Bool("created", created).Msg("client changed room")
	c.deliver(&Event{Kind: EventRoomCode, Room: code})
}

func (h *Hub) scanBarcode(c *Client, scan Scan) {
	if c.room == nil {
		c.deliver(errorEvent(errNotInRoom))
		return
	}
	if !validBarcode(scan.Code) {
		c.deliver(errorEvent(errInvalidBarcode))
		return
	}

	scan.Timestamp = h.clock.Now().UnixMilli()
	delivered := c.room.Broadcast(&Event{Kind: EventBarcodeScanned, Room: c.room.Code, Scan: scan}, c)

	h.log.Debug().
		Str("room", c.room.Code).
		Int("code_len", len(scan.Code)).
		Bool("template", scan.TemplateData != nil).
		Int("delivered", delivered).
		Msg("barcode relayed")
}

func (h *Hub) shareTemplate(c *Client, template json.RawMessage) {
	if c.room == nil {
		c.deliver(errorEvent(errNotInRoom))
		return
	}
	if !isJSONObject(template) {
		c.deliver(errorEvent(errInvalidTemplate))
		return
	}

	delivered := c.room.Broadcast(&Event{Kind: EventTemplateShared, Room: c.room.Code, Template: template}, c)
	h.log.Debug().Str("room", c.room.Code).Int("delivered", delivered).Msg("template relayed")
}

func (h *Hub) disconnect(c *Client) {
	if _, live := h.clients[c]; !live {
		return
	}
	h.leaveCurrent(c)
	delete(h.clients, c)
	c.markDone()
}

// leaveCurrent releases the client's membership, deleting the room if it
// becomes empty.
func (h *Hub) leaveCurrent(c *Client) {
	if c.room == nil {
		return
	}
	room := c.room
	c.room = nil
	if h.registry.RemoveMember(room, c) {
		h.log.Info().Str("room", room.Code).Msg("room deleted (empty)")
	}
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
