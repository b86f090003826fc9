package core

import (
	"context"
	"testing"
	"time"
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

func mustError(t *testing.T, ch <-chan *Event, code string) *Event {
	t.Helper()

	ev := mustEvent(t, ch, EventError)
	if ev.Error == nil || ev.Error.Code != code {
		t.Fatalf("expected %s error, got %+v", code, ev.Error)
	}
	return ev
}

func expectNoEvent(t *testing.T, ch <-chan *Event, wait time.Duration) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(wait):
	}
}

func startHub(t *testing.T, registry *Registry) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(registry, nil)
	go hub.Run(ctx)
	return hub
}

func newRegisteredClient(t *testing.T, hub *Hub, id, addr string) *Client {
	t.Helper()

	c := NewClient(id, addr)
	hub.RegisterClient(c)
	return c
}

// joinCode sends cmd and waits for the resulting room code.
func joinCode(t *testing.T, c *Client, cmd *Command) string {
	t.Helper()

	c.Commands <- cmd
	ev := mustEvent(t, c.Events, EventRoomCode)
	return ev.Room
}

func roomSnapshot(t *testing.T, hub *Hub) map[string]RoomInfo {
	t.Helper()

	infos, err := hub.Rooms(context.Background())
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	out := make(map[string]RoomInfo, len(infos))
	for _, info := range infos {
		out[info.Code] = info
	}
	return out
}
