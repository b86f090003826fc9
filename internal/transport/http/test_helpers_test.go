package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/scanrelay-server/internal/config"
	"github.com/vovakirdan/scanrelay-server/internal/core"
	"github.com/vovakirdan/scanrelay-server/internal/discovery"
	"github.com/vovakirdan/scanrelay-server/internal/proto"
	"github.com/vovakirdan/scanrelay-server/internal/ratelimit"
)

type testEnv struct {
	server *httptest.Server
	hub    *core.Hub
	clock  *clock.Mock
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.RateLimit.Store = config.StoreMemory
	if mutate != nil {
		mutate(&cfg)
	}

	mock := clock.NewMock()
	mock.Set(time.UnixMilli(1_700_000_000_000))

	store := ratelimit.NewMemoryStore(mock)
	roomLimiter := ratelimit.New(store, config.RoomKeyPrefix, cfg.RateLimit.RoomPoints, cfg.RateLimit.RoomWindow)
	discoveryLimiter := ratelimit.New(store, config.DiscoveryKeyPrefix, cfg.RateLimit.DiscoveryPoints, cfg.RateLimit.DiscoveryWindow)

	hub := core.NewHub(core.NewRegistry(cfg.MaxRoomClients, mock), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	disabledLogger := zerolog.New(nil).Level(zerolog.Disabled)
	nearby := discovery.NewService(hub, discoveryLimiter, mock)
	server := mustServer(t, hub, roomLimiter, nearby, &cfg, &disabledLogger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})

	return &testEnv{server: ts, hub: hub, clock: mock}
}

func mustServer(t *testing.T, hub *core.Hub, roomLimiter core.Limiter, nearby *discovery.Service, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	t.Helper()

	server, err := NewServer(hub, roomLimiter, nearby, cfg, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	ctx  context.Context
}

func (e *testEnv) dial(t *testing.T) *wsClient {
	t.Helper()
	return e.dialWithHeader(t, nil)
}

func (e *testEnv) dialWithHeader(t *testing.T, header http.Header) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	return &wsClient{t: t, conn: conn, ctx: ctx}
}

func (c *wsClient) send(eventType string, data any) {
	c.t.Helper()

	in := proto.Inbound{Type: eventType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			c.t.Fatalf("marshal %s: %v", eventType, err)
		}
		in.Data = raw
	}
	if err := wsjson.Write(c.ctx, c.conn, in); err != nil {
		c.t.Fatalf("send %s: %v", eventType, err)
	}
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Code string          `json:"code"`
}

func (c *wsClient) read() frame {
	c.t.Helper()

	var f frame
	if err := wsjson.Read(c.ctx, c.conn, &f); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return f
}

func (c *wsClient) expect(eventType string) frame {
	c.t.Helper()

	f := c.read()
	if f.Type != eventType {
		c.t.Fatalf("expected %s, got %s (%s)", eventType, f.Type, f.Data)
	}
	return f
}

func (c *wsClient) expectRoomCode() string {
	c.t.Helper()

	var code string
	if err := json.Unmarshal(c.expect(proto.OutboundTypeRoomCode).Data, &code); err != nil {
		c.t.Fatalf("decode room code: %v", err)
	}
	return code
}

func (c *wsClient) expectError(message string) {
	c.t.Helper()

	var got string
	if err := json.Unmarshal(c.expect(proto.OutboundTypeError).Data, &got); err != nil {
		c.t.Fatalf("decode error: %v", err)
	}
	if got != message {
		c.t.Fatalf("error = %q, want %q", got, message)
	}
}

// expectSilence asserts that nothing arrives within wait.
func (c *wsClient) expectSilence(wait time.Duration) {
	c.t.Helper()

	ctx, cancel := context.WithTimeout(c.ctx, wait)
	defer cancel()

	_, data, err := c.conn.Read(ctx)
	if err == nil {
		c.t.Fatalf("unexpected frame: %s", data)
	}
}

func waitForRooms(t *testing.T, hub *core.Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := hub.RoomCount(context.Background())
		if err == nil && n == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room count never reached %d", want)
}
