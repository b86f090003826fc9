package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/scanrelay-server/internal/core"
	"github.com/vovakirdan/scanrelay-server/internal/proto"
	"github.com/vovakirdan/scanrelay-server/internal/utils"
)

// Templates travel in a single frame, so allow more than the library default.
const maxFrameBytes = 1 << 20

// WSHandler upgrades HTTP connections and bridges them to a core.Session.
type WSHandler struct {
	hub            *core.Hub
	limiter        core.Limiter
	originPatterns []string
	trustProxy     bool
	log            *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. Empty originPatterns accept
// any origin. trustProxy takes the client IP from forwarding headers.
func NewWSHandler(hub *core.Hub, limiter core.Limiter, originPatterns []string, trustProxy bool, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, limiter: limiter, originPatterns: originPatterns, trustProxy: trustProxy, log: logger}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	addr := requestIP(r, h.trustProxy)
	opts := &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
	if len(h.originPatterns) == 0 {
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.log.Error().Err(err).Str("client_ip", addr).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(maxFrameBytes)

	client := core.NewClient(utils.NewID(), addr)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	log := h.log.With().Str("client_id", client.ID).Str("client_ip", addr).Logger()
	log.Info().Msg("client connected")
	defer log.Info().Msg("client disconnected")

	session := core.NewSession(client, h.limiter, &log)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, &log)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &log)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, core.ErrHubStopped) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, log *zerolog.Logger) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("read ws inbound")
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			log.Debug().Err(err).Int("bytes", len(data)).Msg("malformed frame")
			session.Reject(errMalformedMessage)
			continue
		}

		req, err := proto.Decode(inbound)
		if err != nil {
			log.Debug().Str("type", inbound.Type).Msg("unknown event")
			session.Reject(errUnknownEvent)
			continue
		}
		if err := dispatch(ctx, session, req); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, log *zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				log.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return core.ErrHubStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
