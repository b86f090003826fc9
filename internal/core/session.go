package core

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/scanrelay-server/internal/ratelimit"
)

// Limiter spends one point of a per-key budget.
type Limiter interface {
	Consume(ctx context.Context, key string) (ratelimit.Result, error)
}

// Session mediates one connection's requests. Room mutations are rate limited
// per client address before they reach the hub; relays go straight through.
// A Session is used from a single goroutine (the connection reader).
type Session struct {
	client  *Client
	limiter Limiter
	log     *zerolog.Logger
}

// NewSession binds a registered client to the room mutation limiter.
// A nil limiter allows everything.
func NewSession(client *Client, limiter Limiter, logger *zerolog.Logger) *Session {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Session{client: client, limiter: limiter, log: logger}
}

// Client returns the underlying client.
func (s *Session) Client() *Client {
	return s.client
}

// CreateRoom asks the hub for a fresh room.
func (s *Session) CreateRoom(ctx context.Context) error {
	return s.mutate(ctx, &Command{Kind: CommandCreateRoom})
}

// JoinRoom joins an existing room.
func (s *Session) JoinRoom(ctx context.Context, code string) error {
	return s.mutate(ctx, &Command{Kind: CommandJoinRoom, Room: code})
}

// ChangeRoom moves to code, creating the room when needed.
func (s *Session) ChangeRoom(ctx context.Context, code string) error {
	return s.mutate(ctx, &Command{Kind: CommandChangeRoom, Room: code})
}

// ScanBarcode relays a scan to the rest of the room.
func (s *Session) ScanBarcode(ctx context.Context, scan Scan) error {
	return s.submit(ctx, &Command{Kind: CommandScanBarcode, Scan: scan})
}

// ShareTemplate relays a template to the rest of the room.
func (s *Session) ShareTemplate(ctx context.Context, template json.RawMessage) error {
	return s.submit(ctx, &Command{Kind: CommandShareTemplate, Template: template})
}

// Reject reports a request that failed validation before reaching the hub.
func (s *Session) Reject(err *CoreError) {
	s.client.deliver(errorEvent(err))
}

func (s *Session) mutate(ctx context.Context, cmd *Command) error {
	if s.limiter != nil {
		_, err := s.limiter.Consume(ctx, s.client.Addr)
		// The connection may have gone away while the store was answering.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if s.closed() {
			return nil
		}
		if err != nil {
			if ratelimit.IsRejected(err) {
				s.log.Debug().Str("client_id", s.client.ID).Str("addr", s.client.Addr).Stringer("command", cmd.Kind).Msg("rate limited")
				s.client.deliver(errorEvent(errRateLimited))
				return nil
			}
			s.log.Error().Err(err).Str("client_id", s.client.ID).Stringer("command", cmd.Kind).Msg("rate limit check failed")
			s.client.deliver(errorEvent(failure(cmd.Kind)))
			return nil
		}
	}
	return s.submit(ctx, cmd)
}

func (s *Session) submit(ctx context.Context, cmd *Command) error {
	select {
	case s.client.Commands <- cmd:
		return nil
	case <-s.client.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) closed() bool {
	select {
	case <-s.client.done:
		return true
	default:
		return false
	}
}
