package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/scanrelay-server/internal/config"
	"github.com/vovakirdan/scanrelay-server/internal/core"
	"github.com/vovakirdan/scanrelay-server/internal/discovery"
	"github.com/vovakirdan/scanrelay-server/internal/ratelimit"
	transporthttp "github.com/vovakirdan/scanrelay-server/internal/transport/http"
)

const redisPingTimeout = 3 * time.Second

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	redis           *redis.Client
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	var store ratelimit.Store
	switch cfg.RateLimit.Store {
	case config.StoreMemory:
		store = ratelimit.NewMemoryStore(nil)
		logger.Warn().Msg("rate limits kept in process memory; they are not shared between instances")
	default:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = ratelimit.NewRedisStore(a.redis)

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			// The client reconnects on its own; requests fail with a generic error until then.
			logger.Error().Err(err).Str("addr", cfg.Redis.Addr()).Msg("redis unreachable")
		} else {
			logger.Info().Str("addr", cfg.Redis.Addr()).Msg("redis connected")
		}
		cancel()
	}

	roomLimiter := ratelimit.New(store, config.RoomKeyPrefix, cfg.RateLimit.RoomPoints, cfg.RateLimit.RoomWindow)
	discoveryLimiter := ratelimit.New(store, config.DiscoveryKeyPrefix, cfg.RateLimit.DiscoveryPoints, cfg.RateLimit.DiscoveryWindow)

	a.hub = core.NewHub(core.NewRegistry(cfg.MaxRoomClients, nil), logger)
	nearby := discovery.NewService(a.hub, discoveryLimiter, nil)

	gin.SetMode(gin.ReleaseMode)
	server, err := transporthttp.NewServer(a.hub, roomLimiter, nearby, cfg, logger)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("http server: %w", err)
	}
	a.server = server

	return a, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("relay server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)

		// Hijacked websocket connections are not tracked by Shutdown; stopping
		// the hub ends their write loops.
		stopHub()
		a.cleanup()
		if err != nil {
			return err
		}
		return <-serverErr
	}
}

// cleanup closes the redis client.
func (a *App) cleanup() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis client")
		} else {
			a.log.Info().Msg("redis connection closed")
		}
	}
}
