package http

import (
	"fmt"
	stdhttp "net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/scanrelay-server/internal/config"
	"github.com/vovakirdan/scanrelay-server/internal/core"
	"github.com/vovakirdan/scanrelay-server/internal/discovery"
)

// NewServer builds the HTTP server: health, nearby room discovery, the
// websocket relay and, optionally, the static web app. The relay sits on the
// plain mux because the upgrade needs the raw ResponseWriter.
func NewServer(hub *core.Hub, roomLimiter core.Limiter, nearby *discovery.Service, cfg *config.Config, logger *zerolog.Logger) (*stdhttp.Server, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(cors.New(corsConfig(cfg.CORSOrigin)))

	if cfg.TrustProxy {
		router.ForwardedByClientIP = true
		router.RemoteIPHeaders = forwardedHeaders
		if err := router.SetTrustedProxies([]string{"0.0.0.0/0", "::/0"}); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	} else {
		router.ForwardedByClientIP = false
		if err := router.SetTrustedProxies(nil); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}

	api := NewAPIHandlers(hub, nearby, logger)
	router.GET("/health", api.Health)
	router.GET("/api/nearby-rooms", api.NearbyRooms)

	if cfg.ServeWebApp {
		router.NoRoute(staticHandler(cfg.WebAppPath))
		logger.Info().Str("path", cfg.WebAppPath).Msg("serving web app")
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, roomLimiter, acceptOriginPatterns(cfg.CORSOrigin), cfg.TrustProxy, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, nil
}

func splitOrigins(origin string) []string {
	var out []string
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func allowsAnyOrigin(origin string) bool {
	origins := splitOrigins(origin)
	return len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}
	if allowsAnyOrigin(origin) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = splitOrigins(origin)
	}
	return cfg
}

// acceptOriginPatterns turns the CORS origin setting into websocket origin
// host patterns. nil means any origin is accepted.
func acceptOriginPatterns(origin string) []string {
	if allowsAnyOrigin(origin) {
		return nil
	}
	var patterns []string
	for _, o := range splitOrigins(origin) {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
