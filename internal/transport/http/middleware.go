package http

import (
	"net"
	stdhttp "net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("client_ip", clientIP(c)).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

// clientIP resolves the caller address, honouring forwarding headers only when
// the router was configured to trust proxies. IPv4-mapped IPv6 is unmapped.
func clientIP(c *gin.Context) string {
	raw := c.ClientIP()
	if ip, err := netip.ParseAddr(raw); err == nil {
		return ip.Unmap().String()
	}
	return raw
}

// forwardedHeaders are consulted, in order, when proxies are trusted.
var forwardedHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// requestIP resolves the caller address outside gin with the same rules as
// clientIP: the first forwarded entry when trustProxy is set, else the peer.
func requestIP(r *stdhttp.Request, trustProxy bool) string {
	if trustProxy {
		for _, header := range forwardedHeaders {
			first, _, _ := strings.Cut(r.Header.Get(header), ",")
			if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
				return ip.Unmap().String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip.Unmap().String()
	}
	return host
}
