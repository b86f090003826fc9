package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/scanrelay-server/internal/core"
	"github.com/vovakirdan/scanrelay-server/internal/discovery"
	"github.com/vovakirdan/scanrelay-server/internal/ratelimit"
)

const (
	msgRateLimited     = "Rate limit exceeded. Please try again later."
	msgDiscoveryFailed = "Failed to discover rooms"
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	hub    *core.Hub
	nearby *discovery.Service
	log    *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, nearby *discovery.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:    hub,
		nearby: nearby,
		log:    logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check body.
type HealthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

// NearbyRoomResponse is one discovered room. Age is in milliseconds.
type NearbyRoomResponse struct {
	Code        string `json:"code"`
	ClientCount int    `json:"clientCount"`
	Age         int64  `json:"age"`
}

// NearbyRoomsResponse wraps the discovery result.
type NearbyRoomsResponse struct {
	Rooms []NearbyRoomResponse `json:"rooms"`
}

// Health reports liveness and the number of live rooms.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	rooms, err := h.hub.RoomCount(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Rooms: rooms})
}

// NearbyRooms lists rooms created from the caller's network.
// GET /api/nearby-rooms
func (h *APIHandlers) NearbyRooms(c *gin.Context) {
	ip := clientIP(c)

	rooms, err := h.nearby.ListNearby(c.Request.Context(), ip)
	if err != nil {
		if ratelimit.IsRejected(err) {
			h.log.Debug().Str("client_ip", ip).Msg("discovery rate limited")
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: msgRateLimited})
			return
		}
		h.log.Error().Err(err).Str("client_ip", ip).Msg("failed to discover rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgDiscoveryFailed})
		return
	}

	response := NearbyRoomsResponse{Rooms: make([]NearbyRoomResponse, 0, len(rooms))}
	for _, room := range rooms {
		response.Rooms = append(response.Rooms, NearbyRoomResponse{
			Code:        room.Code,
			ClientCount: room.MemberCount,
			Age:         room.Age.Milliseconds(),
		})
	}

	h.log.Debug().Str("client_ip", ip).Int("room_count", len(rooms)).Msg("nearby rooms listed")
	c.JSON(http.StatusOK, response)
}
