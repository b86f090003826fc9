// Package discovery finds rooms opened from the same local network as the
// caller, using a coarse address prefix instead of real subnet math.
package discovery

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/scanrelay-server/internal/core"
)

// RoomLister provides a snapshot of live rooms.
type RoomLister interface {
	Rooms(ctx context.Context) ([]core.RoomInfo, error)
}

// NearbyRoom is one discovery result.
type NearbyRoom struct {
	Code        string
	MemberCount int
	Age         time.Duration
}

// Service answers nearby-room lookups.
type Service struct {
	rooms   RoomLister
	limiter core.Limiter
	clock   clock.Clock
}

// NewService builds a discovery service. A nil limiter disables rate limiting
// and a nil clock uses wall time.
func NewService(rooms RoomLister, limiter core.Limiter, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{rooms: rooms, limiter: limiter, clock: clk}
}

// ListNearby returns live rooms whose creator shares the requester's subnet
// key, newest first. A *ratelimit.RejectedError is returned unchanged when the
// requester is over budget.
func (s *Service) ListNearby(ctx context.Context, requesterAddr string) ([]NearbyRoom, error) {
	if s.limiter != nil {
		if _, err := s.limiter.Consume(ctx, requesterAddr); err != nil {
			return nil, err
		}
	}

	infos, err := s.rooms.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	key := SubnetKey(requesterAddr)
	now := s.clock.Now()

	nearby := make([]NearbyRoom, 0)
	for _, info := range infos {
		if SubnetKey(info.CreatorAddr) != key {
			continue
		}
		nearby = append(nearby, NearbyRoom{
			Code:        info.Code,
			MemberCount: info.Members,
			Age:         now.Sub(info.CreatedAt),
		})
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		if nearby[i].Age != nearby[j].Age {
			return nearby[i].Age < nearby[j].Age
		}
		return nearby[i].Code < nearby[j].Code
	})
	return nearby, nil
}

// SubnetKey reduces an address to its first three IPv4 octets or its first
// four IPv6 groups. IPv6 addresses are expanded first, so "::"-compressed and
// zero-padded spellings of one /64 share a key. IPv4-mapped IPv6 addresses
// count as IPv4. Strings that do not parse as an address are returned unchanged.
func SubnetKey(addr string) string {
	ip, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return addr
	}
	ip = ip.Unmap()

	if ip.Is4() {
		b := ip.As4()
		return strconv.Itoa(int(b[0])) + "." + strconv.Itoa(int(b[1])) + "." + strconv.Itoa(int(b[2]))
	}

	b := ip.As16()
	groups := make([]string, 4)
	for i := range groups {
		groups[i] = strconv.FormatUint(uint64(b[2*i])<<8|uint64(b[2*i+1]), 16)
	}
	return strings.Join(groups, ":")
}
