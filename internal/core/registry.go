package core

import (
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	minGeneratedCode = 1000
	codeSpace        = 9000

	// DefaultRoomCapacity bounds the members of a single room.
	DefaultRoomCapacity = 50
)

var roomCodePattern = regexp.MustCompile(`^[0-9]{4}$`)

// ValidRoomCode reports whether code is exactly four ASCII digits.
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// RoomInfo is a read-only copy of room state handed out of the hub goroutine.
type RoomInfo struct {
	Code        string
	Members     int
	CreatorAddr string
	CreatedAt   time.Time
}

// Registry maps live room codes to rooms. It is not safe for concurrent use;
// the hub goroutine is its only caller.
type Registry struct {
	rooms    map[string]*Room
	capacity int
	clock    clock.Clock
	intn     func(n int) int
}

// NewRegistry builds an empty registry. A capacity <= 0 uses DefaultRoomCapacity
// and a nil clock uses wall time.
func NewRegistry(capacity int, clk clock.Clock) *Registry {
	if capacity <= 0 {
		capacity = DefaultRoomCapacity
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		capacity: capacity,
		clock:    clk,
		intn:     rand.IntN,
	}
}

// GenerateCode draws codes from 1000..9999 until one is not live.
func (r *Registry) GenerateCode() (string, error) {
	if len(r.rooms) >= codeSpace {
		return "", ErrNoCodesAvailable
	}
	for {
		code := strconv.Itoa(minGeneratedCode + r.intn(codeSpace))
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
}

// Get returns the live room for code.
func (r *Registry) Get(code string) (*Room, bool) {
	room, ok := r.rooms[code]
	return room, ok
}

// GetOrCreate returns the room for code, creating it for creatorAddr when absent.
func (r *Registry) GetOrCreate(code, creatorAddr string) (*Room, bool) {
	if room, ok := r.rooms[code]; ok {
		return room, false
	}
	room := NewRoom(code, creatorAddr, r.clock.Now())
	r.rooms[code] = room
	return room, true
}

// TryAddMember adds c to room unless the room is at capacity.
func (r *Registry) TryAddMember(room *Room, c *Client) error {
	if room.Has(c) {
		return nil
	}
	if room.Len() >= r.capacity {
		return ErrRoomFull
	}
	room.AddClient(c)
	return nil
}

// RemoveMember removes c from room and drops the room once it is empty.
// It reports whether the room was deleted.
func (r *Registry) RemoveMember(room *Room, c *Client) bool {
	room.RemoveClient(c)
	if !room.Empty() {
		return false
	}
	if current, ok := r.rooms[room.Code]; ok && current == room {
		delete(r.rooms, room.Code)
	}
	return true
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	return len(r.rooms)
}

// Capacity returns the member limit per room.
func (r *Registry) Capacity() int {
	return r.capacity
}

// Snapshot copies the state of every live room, ordered by code.
func (r *Registry) Snapshot() []RoomInfo {
	infos := make([]RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		infos = append(infos, RoomInfo{
			Code:        room.Code,
			Members:     room.Len(),
			CreatorAddr: room.CreatorAddr,
			CreatedAt:   room.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Code < infos[j].Code })
	return infos
}
