package room

import (
	"sort"
	"sync"
	"time"

	"pairchat/internal/ratelimit"
)

// Capacity is the fixed number of participants a room admits
const Capacity = 2

// Room is the state of one chat room.
// ARCHITECTURAL DISCOVERY: Every field below mu is only read or written while
// mu is held; the Registry lock is always taken before a Room lock
type Room struct {
	id        string
	createdAt time.Time

	mu      sync.Mutex
	key     string            // empty until the first occupant supplies one; never changes afterwards
	members map[string]string // connID -> nickname, 0..Capacity entries
	sends   ratelimit.Log     // recent accepted sends, pruned before every check
	closed  bool              // set when the registry drops the room
}

func newRoom(id string, now time.Time) *Room {
	return &Room{
		id:        id,
		createdAt: now,
		members:   make(map[string]string, Capacity),
	}
}

// ID returns the registry key
func (r *Room) ID() string {
	return r.id
}

// Snapshot is a read-only copy of a room's state
type Snapshot struct {
	ID        string    `json:"room_id"`
	HasKey    bool      `json:"has_key"`
	Members   []string  `json:"members"` // connection ids, sorted
	CreatedAt time.Time `json:"created_at"`
	Closed    bool      `json:"closed"`
}

// Snapshot copies the room state under its lock
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := make([]string, 0, len(r.members))
	for connID := range r.members {
		members = append(members, connID)
	}
	sort.Strings(members)

	return Snapshot{
		ID:        r.id,
		HasKey:    r.key != "",
		Members:   members,
		CreatedAt: r.createdAt,
		Closed:    r.closed,
	}
}

// MemberCount returns the current occupancy
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// admit applies the key-gating rules for a new occupant. Caller holds mu.
func (r *Room) admit(key string) error {
	switch n := len(r.members); {
	case n >= Capacity:
		return ErrRoomFull
	case n == 0:
		if key != "" {
			r.key = key
		}
		return nil
	default:
		if r.key != "" && key != r.key {
			return ErrKeyMismatch
		}
		if r.key == "" && key != "" {
			return ErrUnexpectedKey
		}
		return nil
	}
}

// others returns the connection ids of every member except connID. Caller holds mu.
func (r *Room) others(connID string) []string {
	peers := make([]string, 0, len(r.members))
	for id := range r.members {
		if id != connID {
			peers = append(peers, id)
		}
	}
	sort.Strings(peers)
	return peers
}
