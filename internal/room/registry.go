package room

import (
	"sort"
	"sync"
	"time"
)

// Registry maps room ids to rooms for one relay instance.
// ARCHITECTURAL DISCOVERY: Registry is an owned value, not a package global,
// so tests can run independent relays side by side
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	now   func() time.Time
}

// NewRegistry creates an empty registry; a nil clock falls back to time.Now
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		rooms: make(map[string]*Room),
		now:   now,
	}
}

// GetOrCreate returns the room registered under id, creating a keyless,
// empty room when none exists
func (g *Registry) GetOrCreate(id string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, _ := g.getOrCreateLocked(id)
	return r
}

// Get returns the room registered under id
func (g *Registry) Get(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, exists := g.rooms[id]
	return r, exists
}

// Remove deletes the room registered under id and reports whether it existed
func (g *Registry) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[id]
	if !exists {
		return false
	}
	r.mu.Lock()
	g.removeLocked(r)
	r.mu.Unlock()
	return true
}

// Len returns the number of registered rooms
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// IDs returns the registered room ids in sorted order
func (g *Registry) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.rooms))
	for id := range g.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats returns room and member totals
func (g *Registry) Stats() (rooms, members int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, r := range g.rooms {
		members += r.MemberCount()
	}
	return len(g.rooms), members
}

// getOrCreateLocked requires g.mu held for writing
func (g *Registry) getOrCreateLocked(id string) (*Room, bool) {
	if r, exists := g.rooms[id]; exists {
		return r, false
	}
	r := newRoom(id, g.now())
	g.rooms[id] = r
	return r, true
}

// removeLocked requires g.mu held for writing and r.mu held
func (g *Registry) removeLocked(r *Room) {
	if current, exists := g.rooms[r.id]; exists && current == r {
		delete(g.rooms, r.id)
	}
	r.closed = true
}

// lockRoom resolves id under the read lock and returns the room with its own
// lock held. The registry lock is released before returning, so callers must
// not take it again while holding the room lock.
func (g *Registry) lockRoom(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, exists := g.rooms[id]
	if !exists {
		return nil, false
	}
	r.mu.Lock()
	return r, true
}
