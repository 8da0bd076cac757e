package websocket

import (
	"fmt"
	"sync"

	"pairchat/internal/metrics"
	"pairchat/pkg/interfaces"
	"pairchat/pkg/types"
)

// Registry tracks live connections by id and implements interfaces.Deliverer
// ARCHITECTURAL DISCOVERY: Pure connection management without business logic;
// which connection is in which room is the session table's concern
type Registry struct {
	mu          sync.RWMutex // TECHNICAL DISCOVERY: RWMutex optimizes for read-heavy delivery lookups
	connections map[string]*Connection
}

// NewRegistry creates a new connection registry
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
	}
}

// RegisterConnection adds conn under its id
func (r *Registry) RegisterConnection(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[conn.ID()]; exists {
		return ErrDuplicateConnection
	}
	r.connections[conn.ID()] = conn
	metrics.ConnectionsActive.Set(float64(len(r.connections)))
	return nil
}

// UnregisterConnection removes conn; idempotent
// RACE CONDITION FIX: Only removes the entry if it is this exact instance
func (r *Registry) UnregisterConnection(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if registered, exists := r.connections[conn.ID()]; !exists || registered != conn {
		return
	}
	delete(r.connections, conn.ID())
	metrics.ConnectionsActive.Set(float64(len(r.connections)))
}

// GetConnection returns the live connection for id
func (r *Registry) GetConnection(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.connections[id]
	return conn, exists
}

// Deliver frames payload under event and queues it on connID
// FUNCTIONAL DISCOVERY: Lookup and enqueue never block, so the router can
// deliver to many connections from one goroutine
func (r *Registry) Deliver(connID, event string, payload interface{}) error {
	conn, exists := r.GetConnection(connID)
	if !exists {
		return fmt.Errorf("%w: %s", interfaces.ErrConnectionNotFound, connID)
	}
	return conn.WriteJSON(types.NewFrame(event, payload))
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// CloseAll closes every registered connection; their read pumps then run
// the normal disconnect path
func (r *Registry) CloseAll() {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// GetStats returns registry statistics for monitoring
func (r *Registry) GetStats() map[string]int {
	return map[string]int{
		"total_connections": r.Count(),
	}
}
