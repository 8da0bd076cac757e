package session

import (
	"sync"
	"time"
)

// Session is the chat metadata bound to one connection after a join
// FUNCTIONAL DISCOVERY: Nickname and RoomID are immutable for the
// connection's lifetime once bound
type Session struct {
	ConnID   string    `json:"conn_id"`
	Nickname string    `json:"nickname"`
	RoomID   string    `json:"room_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Manager is the side table connection id -> Session.
// ARCHITECTURAL DISCOVERY: The transport connection carries no chat state;
// everything the relay needs about a participant lives here
type Manager struct {
	sessions map[string]*Session // connID -> Session
	mu       sync.RWMutex
}

// NewManager creates an empty side table
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Bind records that connID joined roomID as nickname
func (m *Manager) Bind(connID, nickname, roomID string, joinedAt time.Time) error {
	if connID == "" || nickname == "" || roomID == "" {
		return ErrInvalidBinding
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[connID]; exists {
		return ErrAlreadyBound
	}

	m.sessions[connID] = &Session{
		ConnID:   connID,
		Nickname: nickname,
		RoomID:   roomID,
		JoinedAt: joinedAt,
	}
	return nil
}

// Lookup returns a copy of the session bound to connID
func (m *Manager) Lookup(connID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[connID]
	if !exists {
		return Session{}, false
	}
	return *s, true
}

// Unbind removes and returns the session bound to connID
// Idempotent: unbinding an unknown connection reports false
func (m *Manager) Unbind(connID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[connID]
	if !exists {
		return Session{}, false
	}
	delete(m.sessions, connID)
	return *s, true
}

// Count returns the number of bound connections
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetStats returns side table statistics
func (m *Manager) GetStats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make(map[string]struct{})
	for _, s := range m.sessions {
		rooms[s.RoomID] = struct{}{}
	}

	return map[string]int{
		"bound_connections": len(m.sessions),
		"rooms_referenced":  len(rooms),
	}
}
