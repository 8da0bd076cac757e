package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	// ARCHITECTURAL DISCOVERY: Import SQLite driver but only reference in connection string
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	dbconfig "pairchat/pkg/database"
	"pairchat/pkg/interfaces"
	"pairchat/pkg/types"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Manager implements the AuditLog interface over SQLite
type Manager struct {
	db           *sql.DB
	config       *dbconfig.Config
	writeChannel chan writeOperation // TECHNICAL: Single-writer pattern for SQLite
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex // TECHNICAL: Protect closed status
	now          func() time.Time
	logger       zerolog.Logger
}

// writeOperation is one queued write; result is nil for fire-and-forget writes
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the database, applies migrations and starts the writer
func NewManager(config *dbconfig.Config, logger zerolog.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// FUNCTIONAL DISCOVERY: Idle connections must outlive quiet periods or an
	// in-memory database disappears with its last connection
	db.SetMaxOpenConns(config.MaxConnections)
	db.SetMaxIdleConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := applySQLiteOptimizations(db, config.InMemory()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
	}

	migrator := dbconfig.NewMigrationManager(db, dbconfig.Migrations())
	if err := migrator.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrator.ValidateSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	manager := &Manager{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, config.QueueSize),
		shutdown:     make(chan struct{}),
		now:          time.Now,
		logger:       logger.With().Str("component", "database").Logger(),
	}

	// ARCHITECTURAL DISCOVERY: Single-writer goroutine prevents SQLite write contention
	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			m.apply(op)

		case <-m.shutdown:
			// Drain what was queued before Close
			for {
				select {
				case op := <-m.writeChannel:
					m.apply(op)
				default:
					m.logger.Debug().Msg("database write loop shutting down")
					return
				}
			}
		}
	}
}

// apply runs op, retrying once on failure
func (m *Manager) apply(op writeOperation) {
	err := op.operation(m.db)
	if err != nil {
		m.logger.Warn().Err(err).Msg("database write failed, retrying")
		if err = op.operation(m.db); err != nil {
			m.logger.Error().Err(err).Msg("database write failed after retry")
		}
	}
	if op.result != nil {
		op.result <- err
	}
}

// enqueue hands op to the writer without blocking
func (m *Manager) enqueue(op writeOperation) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return interfaces.ErrAuditClosed
	}

	select {
	case m.writeChannel <- op:
		return nil
	default:
		return ErrQueueFull
	}
}

// executeWrite queues a write operation and waits for completion
func (m *Manager) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	result := make(chan error, 1)
	if err := m.enqueue(writeOperation{operation: operation, result: result}); err != nil {
		return err
	}

	timer := time.NewTimer(m.config.Timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	}
}

// RecordEvent queues evt for insertion and returns immediately
// FUNCTIONAL DISCOVERY: Audit is best-effort; a full queue drops the event
// rather than slowing down the relay
func (m *Manager) RecordEvent(evt *types.AuditEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	row := *evt
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = m.now().UTC()
	}

	return m.enqueue(writeOperation{operation: func(db *sql.DB) error {
		return insertEvent(db, &row)
	}})
}

// Flush waits until every event queued before the call has been written
func (m *Manager) Flush(ctx context.Context) error {
	return m.executeWrite(ctx, func(*sql.DB) error { return nil })
}

func insertEvent(db *sql.DB, evt *types.AuditEvent) error {
	_, err := db.Exec(`
		INSERT INTO room_events (id, room_id, event, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, evt.ID, evt.RoomID, evt.Event, evt.Detail, evt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert room event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first
// ARCHITECTURAL DISCOVERY: Read operations can be concurrent - no need for writeChannel
func (m *Manager) RecentEvents(ctx context.Context, limit int) ([]*types.AuditEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, room_id, event, detail, created_at
		FROM room_events
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query room events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*types.AuditEvent, 0, limit)
	for rows.Next() {
		var evt types.AuditEvent
		if err := rows.Scan(&evt.ID, &evt.RoomID, &evt.Event, &evt.Detail, &evt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room event: %w", err)
		}
		events = append(events, &evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room events: %w", err)
	}

	return events, nil
}

// HealthCheck validates database connectivity
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM room_events").Scan(&count); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}

	return nil
}

// Close drains queued writes and closes the database
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// applySQLiteOptimizations applies performance pragmas
func applySQLiteOptimizations(db *sql.DB, inMemory bool) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}
	return nil
}
