package interfaces

import (
	"context"

	"pairchat/pkg/types"
)

// AuditLog persists room lifecycle events.
// ARCHITECTURAL DISCOVERY: Only lifecycle metadata is stored. Message text,
// nicknames and keys never reach this interface
type AuditLog interface {
	// RecordEvent queues evt for persistence without blocking the caller
	RecordEvent(evt *types.AuditEvent) error

	// RecentEvents returns up to limit events, newest first
	RecentEvents(ctx context.Context, limit int) ([]*types.AuditEvent, error)

	// HealthCheck verifies database connectivity
	HealthCheck(ctx context.Context) error

	// Close drains pending writes and closes the database
	Close() error
}
