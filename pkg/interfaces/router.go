package interfaces

import (
	"context"

	"pairchat/pkg/types"
)

// Dispatcher turns decoded inbound envelopes into relay operations.
// TECHNICAL DISCOVERY: Unknown events and malformed payloads are not errors
// for the connection; the dispatcher drops them and the read loop continues
type Dispatcher interface {
	// Route handles one inbound envelope from connID
	Route(ctx context.Context, connID string, env *types.Envelope) error

	// Disconnect runs the leave path for connID; called once per connection
	Disconnect(ctx context.Context, connID string)
}
