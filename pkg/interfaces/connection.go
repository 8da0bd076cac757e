package interfaces

// Connection is one live client transport.
// ARCHITECTURAL DISCOVERY: The relay core never sees this type; only the
// websocket layer and the Deliverer behind it do
type Connection interface {
	// ID returns the opaque connection identifier assigned at accept time
	ID() string

	// WriteJSON queues v for the single writer goroutine (thread-safe)
	// FUNCTIONAL DISCOVERY: A full outbound buffer drops the frame instead of
	// blocking the caller, so a slow peer cannot stall the relay
	WriteJSON(v interface{}) error

	// Close tears down the transport; safe to call more than once
	Close() error
}

// Deliverer sends one outbound event to one connection by id
type Deliverer interface {
	Deliver(connID, event string, payload interface{}) error
}
