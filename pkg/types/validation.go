package types

import (
	"encoding/json"
	"fmt"
)

// DecodeEnvelope parses a raw text frame into an Envelope
// FUNCTIONAL DISCOVERY: Only client->server events are accepted here, so a
// client cannot inject joined/peer_left frames into the dispatcher
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.Event == "" {
		return nil, ErrMissingEvent
	}
	if !IsInboundEvent(env.Event) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return &env, nil
}

// IsInboundEvent reports whether a client may send the named event
func IsInboundEvent(event string) bool {
	switch event {
	case EventJoin, EventMsg, EventTyping:
		return true
	default:
		return false
	}
}

// NewFrame builds an outbound frame
func NewFrame(event string, data any) Frame {
	return Frame{Event: event, Data: data}
}

// Validate checks the minimum an audit row needs
func (e *AuditEvent) Validate() error {
	if e.Event == "" {
		return ErrInvalidAudit
	}
	return nil
}
