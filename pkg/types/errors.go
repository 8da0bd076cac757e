package types

import "errors"

// ARCHITECTURAL DISCOVERY: Frame-level errors are logged by the caller and
// never close the connection
var (
	ErrInvalidEnvelope = errors.New("frame is not a JSON event envelope")
	ErrMissingEvent    = errors.New("envelope has no event name")
	ErrUnknownEvent    = errors.New("unknown client event")
	ErrInvalidAudit    = errors.New("audit event requires an event kind")
)
