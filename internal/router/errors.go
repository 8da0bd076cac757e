package router

import "errors"

// Router-level errors. None of them closes the connection; the read loop
// logs and continues.
var (
	ErrMalformedPayload = errors.New("event payload does not match its event")
	ErrUnhandledEvent   = errors.New("event has no handler")
)
