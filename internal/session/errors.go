package session

import "errors"

// Side table errors
var (
	ErrInvalidBinding = errors.New("binding requires connection, nickname and room")
	ErrAlreadyBound   = errors.New("connection is already bound to a room")
)
