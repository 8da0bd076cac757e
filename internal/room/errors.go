package room

import "errors"

// Join refusals. Each one is reported to the joining connection only and
// leaves room state untouched.
var (
	ErrInvalidParameters = errors.New("room and nickname are required")
	ErrRoomFull          = errors.New("room is full")
	ErrKeyMismatch       = errors.New("room key does not match")
	ErrUnexpectedKey     = errors.New("key supplied for an open room without a key")
	ErrAlreadyJoined     = errors.New("connection already joined a room")
)
