package types

import (
	"encoding/json"
	"time"
)

// ARCHITECTURAL DISCOVERY: Event names are the whole relay protocol.
// Client and server share the msg and typing names in both directions.
const (
	EventJoin       = "join"
	EventJoined     = "joined"
	EventJoinError  = "join_error"
	EventPeerJoined = "peer_joined"
	EventPeerLeft   = "peer_left"
	EventMsg        = "msg"
	EventInfo       = "info"
	EventTyping     = "typing"
)

// Join refusal reasons and notices sent to clients as plain strings
const (
	ReasonInvalidParameters = "room and nickname are required"
	ReasonRoomFull          = "this room allows at most 2 participants"
	ReasonKeyMismatch       = "room key does not match"
	ReasonUnexpectedKey     = "a key cannot be added to a room that is already open"
	ReasonAlreadyJoined     = "this connection has already joined a room"

	NoticeThrottled = "you are sending messages too fast, try again shortly"
)

// Envelope is one WebSocket text frame: a named event and its payload
// FUNCTIONAL DISCOVERY: Data stays raw until the router knows which payload
// shape the event carries
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Frame is the outbound counterpart of Envelope
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// JoinRequest is the client->server join payload.
// Fields are untyped because clients may send anything; the sanitizer turns
// non-strings into empty strings.
type JoinRequest struct {
	Room any `json:"room"`
	Nick any `json:"nick"`
	Key  any `json:"key,omitempty"`
}

// MessageRequest is the client->server msg payload
type MessageRequest struct {
	Room any `json:"room"`
	Text any `json:"text"`
}

// JoinedPayload acknowledges an accepted join
type JoinedPayload struct {
	Msg string `json:"msg"`
}

// MessagePayload is a relayed chat message; TS is milliseconds since epoch
type MessagePayload struct {
	Nick string `json:"nick"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// Audit event kinds recorded by the lifecycle log
const (
	AuditRoomCreated   = "room_created"
	AuditRoomDestroyed = "room_destroyed"
	AuditJoinAccepted  = "join_accepted"
	AuditJoinRefused   = "join_refused"
	AuditSendThrottled = "send_throttled"
)

// AuditEvent is one row of the room lifecycle log.
// It never carries message text or room keys.
type AuditEvent struct {
	ID        string    `json:"id" db:"id"`
	RoomID    string    `json:"room_id" db:"room_id"`
	Event     string    `json:"event" db:"event"`
	Detail    string    `json:"detail,omitempty" db:"detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Stats is a point-in-time snapshot of relay occupancy
type Stats struct {
	Rooms       int `json:"rooms"`
	Members     int `json:"members"`
	Connections int `json:"connections"`
}
