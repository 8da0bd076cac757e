package room

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pairchat/internal/ratelimit"
	"pairchat/internal/sanitize"
	"pairchat/internal/session"
	"pairchat/pkg/types"
)

// Service is the room session state machine: join, message, typing and
// disconnect for every room in one Registry.
// ARCHITECTURAL DISCOVERY: Lock order is Registry -> Room -> session table.
// Join and Disconnect hold the registry write lock for their whole critical
// section so creation, membership change and destruction are one step;
// message and typing only need the room lock
type Service struct {
	rooms    *Registry
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	now      func() time.Time
	logger   zerolog.Logger
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces the wall clock used for timestamps and rate limiting
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLimiter replaces the default 8-per-10s limiter
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

// NewService creates the state machine over rooms and sessions
func NewService(rooms *Registry, sessions *session.Manager, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		rooms:    rooms,
		sessions: sessions,
		now:      time.Now,
		logger:   logger.With().Str("component", "room").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewDefaultLimiter(s.now)
	}
	return s
}

// Join admits connID into the requested room or refuses it.
// FUNCTIONAL DISCOVERY: Refusals go to the joiner only and leave both the
// room and the side table untouched; no room is looked up for invalid input
func (s *Service) Join(connID string, req types.JoinRequest) Outcome {
	roomID := sanitize.RoomID(req.Room)
	nick := sanitize.Nickname(req.Nick)
	key := sanitize.Key(req.Key)

	if roomID == "" || nick == "" {
		return s.refuse(connID, roomID, nick, ErrInvalidParameters)
	}
	if _, bound := s.sessions.Lookup(connID); bound {
		return s.refuse(connID, roomID, nick, ErrAlreadyJoined)
	}

	s.rooms.mu.Lock()
	defer s.rooms.mu.Unlock()

	r, created := s.rooms.getOrCreateLocked(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.admit(key); err != nil {
		if created && len(r.members) == 0 {
			s.rooms.removeLocked(r)
		}
		return s.refuse(connID, roomID, nick, err)
	}

	if err := s.sessions.Bind(connID, nick, roomID, s.now()); err != nil {
		if created && len(r.members) == 0 {
			s.rooms.removeLocked(r)
		}
		return s.refuse(connID, roomID, nick, ErrAlreadyJoined)
	}
	r.members[connID] = nick

	ack := fmt.Sprintf("%s joined room %s", nick, roomID)
	if r.key != "" {
		ack += " (key active)"
	}

	out := Outcome{
		Kind:        OutcomeAccepted,
		RoomID:      roomID,
		Nickname:    nick,
		RoomCreated: created,
		Deliveries: []Delivery{{
			ConnID:  connID,
			Event:   types.EventJoined,
			Payload: types.JoinedPayload{Msg: ack},
		}},
	}
	for _, peer := range r.others(connID) {
		out.Deliveries = append(out.Deliveries, Delivery{ConnID: peer, Event: types.EventPeerJoined, Payload: nick})
	}

	s.logger.Info().
		Str("room_id", roomID).
		Str("conn_id", connID).
		Int("members", len(r.members)).
		Bool("keyed", r.key != "").
		Bool("created", created).
		Msg("join accepted")

	return out
}

// SendMessage relays text from connID to the other member of its room.
// Missing rooms and unbound connections are silently dropped.
func (s *Service) SendMessage(connID string, req types.MessageRequest) Outcome {
	sess, r, ok := s.lockMemberRoom(connID, req.Room)
	if !ok {
		return dropped()
	}
	defer r.mu.Unlock()

	text := sanitize.Text(req.Text)

	if s.limiter.Throttled(&r.sends, connID) {
		s.logger.Warn().
			Str("room_id", sess.RoomID).
			Str("conn_id", connID).
			Msg("send throttled")
		return Outcome{
			Kind:     OutcomeThrottled,
			RoomID:   sess.RoomID,
			Nickname: sess.Nickname,
			Deliveries: []Delivery{{
				ConnID:  connID,
				Event:   types.EventInfo,
				Payload: types.NoticeThrottled,
			}},
		}
	}

	at := s.limiter.Record(&r.sends, connID)
	payload := types.MessagePayload{Nick: sess.Nickname, Text: text, TS: at.UnixMilli()}

	out := Outcome{Kind: OutcomeRelayed, RoomID: sess.RoomID, Nickname: sess.Nickname}
	for _, peer := range r.others(connID) {
		out.Deliveries = append(out.Deliveries, Delivery{ConnID: peer, Event: types.EventMsg, Payload: payload})
	}
	return out
}

// Typing relays a transient typing signal from connID to its peer.
// No rate limiting and no recorded state.
func (s *Service) Typing(connID string, roomRef any) Outcome {
	sess, r, ok := s.lockMemberRoom(connID, roomRef)
	if !ok {
		return dropped()
	}
	defer r.mu.Unlock()

	out := Outcome{Kind: OutcomeRelayed, RoomID: sess.RoomID, Nickname: sess.Nickname}
	for _, peer := range r.others(connID) {
		out.Deliveries = append(out.Deliveries, Delivery{ConnID: peer, Event: types.EventTyping, Payload: sess.Nickname})
	}
	return out
}

// Disconnect removes connID from its room, notifies the remaining member and
// destroys the room once it is empty. A connection that never joined is a no-op.
func (s *Service) Disconnect(connID string) Outcome {
	sess, bound := s.sessions.Unbind(connID)
	if !bound {
		return dropped()
	}

	s.rooms.mu.Lock()
	defer s.rooms.mu.Unlock()

	r, exists := s.rooms.rooms[sess.RoomID]
	if !exists {
		s.logger.Warn().Str("room_id", sess.RoomID).Str("conn_id", connID).Msg("disconnect for a room that no longer exists")
		return dropped()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, member := r.members[connID]; !member {
		s.logger.Warn().Str("room_id", sess.RoomID).Str("conn_id", connID).Msg("disconnect for a connection missing from its room")
		return dropped()
	}
	delete(r.members, connID)

	out := Outcome{Kind: OutcomeLeft, RoomID: sess.RoomID, Nickname: sess.Nickname}
	for _, peer := range r.others(connID) {
		out.Deliveries = append(out.Deliveries, Delivery{ConnID: peer, Event: types.EventPeerLeft, Payload: sess.Nickname})
	}

	if len(r.members) == 0 {
		s.rooms.removeLocked(r)
		out.RoomDestroyed = true
	}

	s.logger.Info().
		Str("room_id", sess.RoomID).
		Str("conn_id", connID).
		Int("members", len(r.members)).
		Bool("destroyed", out.RoomDestroyed).
		Msg("member left")

	return out
}

// Stats returns occupancy totals
func (s *Service) Stats() (rooms, members int) {
	return s.rooms.Stats()
}

// lockMemberRoom resolves the bound session of connID and returns its room
// locked. A payload room reference that names a different room drops the
// event; only the bound room is ever relayed to.
func (s *Service) lockMemberRoom(connID string, roomRef any) (session.Session, *Room, bool) {
	sess, bound := s.sessions.Lookup(connID)
	if !bound {
		return session.Session{}, nil, false
	}
	if ref := sanitize.RoomID(roomRef); ref != "" && ref != sess.RoomID {
		return session.Session{}, nil, false
	}

	r, exists := s.rooms.lockRoom(sess.RoomID)
	if !exists {
		return session.Session{}, nil, false
	}
	if _, member := r.members[connID]; !member {
		r.mu.Unlock()
		return session.Session{}, nil, false
	}
	return sess, r, true
}

func (s *Service) refuse(connID, roomID, nick string, err error) Outcome {
	s.logger.Info().
		Str("room_id", roomID).
		Str("conn_id", connID).
		Err(err).
		Msg("join refused")

	return Outcome{
		Kind:     OutcomeRejected,
		Err:      err,
		RoomID:   roomID,
		Nickname: nick,
		Deliveries: []Delivery{{
			ConnID:  connID,
			Event:   types.EventJoinError,
			Payload: Reason(err),
		}},
	}
}

// Reason maps a join refusal to the string sent in join_error
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidParameters):
		return types.ReasonInvalidParameters
	case errors.Is(err, ErrRoomFull):
		return types.ReasonRoomFull
	case errors.Is(err, ErrKeyMismatch):
		return types.ReasonKeyMismatch
	case errors.Is(err, ErrUnexpectedKey):
		return types.ReasonUnexpectedKey
	case errors.Is(err, ErrAlreadyJoined):
		return types.ReasonAlreadyJoined
	default:
		return types.ReasonInvalidParameters
	}
}
