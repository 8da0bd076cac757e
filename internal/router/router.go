package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"pairchat/internal/metrics"
	"pairchat/internal/room"
	"pairchat/pkg/interfaces"
	"pairchat/pkg/types"
)

// Router implements the Dispatcher interface
// ARCHITECTURAL DISCOVERY: Routing decisions live in room.Service; the router
// only decodes payloads, applies outcomes and reports them, so no transport
// write ever happens while a room lock is held
type Router struct {
	service   *room.Service
	deliverer interfaces.Deliverer
	audit     interfaces.AuditLog
	logger    zerolog.Logger
}

// NewRouter creates a dispatcher; audit may be nil when persistence is off
func NewRouter(service *room.Service, deliverer interfaces.Deliverer, audit interfaces.AuditLog, logger zerolog.Logger) *Router {
	return &Router{
		service:   service,
		deliverer: deliverer,
		audit:     audit,
		logger:    logger.With().Str("component", "router").Logger(),
	}
}

// Route handles one inbound envelope from connID
func (r *Router) Route(ctx context.Context, connID string, env *types.Envelope) error {
	switch env.Event {
	case types.EventJoin:
		// FUNCTIONAL DISCOVERY: An undecodable join payload still earns the
		// joiner a join_error instead of silence
		var req types.JoinRequest
		if err := decode(env.Data, &req); err != nil {
			req = types.JoinRequest{}
		}
		r.applyJoin(connID, r.service.Join(connID, req))
		return nil

	case types.EventMsg:
		var req types.MessageRequest
		if err := decode(env.Data, &req); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		r.applySend(r.service.SendMessage(connID, req))
		return nil

	case types.EventTyping:
		var roomRef any
		if err := decode(env.Data, &roomRef); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out := r.service.Typing(connID, roomRef)
		if out.Kind == room.OutcomeRelayed && len(out.Deliveries) > 0 {
			metrics.TypingRelayed.Inc()
		}
		r.deliver(out)
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnhandledEvent, env.Event)
	}
}

// Disconnect runs the leave path for connID
func (r *Router) Disconnect(ctx context.Context, connID string) {
	out := r.service.Disconnect(connID)
	if out.Kind != room.OutcomeLeft {
		return
	}
	if out.RoomDestroyed {
		r.record(out.RoomID, types.AuditRoomDestroyed, "")
	}
	r.refreshGauges()
	r.deliver(out)
}

func (r *Router) applyJoin(connID string, out room.Outcome) {
	switch out.Kind {
	case room.OutcomeAccepted:
		metrics.JoinsTotal.WithLabelValues(metrics.JoinAccepted).Inc()
		if out.RoomCreated {
			r.record(out.RoomID, types.AuditRoomCreated, "")
			r.refreshGauges()
		}
		r.record(out.RoomID, types.AuditJoinAccepted, "")
	case room.OutcomeRejected:
		label := JoinResult(out.Err)
		metrics.JoinsTotal.WithLabelValues(label).Inc()
		if out.RoomID != "" {
			r.record(out.RoomID, types.AuditJoinRefused, label)
		}
	}
	r.deliver(out)
}

func (r *Router) applySend(out room.Outcome) {
	switch out.Kind {
	case room.OutcomeRelayed:
		metrics.MessagesRelayed.Inc()
	case room.OutcomeThrottled:
		metrics.SendsThrottled.Inc()
		r.record(out.RoomID, types.AuditSendThrottled, "")
	}
	r.deliver(out)
}

// deliver writes every delivery of an outcome.
// FUNCTIONAL DISCOVERY: A failed delivery to one connection never blocks the
// rest; the recipient may have disconnected after the outcome was built
func (r *Router) deliver(out room.Outcome) {
	for _, d := range out.Deliveries {
		if err := r.deliverer.Deliver(d.ConnID, d.Event, d.Payload); err != nil {
			metrics.FramesDropped.Inc()
			r.logger.Debug().
				Str("conn_id", d.ConnID).
				Str("event", d.Event).
				Err(err).
				Msg("delivery failed")
		}
	}
}

func (r *Router) record(roomID, event, detail string) {
	if r.audit == nil {
		return
	}
	if err := r.audit.RecordEvent(&types.AuditEvent{RoomID: roomID, Event: event, Detail: detail}); err != nil {
		r.logger.Debug().Str("room_id", roomID).Str("event", event).Err(err).Msg("audit event not recorded")
	}
}

func (r *Router) refreshGauges() {
	rooms, _ := r.service.Stats()
	metrics.RoomsActive.Set(float64(rooms))
}

// JoinResult maps a join refusal to its metrics label
func JoinResult(err error) string {
	switch {
	case err == nil:
		return metrics.JoinAccepted
	case errors.Is(err, room.ErrRoomFull):
		return metrics.JoinRoomFull
	case errors.Is(err, room.ErrKeyMismatch):
		return metrics.JoinKeyMismatch
	case errors.Is(err, room.ErrUnexpectedKey):
		return metrics.JoinUnexpectedKey
	case errors.Is(err, room.ErrAlreadyJoined):
		return metrics.JoinAlreadyJoined
	default:
		return metrics.JoinInvalid
	}
}

// decode unmarshals an event payload; a missing payload decodes as null
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return json.Unmarshal(data, v)
}
