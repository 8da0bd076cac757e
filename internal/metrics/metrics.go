package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Join results used as the result label of JoinsTotal
const (
	JoinAccepted      = "accepted"
	JoinInvalid       = "invalid_parameters"
	JoinRoomFull      = "room_full"
	JoinKeyMismatch   = "key_mismatch"
	JoinUnexpectedKey = "unexpected_key"
	JoinAlreadyJoined = "already_joined"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_rooms_active",
			Help: "Rooms currently registered",
		},
	)

	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_connections_active",
			Help: "Open WebSocket connections",
		},
	)

	JoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_joins_total",
			Help: "Join attempts by result",
		},
		[]string{"result"},
	)

	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairchat_messages_relayed_total",
			Help: "Chat messages accepted for relay",
		},
	)

	TypingRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairchat_typing_relayed_total",
			Help: "Typing signals relayed",
		},
	)

	SendsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairchat_sends_throttled_total",
			Help: "Chat messages refused by the per-room rate limiter",
		},
	)

	// Delivery metrics
	FramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairchat_frames_dropped_total",
			Help: "Outbound frames dropped because a connection buffer was full or closed",
		},
	)
)
