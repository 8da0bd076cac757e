package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pairchat/pkg/interfaces"
	"pairchat/pkg/types"
)

// Handler upgrades HTTP requests and runs one read pump per connection
// ARCHITECTURAL DISCOVERY: Clean separation of WebSocket handling from relay
// logic; every inbound frame goes to the Dispatcher and nowhere else
type Handler struct {
	registry   *Registry
	dispatcher interfaces.Dispatcher
	upgrader   websocket.Upgrader
	opts       Options
	logger     zerolog.Logger
}

// NewHandler creates a WebSocket handler with dependency injection
func NewHandler(registry *Registry, dispatcher interfaces.Dispatcher, opts Options, logger zerolog.Logger) *Handler {
	opts = opts.withDefaults()
	return &Handler{
		registry:   registry,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			// FUNCTIONAL DISCOVERY: Browser origin is enforced by CORS on the
			// HTTP surface; the relay itself accepts any origin
			CheckOrigin:      func(r *http.Request) bool { return true },
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   opts.ReadBufferSize,
			WriteBufferSize:  opts.WriteBufferSize,
		},
		opts:   opts,
		logger: logger.With().Str("component", "websocket").Logger(),
	}
}

// HandleWebSocket upgrades the request and starts the connection lifecycle
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response
		h.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	wsConn := NewConnection(conn, h.opts)
	if err := h.registry.RegisterConnection(wsConn); err != nil {
		h.logger.Error().Err(err).Msg("failed to register connection")
		_ = wsConn.Close()
		return
	}

	h.logger.Debug().Str("conn_id", wsConn.ID()).Str("remote_addr", r.RemoteAddr).Msg("connection opened")

	go h.handleConnection(wsConn)
}

// handleConnection owns the read side of one connection until it fails.
// TECHNICAL DISCOVERY: Inbound events and the final disconnect run on this one
// goroutine, so a connection's join can never race its own disconnect
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.dispatcher.Disconnect(context.Background(), conn.ID())
		h.registry.UnregisterConnection(conn)
		_ = conn.Close()
		h.logger.Debug().Str("conn_id", conn.ID()).Msg("connection closed")
	}()

	conn.conn.SetReadLimit(h.opts.MaxMessageSize)
	if err := conn.conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	})

	go h.pingLoop(conn)

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug().Str("conn_id", conn.ID()).Err(err).Msg("websocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		env, err := types.DecodeEnvelope(data)
		if err != nil {
			h.logger.Debug().Str("conn_id", conn.ID()).Err(err).Msg("inbound frame ignored")
			continue
		}
		if err := h.dispatcher.Route(conn.ctx, conn.ID(), env); err != nil {
			h.logger.Debug().Str("conn_id", conn.ID()).Str("event", env.Event).Err(err).Msg("inbound event dropped")
		}
	}
}

// pingLoop keeps idle connections alive
// FUNCTIONAL DISCOVERY: WriteControl is safe alongside the writer goroutine,
// so pings bypass the bounded send buffer and are never dropped
func (h *Handler) pingLoop(conn *Connection) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.opts.WriteTimeout)); err != nil {
				_ = conn.Close()
				return
			}
		case <-conn.Done():
			return
		}
	}
}
