package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pairchat/internal/api"
	"pairchat/internal/config"
	"pairchat/internal/database"
	"pairchat/internal/room"
	"pairchat/internal/router"
	"pairchat/internal/session"
	"pairchat/internal/websocket"
	dbconfig "pairchat/pkg/database"
)

// Application coordinates all system components
// ARCHITECTURAL DISCOVERY: Initialization follows strict dependency order:
// Database -> Sessions/Rooms -> Service -> Registry -> Router -> Handler -> API -> HTTP
type Application struct {
	config     *config.Config
	logger     zerolog.Logger
	dbManager  *database.Manager
	service    *room.Service
	registry   *websocket.Registry
	apiServer  *api.Server
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewApplication creates an application with every component initialized
func NewApplication(cfg *config.Config, logger zerolog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: Audit database (foundation layer, migrations applied by the manager)
	dbManager, err := database.NewManager(databaseConfig(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}

	// STEP 2: Room state: session side table, room registry, state machine
	sessions := session.NewManager()
	rooms := room.NewRegistry(time.Now)
	service := room.NewService(rooms, sessions, logger)

	// STEP 3: Connection registry doubles as the frame deliverer
	registry := websocket.NewRegistry()

	// STEP 4: Router turns inbound events into state changes and frames
	eventRouter := router.NewRouter(service, registry, dbManager, logger)

	// STEP 5: WebSocket handler runs one read pump per connection
	wsHandler := websocket.NewHandler(registry, eventRouter, websocketOptions(cfg.WebSocket), logger)

	// STEP 6: HTTP surface
	apiServer := api.NewServer(api.Deps{
		Stats:       service,
		Connections: registry,
		Sessions:    sessions,
		Audit:       dbManager,
		WebSocket:   wsHandler.HandleWebSocket,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      apiServer,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &Application{
		config:     cfg,
		logger:     logger.With().Str("component", "app").Logger(),
		dbManager:  dbManager,
		service:    service,
		registry:   registry,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// databaseConfig maps the audit settings onto a database configuration.
// FUNCTIONAL DISCOVERY: In-memory and on-disk databases need different pool
// settings, so the profile is picked from the path
func databaseConfig(c config.DatabaseConfig) *dbconfig.Config {
	dbCfg := dbconfig.DefaultConfig()
	dbCfg.DatabasePath = c.Path
	if !dbCfg.InMemory() {
		dbCfg = dbconfig.FileConfig(c.Path)
	}
	dbCfg.Timeout = c.Timeout
	dbCfg.QueueSize = c.QueueSize
	return dbCfg
}

func websocketOptions(c config.WebSocketConfig) websocket.Options {
	return websocket.Options{
		PingInterval:    c.PingInterval,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		SendBuffer:      c.BufferSize,
		MaxMessageSize:  c.MaxMessageSize,
		ReadBufferSize:  c.ReadBufferSize,
		WriteBufferSize: c.WriteBufferSize,
	}
}

// Handler exposes the full HTTP surface, mainly for in-process tests
func (app *Application) Handler() http.Handler {
	return app.apiServer
}

// Start binds the listen address and serves in the background.
// A bind failure is returned directly; later serve errors are logged.
func (app *Application) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}

	app.mu.Lock()
	app.listener = ln
	app.mu.Unlock()

	app.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("env", app.config.Env).
		Msg("starting pairchat relay")

	go func() {
		if err := app.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the application
// FUNCTIONAL DISCOVERY: Reverse dependency order: HTTP -> connections -> database.
// Closing connections ends every read pump, which runs the normal disconnect path
func (app *Application) Stop(ctx context.Context) error {
	app.logger.Info().Msg("shutting down pairchat relay")

	var errs []error

	// STEP 1: Stop accepting new connections
	if err := app.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	// STEP 2: Hijacked WebSocket connections are not tracked by Shutdown
	app.registry.CloseAll()
	app.waitForDrain(ctx)

	// STEP 3: Flush and close the audit log
	if err := app.dbManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}

	app.logger.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}

// waitForDrain waits for read pumps to unregister their connections so their
// disconnect audit events reach the database before it closes
func (app *Application) waitForDrain(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for app.registry.Count() > 0 {
		select {
		case <-ctx.Done():
			app.logger.Warn().Int("connections", app.registry.Count()).Msg("shutdown deadline reached with open connections")
			return
		case <-ticker.C:
		}
	}
}

// GetAddr returns the bound address once started, else the configured one
func (app *Application) GetAddr() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.listener != nil {
		return app.listener.Addr().String()
	}
	return app.httpServer.Addr
}
