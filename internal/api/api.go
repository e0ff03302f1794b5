package api

import (
	"context"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"agent-host/internal/a2a"
	"agent-host/internal/card"
	"agent-host/internal/config"
)

// Dispatcher handles raw JSON-RPC request bodies for an agent.
type Dispatcher interface {
	Dispatch(ctx context.Context, agentID int64, body []byte) a2a.Response
}

// CardResolver resolves published agent cards.
type CardResolver interface {
	Resolve(ctx context.Context, q card.Query) (*a2a.AgentCard, error)
}

// Server holds the API server components.
type Server struct {
	app        *fiber.App
	config     *config.Config
	dispatcher Dispatcher
	cards      CardResolver
	metrics    http.Handler
	logger     *log.Logger
	accessLog  io.Writer
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes handler on GET /metrics.
func WithMetrics(handler http.Handler) Option {
	return func(s *Server) { s.metrics = handler }
}

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAccessLog sets where the HTTP access log is written. Defaults to stdout.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) { s.accessLog = w }
}

// New creates a new API server.
func New(cfg *config.Config, dispatcher Dispatcher, cards CardResolver, opts ...Option) *Server {
	server := &Server{
		config:     cfg,
		dispatcher: dispatcher,
		cards:      cards,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(server)
	}

	app := fiber.New(fiber.Config{
		AppName:               "Agent Host",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())

	loggerCfg := logger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} | ${path}\n",
	}
	if server.accessLog != nil {
		loggerCfg.Output = server.accessLog
	}
	app.Use(logger.New(loggerCfg))

	server.app = app
	server.setupRoutes()

	return server
}

// Start begins listening on the configured host and port.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.config.Addr())
	return s.app.Listen(s.config.Addr())
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
