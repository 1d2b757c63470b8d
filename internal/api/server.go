// Package api exposes the HTTP surface: session upload, metadata, arrow
// retrieval, search, payload lookup, and operational endpoints.
package api

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/secstore/secstore/internal/decode"
	"github.com/secstore/secstore/internal/ingest"
	"github.com/secstore/secstore/internal/logger"
	"github.com/secstore/secstore/internal/query"
	"github.com/secstore/secstore/internal/session"
)

// Server is the HTTP API server.
type Server struct {
	app      *fiber.App
	store    *session.Store
	registry *decode.Registry
	ingester *ingest.Ingester
	engine   *query.Engine
	logger   zerolog.Logger
	host     string
	port     int
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadSize   int64
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8000,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxUploadSize:   256 << 20,
	}
}

// NewServer creates the HTTP server with Fiber and registers all routes.
func NewServer(config *ServerConfig, store *session.Store, registry *decode.Registry, ingester *ingest.Ingester, engine *query.Engine, logger zerolog.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	app := fiber.New(fiber.Config{
		AppName:               "secstore",
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		IdleTimeout:           config.IdleTimeout,
		BodyLimit:             int(config.MaxUploadSize),
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		// Uploads may be gzip-compressed; handlers decompress manually.
		DisablePreParseMultipartForm: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Content-Encoding",
	}))

	app.Use(securityHeaders())
	app.Use(requestLogger(logger))

	s := &Server{
		app:      app,
		store:    store,
		registry: registry,
		ingester: ingester,
		engine:   engine,
		logger:   logger.With().Str("component", "api-server").Logger(),
		host:     config.Host,
		port:     config.Port,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.healthHandler)
	s.app.Get("/ready", s.readyHandler)
	s.app.Get("/api/v1/logs", s.logsHandler)

	s.app.Post("/api/v1/sessions", s.createSessionHandler)
	s.app.Get("/api/v1/sessions/:id/meta", s.sessionMetaHandler)
	s.app.Get("/api/v1/sessions/:id/messages.arrow", s.sessionMessagesHandler)
	s.app.Post("/api/v1/sessions/:id/search", s.sessionSearchHandler)
	s.app.Get("/api/v1/sessions/:id/payload/:row_id", s.sessionPayloadHandler)
	s.app.Delete("/api/v1/sessions/:id", s.deleteSessionHandler)
}

var startTime = time.Now()

func (s *Server) healthHandler(c *fiber.Ctx) error {
	uptime := time.Since(startTime)
	return c.JSON(fiber.Map{
		"status":     "ok",
		"time":       time.Now().UTC().Format(time.RFC3339),
		"uptime":     uptime.String(),
		"uptime_sec": uptime.Seconds(),
	})
}

func (s *Server) readyHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "ready",
		"time":       time.Now().UTC().Format(time.RFC3339),
		"uptime_sec": time.Since(startTime).Seconds(),
	})
}

// logsHandler returns recent application logs from the ring buffer.
func (s *Server) logsHandler(c *fiber.Ctx) error {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	level := c.Query("level")

	sinceMinutes := 60
	if sm := c.Query("since_minutes"); sm != "" {
		if parsed, err := strconv.Atoi(sm); err == nil && parsed > 0 && parsed <= 1440 {
			sinceMinutes = parsed
		}
	}

	entries := logger.GetBuffer().Recent(limit, level, sinceMinutes)

	return c.JSON(fiber.Map{
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"count":         len(entries),
		"limit":         limit,
		"level_filter":  level,
		"since_minutes": sinceMinutes,
		"logs":          entries,
	})
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start() error {
	s.logger.Info().
		Str("host", s.host).
		Int("port", s.port).
		Msg("Starting secstore HTTP server")

	go func() {
		addr := fmt.Sprintf("%s:%d", s.host, s.port)
		if err := s.app.Listen(addr); err != nil {
			s.logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.logger.Info().Msg("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

// WaitForShutdown blocks until a shutdown signal is received.
func (s *Server) WaitForShutdown(shutdownTimeout time.Duration) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	s.logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	if err := s.Shutdown(shutdownTimeout); err != nil {
		s.logger.Error().Err(err).Msg("Shutdown error")
	}
}

// GetApp returns the underlying Fiber app, used by tests.
func (s *Server) GetApp() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("Request error")

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func securityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		return c.Next()
	}
}

// requestLogger logs failed requests only.
func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if status >= 400 {
			logEvent := logger.Warn()
			if status >= 500 {
				logEvent = logger.Error()
			}

			logEvent.
				Str("method", c.Method()).
				Str("path", c.Path()).
				Int("status", status).
				Dur("duration_ms", time.Since(start)).
				Str("ip", c.IP()).
				Msg("HTTP request error")
		}

		return err
	}
}
