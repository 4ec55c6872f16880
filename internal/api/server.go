// Package api exposes the session, panels and page layout over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Config holds HTTP server settings.
type Config struct {
	AppName      string
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps the Fiber application.
type Server struct {
	app *fiber.App
	cfg Config
}

// New instantiates the HTTP server and delegates route wiring to Setup.
func New(cfg Config, deps Deps) (*Server, error) {
	if cfg.AppName == "" {
		cfg.AppName = "solana-token-exchange"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	// Mutating requests wait for on-chain confirmation.
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 90 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: errorHandler,
	})

	if err := Setup(app, deps); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// App returns the underlying Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
