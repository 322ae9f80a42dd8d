package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/feetoken/internal/asset"
	"github.com/congo-pay/feetoken/internal/config"
	"github.com/congo-pay/feetoken/internal/middleware"
	"github.com/congo-pay/feetoken/internal/routes"
	"github.com/congo-pay/feetoken/internal/token"
)

// Server wraps the Fiber application and the token it serves.
type Server struct {
	app   *fiber.App
	cfg   config.Config
	token *token.Token
}

// Option customizes the server built by New.
type Option func(*routes.Deps)

// WithAssets lets the owner recover the external assets registered in dir
// through POST /api/v1/admin/recover. Without it no asset is recoverable.
func WithAssets(dir *asset.Directory) Option {
	return func(d *routes.Deps) { d.Assets = dir }
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// db and cache may be nil in dev.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger, opts ...Option) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	deps := routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger}
	for _, opt := range opts {
		opt(&deps)
	}
	tok, err := routes.Setup(app, deps)
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, token: tok}, nil
}

// Token returns the token served by s.
func (s *Server) Token() *token.Token {
	return s.token
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
