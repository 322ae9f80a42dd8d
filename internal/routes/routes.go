package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/feetoken/internal/asset"
	"github.com/congo-pay/feetoken/internal/auth"
	"github.com/congo-pay/feetoken/internal/config"
	"github.com/congo-pay/feetoken/internal/event"
	"github.com/congo-pay/feetoken/internal/freeze"
	"github.com/congo-pay/feetoken/internal/identity"
	"github.com/congo-pay/feetoken/internal/ledger"
	"github.com/congo-pay/feetoken/internal/middleware"
	"github.com/congo-pay/feetoken/internal/token"
)

// eventStreamMaxLen bounds the Redis stream; older records are trimmed.
const eventStreamMaxLen = 100_000

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in dev, in which case in-memory stores are used.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Registry receives the token metrics and backs /metrics. A fresh
	// registry is created when nil.
	Registry *prometheus.Registry
	// Assets lists external assets the owner may recover.
	Assets *asset.Directory
}

// Setup opens the token, configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*token.Token, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}
	if d.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
		d.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	ctx := context.Background()
	eventLog := event.NewLogWithCapacity(d.Cfg.EventLogCapacity)
	tok, err := openToken(ctx, d, eventLog)
	if err != nil {
		return nil, err
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	identitySvc := identity.NewService(identityRepo)
	if d.Cfg.AdminSecret != "" {
		if err := identitySvc.EnsureRegistered(ctx, identity.Credentials{Address: d.Cfg.Token.AdminAddress(), Secret: d.Cfg.AdminSecret}); err != nil {
			return nil, fmt.Errorf("bootstrap admin credentials: %w", err)
		}
	}
	authSvc := auth.NewService(d.Cfg, identityRepo)

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d, tok, d.Registry)

	api := app.Group("/api/v1")
	if d.Cache != nil {
		api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAuthRoutes(api, auth.NewHandler(identitySvc, authSvc), middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRatePerMin))

	tokenHandler := token.NewHandler(tok, eventLog)
	protected := api.Group("", middleware.JWTAuth(authSvc))
	RegisterTokenRoutes(api, protected, tokenHandler)
	RegisterAdminRoutes(protected, tokenHandler, identity.NewHandler(identitySvc))

	return tok, nil
}

func openToken(ctx context.Context, d Deps, eventLog *event.Log) (*token.Token, error) {
	metrics, err := token.NewMetrics(d.Registry)
	if err != nil {
		return nil, fmt.Errorf("register token metrics: %w", err)
	}

	sinks := event.Fanout{eventLog, event.NewLoggerSink(d.Logger)}
	if d.Cache != nil {
		sinks = append(sinks, event.NewRedisStream(d.Cache, d.Cfg.EventStream, eventStreamMaxLen))
	}

	deps := token.Deps{
		Assets:  d.Assets,
		Sink:    sinks,
		Metrics: metrics,
		Logger:  d.Logger,
	}
	if d.DB != nil {
		db := d.DB
		deps.OpenLedger = func(opts ...ledger.Option) ledger.Ledger { return ledger.NewPostgresLedger(db, opts...) }
		deps.Frozen = freeze.NewPostgresStore(db)
		deps.Settings = token.NewPostgresSettings(db)
	} else {
		deps.OpenLedger = ledger.NewInMemory
	}

	tc := d.Cfg.Token
	return token.New(ctx, token.Config{
		Name:           tc.Name,
		Symbol:         tc.Symbol,
		Address:        tc.TokenAddress(),
		Deployer:       tc.DeployerAddress(),
		Admin:          tc.AdminAddress(),
		InitialFeeRate: tc.InitialFeeRate,
	}, deps)
}
