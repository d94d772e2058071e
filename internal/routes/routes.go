package routes

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bhawanibytes/ur-ec-sub001/internal/auth"
	"github.com/bhawanibytes/ur-ec-sub001/internal/config"
	"github.com/bhawanibytes/ur-ec-sub001/internal/middleware"
	"github.com/bhawanibytes/ur-ec-sub001/internal/otp"
	"github.com/bhawanibytes/ur-ec-sub001/internal/policy"
	"github.com/bhawanibytes/ur-ec-sub001/internal/proxy"
	"github.com/bhawanibytes/ur-ec-sub001/internal/session"
	"github.com/bhawanibytes/ur-ec-sub001/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all gateway routes. ctx bounds background
// maintenance started here.
func Setup(ctx context.Context, app *fiber.App, d Deps) error {
	// Middlewares.
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.Audit(d.Logger))

	// Every request passes the gate; the policy table decides who needs a
	// credential.
	codec := token.NewCodec([]byte(d.Cfg.JWTSecret))
	classifier := policy.NewClassifier(policy.DefaultRules())
	app.Use(middleware.AuthGate(classifier, codec, d.Cfg.CookieName, d.Logger))

	RegisterHealthRoutes(app, d)

	// Challenge store: Postgres when available, then Redis, then in-memory
	// for a single dev instance.
	var store otp.Store
	switch {
	case d.DB != nil:
		store = otp.NewPostgresStore(d.DB)
	case d.Cache != nil:
		store = otp.NewRedisStore(d.Cache)
	default:
		store = otp.NewMemoryStore()
	}

	dispatcher := otp.NewLoggerDispatcher(d.Logger)
	otpSvc := otp.NewService(store, dispatcher, d.Logger, otp.Params{
		CodeLength:  d.Cfg.OTPCodeLength,
		TTL:         d.Cfg.OTPTTL,
		MaxAttempts: d.Cfg.OTPMaxAttempts,
	})
	otpSvc.StartGC(ctx, d.Cfg.OTPGCInterval)

	issuer := session.NewIssuer(codec, d.Cfg.CookieName, d.Cfg.SessionTTL)
	authHandler := auth.NewHandler(otpSvc, issuer)

	api := app.Group("/api")
	rateLimiter := middleware.OTPSendRateLimit(d.Cache, 3)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Everything else rides through to the upstream resource service,
	// registered last so the local routes above match first.
	forwarder := proxy.NewForwarder(d.Cfg.UpstreamURL, d.Cfg.UpstreamTimeout, d.Logger)
	app.All("/api/*", forwarder.Forward)
	app.All("/my-account*", forwarder.Forward)

	return nil
}
