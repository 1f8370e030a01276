package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kivu-labs/authd/internal/account"
	"github.com/kivu-labs/authd/internal/auth"
	"github.com/kivu-labs/authd/internal/config"
	"github.com/kivu-labs/authd/internal/middleware"
	"github.com/kivu-labs/authd/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var repo account.Repository
	if d.DB != nil {
		repo = account.NewPostgresRepository(d.DB)
	} else {
		repo = account.NewMemoryRepository()
	}

	svc, err := auth.NewService(repo, []byte(d.Cfg.JWTSecret), d.Cfg.TokenTTL, d.Cfg.PasswordMinLength)
	if err != nil {
		return err
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	handler := auth.NewHandler(svc, notifier, d.Logger)

	RegisterAuthRoutes(app, handler, svc)

	return nil
}
