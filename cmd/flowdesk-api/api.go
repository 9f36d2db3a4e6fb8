// Package main provides the Flowdesk API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/flowdesk/pkg/eventbus"
	"github.com/dukex/flowdesk/pkg/persistence"
	"github.com/dukex/flowdesk/pkg/services"
	"github.com/dukex/flowdesk/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger    *slog.Logger
	templates *services.Template
	sessions  *services.Sessions
	validate  *validator.Validate
}

// NewAPI wires the template and session services. eventBus and tracer may be nil.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
	tracer trace.Tracer,
	sessionsConfig services.SessionsConfig,
) *API {
	templates := services.NewTemplate(persistence, eventBus, tracer, logger)

	return &API{
		logger:    logger,
		templates: templates,
		sessions:  services.NewSessions(templates, eventBus, logger, sessionsConfig),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.templates, a.sessions, a.validate)

	app := fiber.New(fiber.Config{
		AppName:     "Flowdesk API",
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowdesk API")
	})

	web.Routes(app, handlers)

	return app
}

// Start runs the session reaper and serves HTTP until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	if err := a.sessions.Start(ctx); err != nil {
		return err
	}
	defer a.sessions.Stop()

	app := a.App()

	go func() {
		<-ctx.Done()

		if err := app.ShutdownWithContext(context.WithoutCancel(ctx)); err != nil {
			a.logger.Error("Failed to shutdown API server", "error", err)
		}
	}()

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
}
