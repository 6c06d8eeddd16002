// Package main provides the Caelex compliance API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/engine"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/eventbus"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/lock"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/protocol"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/registry"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/services"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	engine      *engine.Engine
	contexts    protocol.ContextProvider
	permissions protocol.PermissionChecker
	locks       lock.Manager
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eng *engine.Engine,
	contexts protocol.ContextProvider,
	permissions protocol.PermissionChecker,
	locks lock.Manager,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		engine:      eng,
		contexts:    contexts,
		permissions: permissions,
		locks:       locks,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	complianceService := services.NewCompliance(
		a.persistence,
		a.registry,
		a.engine,
		a.contexts,
		a.permissions,
		a.locks,
		a.eventBus,
		a.logger,
	)

	handlers := web.NewAPIHandlers(complianceService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Caelex API")
	})

	instances := app.Group("/instances")
	instances.Get("/", handlers.GetInstances)
	instances.Post("/", handlers.CreateInstance)
	instances.Get("/:id", handlers.GetInstance)
	instances.Post("/:id/evaluate", handlers.EvaluateInstance)
	instances.Get("/:id/transitions", handlers.GetAvailableTransitions)
	instances.Post("/:id/transitions", handlers.FireTransition)
	instances.Get("/:id/history", handlers.GetHistory)
	instances.Get("/:id/deadline", handlers.GetDeadline)

	classifications := app.Group("/classifications")
	classifications.Get("/", handlers.GetClassifications)
	classifications.Get("/:category", handlers.GetClassification)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
