// Package main provides the Zynthex API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/zynthex/zynthex/pkg/eventbus"
	"github.com/zynthex/zynthex/pkg/persistence"
	"github.com/zynthex/zynthex/pkg/registry"
	"github.com/zynthex/zynthex/pkg/web"
	"github.com/zynthex/zynthex/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	executor    *workflow.Executor
	eventBus    eventbus.EventBus
	cache       web.WorkflowCache
	scheduler   web.ScheduleReloader
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	reg *registry.Registry,
	executor *workflow.Executor,
	eventBus eventbus.EventBus,
	cache web.WorkflowCache,
	scheduler web.ScheduleReloader,
) *API {
	return &API{
		logger:      logger,
		persistence: p,
		registry:    reg,
		executor:    executor,
		eventBus:    eventBus,
		cache:       cache,
		scheduler:   scheduler,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.persistence,
		a.executor,
		a.registry,
		a.eventBus,
		a.cache,
		a.scheduler,
		a.validate,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Zynthex API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.ListWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/deploy", handlers.DeployWorkflow)
	w.Post("/:id/undeploy", handlers.UndeployWorkflow)
	w.Post("/:id/test-trigger", handlers.TestTrigger)
	w.Get("/:id/executions", handlers.ListExecutions)

	app.Get("/executions/:id", handlers.GetExecution)

	hooks := app.Group("/webhooks")
	hooks.Post("/helius", handlers.HeliusWebhook)
	hooks.Post("/alchemy", handlers.AlchemyWebhook)
	hooks.Post("/coingate", handlers.CoinGateWebhook)

	app.Post("/credentials", handlers.SaveCredential)
	app.Get("/credentials", handlers.ListCredentials)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
