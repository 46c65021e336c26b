// Package main provides the Playbook API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/getplaybook/playbook/pkg/eventbus"
	"github.com/getplaybook/playbook/pkg/persistence"
	"github.com/getplaybook/playbook/pkg/services"
	"github.com/getplaybook/playbook/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	treeCache   services.TreeCache
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	treeCache services.TreeCache,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		treeCache:   treeCache,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	guard := services.NewGuard(a.persistence)
	toucher := services.NewToucher(a.persistence, a.eventBus, a.treeCache, a.logger)
	loader := services.NewLoader(a.persistence, a.treeCache, a.logger)
	progressService := services.NewProgress(a.persistence, loader, a.logger)

	templateService := services.NewTemplate(a.persistence, guard, a.eventBus, a.treeCache, a.logger)
	stageService := services.NewStage(a.persistence, guard, toucher)
	taskService := services.NewTask(a.persistence, guard, toucher)
	stepService := services.NewStep(a.persistence, guard, toucher)
	elementService := services.NewElement(a.persistence, guard, toucher)
	instanceService := services.NewInstance(a.persistence, progressService, a.eventBus, a.logger)
	analytics := services.NewAnalytics(a.persistence)

	handlers := web.NewAPIHandlers(
		templateService,
		stageService,
		taskService,
		stepService,
		elementService,
		instanceService,
		progressService,
		analytics,
		loader,
		a.persistence,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Playbook API")
	})

	handlers.Register(app)

	return app
}

// Start registers the touch worker, subscribes to the event bus, and serves
// HTTP until the listener fails.
func (a *API) Start(ctx context.Context, port int) error {
	worker := services.NewTouchWorker(a.persistence, a.logger)
	if err := worker.Register(a.eventBus); err != nil {
		return err
	}

	go func() {
		if err := a.eventBus.Subscribe(ctx); err != nil {
			a.logger.ErrorContext(ctx, "Event bus subscription ended", "error", err)
		}
	}()

	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
