package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/zynthex/zynthex/pkg/cache"
	"github.com/zynthex/zynthex/pkg/cmd"
	"github.com/zynthex/zynthex/pkg/log"
	"github.com/zynthex/zynthex/pkg/otelhelper"
	"github.com/zynthex/zynthex/pkg/registry"
	"github.com/zynthex/zynthex/pkg/schedule"
	"github.com/zynthex/zynthex/pkg/web"
	"github.com/zynthex/zynthex/pkg/workflow"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "zynthex-api",
		Usage:                 "Run the workflow automation API server",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL (postgres://... or file://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the workflow read cache (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka brokers for the event bus (optional, in-process bus by default)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "app-url",
				Usage:   "Public base URL external webhook callbacks are pointed at",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("APP_URL"),
			},
			&cli.BoolFlag{
				Name:    "fail-on-cycle",
				Usage:   "Abort executions of cyclic workflow graphs instead of skipping unreachable nodes",
				Sources: cli.EnvVars("FAIL_ON_CYCLE"),
			},
			&cli.BoolFlag{
				Name:    "enable-tracing",
				Usage:   "Export OpenTelemetry traces via OTLP/HTTP",
				Sources: cli.EnvVars("ENABLE_TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Zynthex API")

	if command.Bool("enable-tracing") {
		if _, err := otelhelper.NewTracer(ctx, "zynthex-api"); err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("kafka-brokers"), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	var workflowCache *cache.WorkflowCache

	if redisURL := command.String("redis-url"); redisURL != "" {
		workflowCache, err = cache.NewWorkflowCache(redisURL)
		if err != nil {
			return fmt.Errorf("failed to initialize workflow cache: %w", err)
		}

		defer func() {
			if err := workflowCache.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close workflow cache", "error", err)
			}
		}()
	}

	reg := registry.NewDefaultRegistry(logger, eventBus, command.String("app-url"))

	var invalidator workflow.CacheInvalidator
	if workflowCache != nil {
		invalidator = workflowCache
	}

	executor := workflow.NewExecutor(persistence, reg, eventBus, invalidator, logger, workflow.Config{
		FailOnCycle: command.Bool("fail-on-cycle"),
	})

	dispatcher := schedule.NewDispatcher(persistence, executor, logger)
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start schedule dispatcher: %w", err)
	}

	defer dispatcher.Stop()

	var handlerCache web.WorkflowCache
	if workflowCache != nil {
		handlerCache = workflowCache
	}

	api := NewAPI(logger, persistence, reg, executor, eventBus, handlerCache, dispatcher)

	return api.Start(command.Int("port"))
}
