// Command tasks-api serves the task HTTP API on top of a DynamoDB table.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/taskmgr/tasks/api"
	"github.com/taskmgr/tasks/config"
	"github.com/taskmgr/tasks/dynamodb"
	"github.com/taskmgr/tasks/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Starting tasks API",
		"table", cfg.TableName,
		"port", cfg.ServerPort,
		"log_level", cfg.LogLevel,
		"events", cfg.EventsQueueURL != "",
	)

	ctx := context.Background()

	service, err := newService(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize service", "error", err)
		os.Exit(1)
	}

	monoLogLevel := mono.WithLogLevel(mono.LogLevelInfo)
	if cfg.LogLevel == "ERROR" {
		monoLogLevel = mono.WithLogLevel(mono.LogLevelError)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		monoLogLevel,
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		logger.Error("Failed to create application", "error", err)
		os.Exit(1)
	}

	app.Register(api.NewModule(service, cfg.Address(), logger))

	if err := app.Start(ctx); err != nil {
		logger.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	wait := gfshutdown.GracefulShutdown(
		ctx,
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("Application exited", "code", exitCode)
	os.Exit(exitCode)
}

// newService connects the store and the event publisher.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*api.Service, error) {
	awsCfg, err := cfg.LoadAWS(ctx)
	if err != nil {
		return nil, err
	}

	store := dynamodb.New(&awsCfg, cfg.TableName,
		dynamodb.WithEndpoint(cfg.DynamoDBURL),
		dynamodb.WithPageSize(int32(cfg.DynamoDBPageSize)),
		dynamodb.WithLogger(logger),
	)

	if err := store.Connect(); err != nil {
		return nil, err
	}

	// The schema is only validated against a local endpoint.
	if err := store.Init(ctx, cfg.DynamoDBURL == ""); err != nil {
		return nil, err
	}

	var publisher api.EventPublisher = events.Noop{}

	if cfg.EventsQueueURL != "" {
		p, err := events.New(&awsCfg, cfg.EventsQueueURL, events.WithLogger(logger)).Init(ctx)
		if err != nil {
			return nil, err
		}
		publisher = p
	}

	return api.NewService(store, publisher, logger), nil
}
