package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the Fiber application with middleware and routes.
// accessLog receives one line per request; nil disables access logging.
func NewApp(service *Service, log *slog.Logger, accessLog io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())

	if accessLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
			Output: accessLog,
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "*",
	}))

	setupRoutes(app, NewHandlers(service, log))

	return app
}

func setupRoutes(app *fiber.App, handlers *Handlers) {
	api := app.Group("/api")

	api.Get("/health-check/", handlers.HealthCheck)

	// Routes that act on the caller's tasks
	owner := OwnerMiddleware()
	api.Post("/create-task/", owner, handlers.CreateTask)
	api.Get("/open-tasks/", owner, handlers.OpenTasks)
	api.Post("/close-task/", owner, handlers.CloseTask)
	api.Get("/closed-tasks/", owner, handlers.ClosedTasks)
}

// customErrorHandler handles errors that reach Fiber, such as unknown routes.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// Module runs the HTTP API as a mono module.
type Module struct {
	app     *fiber.App
	address string
	logger  *slog.Logger
}

// Compile-time interface check
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a Module serving service on address, e.g. ":8080".
func NewModule(service *Service, address string, log *slog.Logger) *Module {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	log = log.With("component", "api")

	return &Module{
		app:     NewApp(service, log, os.Stdout),
		address: address,
		logger:  log,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Start starts listening in the background. It fails if the listener cannot
// be opened.
func (m *Module) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.address); err != nil {
			errChan <- err
		}
	}()

	// Give server a moment to start or fail
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		m.logger.Info("HTTP server started", "address", m.address)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop waits for in-flight requests and shuts the server down.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("Shutting down HTTP server")

	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}

// Health reports whether the module is serving.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"address": m.address,
		},
	}
}
