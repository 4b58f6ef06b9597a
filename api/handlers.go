package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskmgr/tasks/dynamodb"
	"github.com/taskmgr/tasks/task"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Handlers{
		service: service,
		logger:  logger,
	}
}

// HealthCheck reports that the process is serving requests.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Message: "OK"})
}

// CreateTask handles task creation.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	t, err := h.service.Create(c.UserContext(), req.Title, ownerFrom(c))
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(t)
}

// OpenTasks lists the caller's OPEN tasks.
func (h *Handlers) OpenTasks(c *fiber.Ctx) error {
	return h.listTasks(c, task.StatusOpen)
}

// ClosedTasks lists the caller's CLOSED tasks.
func (h *Handlers) ClosedTasks(c *fiber.Ctx) error {
	return h.listTasks(c, task.StatusClosed)
}

func (h *Handlers) listTasks(c *fiber.Ctx, status task.Status) error {
	tasks, err := h.service.List(c.UserContext(), ownerFrom(c), status)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.JSON(TaskListResponse{Results: tasks})
}

// CloseTask handles closing one of the caller's tasks.
func (h *Handlers) CloseTask(c *fiber.Ctx) error {
	var req CloseTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Task id must be a UUID",
		})
	}

	t, err := h.service.Close(c.UserContext(), id, ownerFrom(c))
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.JSON(t)
}

// handleServiceError maps service errors to HTTP responses. Backend details
// are logged, never returned.
func (h *Handlers) handleServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, dynamodb.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Task not found",
		})
	case errors.Is(err, task.ErrInvalidTask):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
	default:
		h.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)

		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "server_error",
			Message: "Internal Server Error",
		})
	}
}
