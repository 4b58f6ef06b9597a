package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/taskmgr/tasks/events"
	"github.com/taskmgr/tasks/task"
)

// TaskStore is the persistence the service needs. It is implemented by
// [github.com/taskmgr/tasks/dynamodb.Client].
type TaskStore interface {
	Add(ctx context.Context, t *task.Task) error
	GetByID(ctx context.Context, id uuid.UUID, owner string) (*task.Task, error)
	ListOpen(ctx context.Context, owner string) ([]*task.Task, error)
	ListClosed(ctx context.Context, owner string) ([]*task.Task, error)
}

// EventPublisher receives lifecycle events after successful writes. It is
// implemented by [events.Publisher] and [events.Noop].
type EventPublisher interface {
	Publish(ctx context.Context, eventType events.Type, t *task.Task) error
}

// Service implements the task operations behind the HTTP handlers.
type Service struct {
	store     TaskStore
	publisher EventPublisher
	logger    *slog.Logger
	newID     func() uuid.UUID
}

// NewService creates a Service. A nil publisher disables events and a nil
// logger discards log output.
func NewService(store TaskStore, publisher EventPublisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "service"),
		newID:     uuid.New,
	}
}

// Create stores a new OPEN task with a fresh id.
func (s *Service) Create(ctx context.Context, title, owner string) (*task.Task, error) {
	title = strings.TrimSpace(title)

	t := task.New(s.newID(), title, owner)

	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Add(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.publish(ctx, events.TaskCreated, t)

	return t, nil
}

// List returns the owner's tasks in the given status.
func (s *Service) List(ctx context.Context, owner string, status task.Status) ([]*task.Task, error) {
	switch status {
	case task.StatusOpen:
		return s.store.ListOpen(ctx, owner)
	case task.StatusClosed:
		return s.store.ListClosed(ctx, owner)
	default:
		return nil, fmt.Errorf("%w: %q", task.ErrInvalidStatus, status)
	}
}

// Close loads the owner's task, marks it CLOSED and stores it again. A task
// that is already closed is returned unchanged without a write.
func (s *Service) Close(ctx context.Context, id uuid.UUID, owner string) (*task.Task, error) {
	t, err := s.store.GetByID(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	if !t.IsOpen() {
		return t, nil
	}

	t.Close()

	if err := s.store.Add(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to close task %s: %w", id, err)
	}

	s.publish(ctx, events.TaskClosed, t)

	return t, nil
}

// publish never fails the request: the write has already happened.
func (s *Service) publish(ctx context.Context, eventType events.Type, t *task.Task) {
	if err := s.publisher.Publish(ctx, eventType, t); err != nil {
		s.logger.Error("Failed to publish task event", "event", string(eventType), "task_id", t.ID.String(), "error", err)
	}
}
