package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/taskmgr/tasks/dynamodb"
	"github.com/taskmgr/tasks/events"
	"github.com/taskmgr/tasks/task"
)

// fakeStore is an in-memory TaskStore. Setting err makes every call fail.
type fakeStore struct {
	mu    sync.Mutex
	tasks map[string]task.Task
	adds  int
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: make(map[string]task.Task)}
}

func storeKey(owner string, id uuid.UUID) string {
	return owner + "/" + id.String()
}

func (s *fakeStore) Add(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.adds++
	s.tasks[storeKey(t.Owner, t.ID)] = *t

	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID, owner string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	t, ok := s.tasks[storeKey(owner, id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamodb.ErrNotFound, id)
	}

	return &t, nil
}

func (s *fakeStore) ListOpen(_ context.Context, owner string) ([]*task.Task, error) {
	return s.list(owner, task.StatusOpen)
}

func (s *fakeStore) ListClosed(_ context.Context, owner string) ([]*task.Task, error) {
	return s.list(owner, task.StatusClosed)
}

func (s *fakeStore) list(owner string, status task.Status) ([]*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	tasks := make([]*task.Task, 0)
	for _, t := range s.tasks {
		if t.Owner == owner && t.Status == status {
			t := t
			tasks = append(tasks, &t)
		}
	}

	return tasks, nil
}

type publishedEvent struct {
	eventType events.Type
	task      task.Task
}

// fakePublisher records published events. Setting err makes Publish fail.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, eventType events.Type, t *task.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, publishedEvent{eventType: eventType, task: *t})

	return nil
}

func (p *fakePublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]publishedEvent(nil), p.events...)
}
