// Package task defines the task entity tracked by the service.
//
// A [Task] is owned by exactly one owner and is always in exactly one
// [Status]. The only transition is OPEN to CLOSED, and CLOSED is terminal.
package task

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusOpen is the initial status of every task.
	StatusOpen Status = "OPEN"

	// StatusClosed is the terminal status. There is no transition out of it.
	StatusClosed Status = "CLOSED"
)

var (
	// ErrInvalidStatus is returned by [ParseStatus] for values other than
	// OPEN and CLOSED.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidTask is returned by [Task.Validate] when a required field is
	// missing.
	ErrInvalidTask = errors.New("invalid task")
)

// ParseStatus converts the stored string form of a status back to a [Status].
// Matching is exact and case-sensitive.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusClosed:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s Status) String() string {
	return string(s)
}

// Task is a single to-do item.
type Task struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Status Status    `json:"status"`
	Owner  string    `json:"owner"`
}

// New creates an OPEN task. Callers are expected to supply a fresh id, e.g.
// from [uuid.New].
func New(id uuid.UUID, title, owner string) *Task {
	return &Task{
		ID:     id,
		Title:  title,
		Status: StatusOpen,
		Owner:  owner,
	}
}

// Close moves the task to CLOSED. Closing an already closed task is a no-op,
// so repeated close requests for the same task all succeed.
func (t *Task) Close() {
	t.Status = StatusClosed
}

// IsOpen reports whether the task is still OPEN.
func (t *Task) IsOpen() bool {
	return t.Status == StatusOpen
}

// Validate checks that the task has an id, a title, an owner and a known
// status.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidTask)
	}

	if t.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidTask)
	}

	if t.Owner == "" {
		return fmt.Errorf("%w: owner cannot be empty", ErrInvalidTask)
	}

	if _, err := ParseStatus(string(t.Status)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	return nil
}
