package api

import "github.com/taskmgr/tasks/task"

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title string `json:"title"`
}

// CloseTaskRequest represents a task close request.
type CloseTaskRequest struct {
	ID string `json:"id"`
}

// TaskListResponse wraps a listing of tasks.
type TaskListResponse struct {
	Results []*task.Task `json:"results"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
