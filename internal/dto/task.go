package dto

import "time"

// CreateTaskRequest is the JSON body for POST /tasks.
type CreateTaskRequest struct {
	Description string `json:"description"`
}

// UpdateTaskRequest is the JSON body for PATCH /tasks/{id}. Description is required.
type UpdateTaskRequest struct {
	Description *string `json:"description"`
}

type TaskResponse struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	OwnerID     string     `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type ListTasksResponse struct {
	Items []TaskResponse `json:"items"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
