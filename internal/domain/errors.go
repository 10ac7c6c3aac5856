package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks across layers.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

// ValidationError reports input that fails domain rules.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a reference to a record that does not exist.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ForbiddenError reports a record that exists but belongs to someone else.
type ForbiddenError struct {
	Resource string
	ID       int64
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s %d belongs to another user", e.Resource, e.ID)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// TaskNotFound is the NotFoundError for a task id.
func TaskNotFound(id int64) error { return &NotFoundError{Resource: "task", ID: id} }

// TaskForbidden is the ForbiddenError for a task id.
func TaskForbidden(id int64) error { return &ForbiddenError{Resource: "task", ID: id} }
