package service

import (
	"context"
	"fmt"

	dom "tasktracker/internal/domain"
	"tasktracker/internal/validation"
)

// Policy decides how a foreign task is reported.
type Policy int

const (
	// RevealForeign answers ForbiddenError: the task exists but is not yours.
	RevealForeign Policy = iota
	// HideForeign answers NotFoundError, so ids of other users cannot be probed.
	HideForeign
)

// ParsePolicy maps the config value ("forbidden" or "not_found") to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "forbidden", "":
		return RevealForeign, nil
	case "not_found":
		return HideForeign, nil
	}
	return 0, fmt.Errorf("unknown foreign access policy %q", s)
}

// Guard checks that a user acts only on their own tasks.
type Guard struct {
	policy Policy
}

func NewGuard(p Policy) Guard {
	return Guard{policy: p}
}

// Authorize returns nil when userID owns t, else the policy's error.
func (g Guard) Authorize(userID string, t dom.Task) error {
	if userID != "" && t.OwnerID == userID {
		return nil
	}
	if g.policy == HideForeign {
		return dom.TaskNotFound(t.ID)
	}
	return dom.TaskForbidden(t.ID)
}

// TaskService is the guarded task API: every operation on an existing task
// loads it, authorizes the caller, then acts.
type TaskService struct {
	store *TaskStore
	guard Guard
}

func NewTaskService(store *TaskStore, guard Guard) *TaskService {
	return &TaskService{store: store, guard: guard}
}

// Create stamps the caller as owner; there is nothing to authorize.
func (s *TaskService) Create(ctx context.Context, userID, description string) (dom.Task, error) {
	return s.store.Create(ctx, description, userID)
}

// List returns only the caller's tasks.
func (s *TaskService) List(ctx context.Context, userID string, f dom.ListFilter) ([]dom.Task, error) {
	return s.store.ListByOwner(ctx, userID, f)
}

func (s *TaskService) Get(ctx context.Context, userID string, id int64) (dom.Task, error) {
	return s.authorized(ctx, userID, id)
}

func (s *TaskService) Update(ctx context.Context, userID string, id int64, description string) (dom.Task, error) {
	if _, err := validation.ValidateForUpdate(description); err != nil {
		return dom.Task{}, err
	}
	if _, err := s.authorized(ctx, userID, id); err != nil {
		return dom.Task{}, err
	}
	return s.store.Update(ctx, id, description)
}

func (s *TaskService) ToggleCompleted(ctx context.Context, userID string, id int64) (dom.Task, error) {
	if _, err := s.authorized(ctx, userID, id); err != nil {
		return dom.Task{}, err
	}
	return s.store.ToggleCompleted(ctx, id)
}

func (s *TaskService) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := s.authorized(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// authorized loads the task and checks ownership. Owners never change, so the
// check stays valid for the store call that follows.
func (s *TaskService) authorized(ctx context.Context, userID string, id int64) (dom.Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return dom.Task{}, err
	}
	if err := s.guard.Authorize(userID, t); err != nil {
		return dom.Task{}, err
	}
	return t, nil
}
