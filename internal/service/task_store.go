package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tasktracker/internal/cache"
	dom "tasktracker/internal/domain"
	"tasktracker/internal/events"
	"tasktracker/internal/metrics"
	"tasktracker/internal/repo"
	"tasktracker/internal/validation"
)

// TaskStore is the authoritative CRUD over tasks. It validates every write,
// stamps timestamps and keeps the cache and event stream in step with the repo.
// It performs no ownership checks; see TaskService.
type TaskStore struct {
	repo    repo.TaskRepo
	cache   *cache.TaskCache
	events  events.Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
	sf      singleflight.Group
}

// StoreOption configures a TaskStore.
type StoreOption func(*TaskStore)

// WithCache enables list caching. A nil cache disables it.
func WithCache(c *cache.TaskCache) StoreOption { return func(s *TaskStore) { s.cache = c } }

// WithEvents sets the event publisher.
func WithEvents(p events.Publisher) StoreOption { return func(s *TaskStore) { s.events = p } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) StoreOption { return func(s *TaskStore) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) StoreOption { return func(s *TaskStore) { s.log = l } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption { return func(s *TaskStore) { s.now = now } }

// NewTaskStore creates a TaskStore over r.
func NewTaskStore(r repo.TaskRepo, opts ...StoreOption) *TaskStore {
	s := &TaskStore{
		repo:   r,
		events: events.Nop{},
		log:    zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskStore) Create(ctx context.Context, description, ownerID string) (dom.Task, error) {
	ownerID = strings.TrimSpace(ownerID)
	desc, err := validation.ValidateForCreate(description, ownerID)
	if err != nil {
		s.metrics.TaskOp("create", resultOf(err))
		return dom.Task{}, err
	}
	t, err := s.repo.Insert(ctx, dom.Task{
		Description: desc,
		OwnerID:     ownerID,
		CreatedAt:   s.now(),
	})
	if err != nil {
		s.metrics.TaskOp("create", resultOf(err))
		return dom.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.afterWrite(ctx, "create", events.TaskCreated, t)
	return t, nil
}

func (s *TaskStore) Get(ctx context.Context, id int64) (dom.Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return dom.Task{}, translate(err, id)
	}
	return t, nil
}

// ListByOwner returns a snapshot of the owner's tasks matching f.
func (s *TaskStore) ListByOwner(ctx context.Context, ownerID string, f dom.ListFilter) ([]dom.Task, error) {
	if s.cache == nil {
		return s.repo.ListByOwner(ctx, ownerID, f)
	}
	key := cache.ListKey(ownerID, f)
	// The shared read must not fail every waiter when the first caller goes away.
	sfCtx := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ctx := sfCtx
		if list, err := s.cache.GetList(ctx, ownerID, f); err == nil && list != nil {
			return list, nil
		} else if err != nil {
			s.log.Warn("task cache read failed", zap.String("owner_id", ownerID), zap.Error(err))
		}
		list, err := s.repo.ListByOwner(ctx, ownerID, f)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetList(ctx, ownerID, f, list); err != nil {
			s.log.Warn("task cache write failed", zap.String("owner_id", ownerID), zap.Error(err))
		}
		return list, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	// Callers sharing a singleflight result must not share its backing array.
	shared := v.([]dom.Task)
	out := make([]dom.Task, len(shared))
	copy(out, shared)
	return out, nil
}

func (s *TaskStore) Update(ctx context.Context, id int64, description string) (dom.Task, error) {
	desc, err := validation.ValidateForUpdate(description)
	if err != nil {
		s.metrics.TaskOp("update", resultOf(err))
		return dom.Task{}, err
	}
	t, err := s.repo.UpdateDescription(ctx, id, desc, s.now())
	if err != nil {
		err = translate(err, id)
		s.metrics.TaskOp("update", resultOf(err))
		return dom.Task{}, err
	}
	s.afterWrite(ctx, "update", events.TaskUpdated, t)
	return t, nil
}

func (s *TaskStore) ToggleCompleted(ctx context.Context, id int64) (dom.Task, error) {
	t, err := s.repo.ToggleCompleted(ctx, id, s.now())
	if err != nil {
		err = translate(err, id)
		s.metrics.TaskOp("toggle", resultOf(err))
		return dom.Task{}, err
	}
	s.afterWrite(ctx, "toggle", events.TaskToggled, t)
	return t, nil
}

// Delete removes the task permanently. Deleting a missing id always fails.
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	t, err := s.repo.Get(ctx, id)
	if err == nil {
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		err = translate(err, id)
		s.metrics.TaskOp("delete", resultOf(err))
		return err
	}
	s.afterWrite(ctx, "delete", events.TaskDeleted, t)
	return nil
}

// afterWrite runs the side effects of a successful write. Their failures are
// logged only: the write itself already happened.
func (s *TaskStore) afterWrite(ctx context.Context, op, eventType string, t dom.Task) {
	s.metrics.TaskOp(op, "ok")
	if s.cache != nil {
		if err := s.cache.InvalidateOwner(ctx, t.OwnerID); err != nil {
			s.log.Warn("task cache invalidation failed", zap.String("owner_id", t.OwnerID), zap.Error(err))
		}
	}
	ev := events.TaskEvent{Type: eventType, TaskID: t.ID, OwnerID: t.OwnerID, At: s.now()}
	if eventType != events.TaskDeleted {
		ev.Task = &t
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("task event publish failed", zap.String("type", eventType), zap.Int64("task_id", t.ID), zap.Error(err))
	}
}

func translate(err error, id int64) error {
	if errors.Is(err, repo.ErrNotFound) {
		return dom.TaskNotFound(id)
	}
	return fmt.Errorf("task %d: %w", id, err)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, dom.ErrValidation):
		return "invalid"
	case errors.Is(err, dom.ErrNotFound):
		return "not_found"
	case errors.Is(err, dom.ErrForbidden):
		return "forbidden"
	}
	return "error"
}
