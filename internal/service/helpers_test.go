package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tasktracker/internal/cache"
	dom "tasktracker/internal/domain"
	"tasktracker/internal/events"
	"tasktracker/internal/repo"
)

// fakeClock advances one second on every call, so each stamp is distinct.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TaskEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// countingRepo counts ListByOwner calls reaching the backend.
type countingRepo struct {
	repo.TaskRepo
	mu    sync.Mutex
	lists int
}

func (r *countingRepo) ListByOwner(ctx context.Context, ownerID string, f dom.ListFilter) ([]dom.Task, error) {
	r.mu.Lock()
	r.lists++
	r.mu.Unlock()
	return r.TaskRepo.ListByOwner(ctx, ownerID, f)
}

func (r *countingRepo) listCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lists
}

// failingRepo fails every call with err.
type failingRepo struct {
	repo.TaskRepo
	err error
}

func (r failingRepo) Insert(context.Context, dom.Task) (dom.Task, error) { return dom.Task{}, r.err }
func (r failingRepo) Get(context.Context, int64) (dom.Task, error)       { return dom.Task{}, r.err }

var errBackend = errors.New("backend down")

func newTestCache(t *testing.T) (*cache.TaskCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.NewTaskCache(rdb, time.Minute), mr
}

func newTestStore(opts ...StoreOption) *TaskStore {
	clock := newFakeClock()
	return NewTaskStore(repo.NewMemTaskRepo(), append([]StoreOption{WithClock(clock.Now)}, opts...)...)
}
