package repo

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	dom "tasktracker/internal/domain"
)

// MemTaskRepo keeps tasks in memory. Ids come from a counter that only grows,
// so a deleted id is never handed out again.
type MemTaskRepo struct {
	mu     sync.RWMutex
	lastID int64
	tasks  map[int64]dom.Task
}

// NewMemTaskRepo returns an empty MemTaskRepo.
func NewMemTaskRepo() *MemTaskRepo {
	return &MemTaskRepo{tasks: make(map[int64]dom.Task)}
}

func (r *MemTaskRepo) Insert(_ context.Context, t dom.Task) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	t.ID = r.lastID
	r.tasks[t.ID] = t
	return t, nil
}

func (r *MemTaskRepo) Get(_ context.Context, id int64) (dom.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return dom.Task{}, ErrNotFound
	}
	return t, nil
}

func (r *MemTaskRepo) ListByOwner(_ context.Context, ownerID string, f dom.ListFilter) ([]dom.Task, error) {
	r.mu.RLock()
	list := make([]dom.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID == ownerID && f.Matches(t) {
			list = append(list, t)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b dom.Task) int {
		if f.Order == dom.OrderNewest {
			return cmp.Compare(b.ID, a.ID)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return list, nil
}

func (r *MemTaskRepo) UpdateDescription(_ context.Context, id int64, description string, at time.Time) (dom.Task, error) {
	return r.mutate(id, at, func(t *dom.Task) { t.Description = description })
}

func (r *MemTaskRepo) ToggleCompleted(_ context.Context, id int64, at time.Time) (dom.Task, error) {
	return r.mutate(id, at, func(t *dom.Task) { t.Completed = !t.Completed })
}

func (r *MemTaskRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemTaskRepo) mutate(id int64, at time.Time, apply func(*dom.Task)) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return dom.Task{}, ErrNotFound
	}
	stamp := t.Stamp(at)
	apply(&t)
	t.UpdatedAt = &stamp
	r.tasks[id] = t
	return t, nil
}

// MemUserRepo keeps users in memory, indexed by id and username.
type MemUserRepo struct {
	mu         sync.RWMutex
	byID       map[string]dom.User
	byUsername map[string]string
	now        func() time.Time
}

// NewMemUserRepo returns an empty MemUserRepo.
func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{
		byID:       make(map[string]dom.User),
		byUsername: make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemUserRepo) GetByUsername(_ context.Context, username string) (dom.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return dom.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemUserRepo) GetByID(_ context.Context, id string) (dom.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return dom.User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemUserRepo) Create(_ context.Context, username, passwordHash string) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[username]; taken {
		return dom.User{}, ErrDuplicate
	}
	u := dom.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    r.now(),
	}
	r.byID[u.ID] = u
	r.byUsername[username] = u.ID
	return u, nil
}
