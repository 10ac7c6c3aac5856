package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	dom "tasktracker/internal/domain"
)

var (
	// ErrNotFound is returned when no record has the requested key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// TaskRepo provides task persistence. Each mutation is applied atomically and
// stamps updated_at with Task.Stamp(at), so it never moves backwards.
type TaskRepo interface {
	Insert(ctx context.Context, t dom.Task) (dom.Task, error)
	Get(ctx context.Context, id int64) (dom.Task, error)
	ListByOwner(ctx context.Context, ownerID string, f dom.ListFilter) ([]dom.Task, error)
	UpdateDescription(ctx context.Context, id int64, description string, at time.Time) (dom.Task, error)
	ToggleCompleted(ctx context.Context, id int64, at time.Time) (dom.Task, error)
	Delete(ctx context.Context, id int64) error
}

// UserRepo provides user persistence.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (dom.User, error)
	GetByID(ctx context.Context, id string) (dom.User, error)
	Create(ctx context.Context, username, passwordHash string) (dom.User, error)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a free-text query into a LIKE pattern matching it as a substring.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
