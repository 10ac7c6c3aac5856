package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dom "tasktracker/internal/domain"
)

// AUTOINCREMENT keeps SQLite from reusing the id of a deleted last row.
var sqliteTasksDDL = []string{`
CREATE TABLE IF NOT EXISTS tasks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	description TEXT     NOT NULL,
	completed   BOOLEAN  NOT NULL DEFAULT 0,
	owner_id    TEXT     NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME
)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks (owner_id, id)`,
}

type taskRow struct {
	ID          int64      `gorm:"primaryKey"`
	Description string     `gorm:"not null"`
	Completed   bool       `gorm:"not null"`
	OwnerID     string     `gorm:"not null"`
	CreatedAt   time.Time  `gorm:"autoCreateTime:false"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false"`
}

func (taskRow) TableName() string { return "tasks" }

func (r taskRow) toDomain() dom.Task {
	return dom.Task{
		ID:          r.ID,
		Description: r.Description,
		Completed:   r.Completed,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   utcPtr(r.UpdatedAt),
	}
}

type userRow struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

// MigrateSQLite creates the tables used by the gorm repositories.
func MigrateSQLite(db *gorm.DB) error {
	for _, stmt := range sqliteTasksDDL {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create tasks table: %w", err)
		}
	}
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

// GormTaskRepo implements TaskRepo on top of gorm (SQLite in practice).
type GormTaskRepo struct {
	db *gorm.DB
}

func NewGormTaskRepo(db *gorm.DB) *GormTaskRepo {
	return &GormTaskRepo{db: db}
}

func (r *GormTaskRepo) Insert(ctx context.Context, t dom.Task) (dom.Task, error) {
	row := taskRow{
		Description: t.Description,
		Completed:   t.Completed,
		OwnerID:     t.OwnerID,
		CreatedAt:   t.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return dom.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return row.toDomain(), nil
}

func (r *GormTaskRepo) Get(ctx context.Context, id int64) (dom.Task, error) {
	row, err := findTask(r.db.WithContext(ctx), id)
	if err != nil {
		return dom.Task{}, err
	}
	return row.toDomain(), nil
}

func (r *GormTaskRepo) ListByOwner(ctx context.Context, ownerID string, f dom.ListFilter) ([]dom.Task, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if f.Completed != nil {
		q = q.Where("completed = ?", *f.Completed)
	}
	if f.Order == dom.OrderNewest {
		q = q.Order("id DESC")
	} else {
		q = q.Order("id ASC")
	}

	var rows []taskRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	// SQLite's LIKE folds ASCII only, so the substring match runs in Go
	// with the same Unicode folding as the other backends.
	list := make([]dom.Task, 0, len(rows))
	for i := range rows {
		t := rows[i].toDomain()
		if f.Matches(t) {
			list = append(list, t)
		}
	}
	return list, nil
}

func (r *GormTaskRepo) UpdateDescription(ctx context.Context, id int64, description string, at time.Time) (dom.Task, error) {
	return r.mutate(ctx, id, func(row *taskRow) map[string]any {
		row.Description = description
		return map[string]any{"description": description}
	}, at)
}

func (r *GormTaskRepo) ToggleCompleted(ctx context.Context, id int64, at time.Time) (dom.Task, error) {
	return r.mutate(ctx, id, func(row *taskRow) map[string]any {
		row.Completed = !row.Completed
		return map[string]any{"completed": row.Completed}
	}, at)
}

func (r *GormTaskRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&taskRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// mutate reads, changes and writes one row inside a transaction. SQLite
// serializes write transactions, so concurrent mutations never interleave.
func (r *GormTaskRepo) mutate(ctx context.Context, id int64, apply func(*taskRow) map[string]any, at time.Time) (dom.Task, error) {
	var out dom.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findTask(tx, id)
		if err != nil {
			return err
		}
		stamp := row.toDomain().Stamp(at)
		changes := apply(&row)
		changes["updated_at"] = stamp
		if err := tx.Model(&taskRow{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		row.UpdatedAt = &stamp
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return dom.Task{}, err
	}
	return out, nil
}

func findTask(db *gorm.DB, id int64) (taskRow, error) {
	var row taskRow
	err := db.First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return taskRow{}, ErrNotFound
	}
	if err != nil {
		return taskRow{}, fmt.Errorf("find task: %w", err)
	}
	return row, nil
}

// GormUserRepo implements UserRepo on top of gorm.
type GormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) GetByUsername(ctx context.Context, username string) (dom.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("username = ?", username))
}

func (r *GormUserRepo) GetByID(ctx context.Context, id string) (dom.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormUserRepo) Create(ctx context.Context, username, passwordHash string) (dom.User, error) {
	row := userRow{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRow{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return dom.User{}, ErrDuplicate
	}
	if err != nil {
		return dom.User{}, fmt.Errorf("insert user: %w", err)
	}
	return userFromRow(row), nil
}

func (r *GormUserRepo) findOne(q *gorm.DB) (dom.User, error) {
	var row userRow
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dom.User{}, ErrNotFound
	}
	if err != nil {
		return dom.User{}, fmt.Errorf("find user: %w", err)
	}
	return userFromRow(row), nil
}

func userFromRow(row userRow) dom.User {
	return dom.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
