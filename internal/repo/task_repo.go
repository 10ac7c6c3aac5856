package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dom "tasktracker/internal/domain"
)

const taskColumns = `id, description, completed, owner_id, created_at, updated_at`

// PGTaskRepo implements TaskRepo with Postgres. Ids come from a BIGSERIAL,
// which never hands out a deleted id again.
type PGTaskRepo struct {
	db *pgxpool.Pool
}

func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

func (r *PGTaskRepo) Insert(ctx context.Context, t dom.Task) (dom.Task, error) {
	query := `
		INSERT INTO tasks (description, completed, owner_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + taskColumns
	out, err := scanTask(r.db.QueryRow(ctx, query, t.Description, t.Completed, t.OwnerID, t.CreatedAt))
	if err != nil {
		return dom.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return out, nil
}

func (r *PGTaskRepo) Get(ctx context.Context, id int64) (dom.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return pgTaskResult(scanTask(r.db.QueryRow(ctx, query, id)))
}

func (r *PGTaskRepo) ListByOwner(ctx context.Context, ownerID string, f dom.ListFilter) ([]dom.Task, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`)
	args := []any{ownerID}
	if f.Completed != nil {
		args = append(args, *f.Completed)
		fmt.Fprintf(&sb, ` AND completed = $%d`, len(args))
	}
	if f.Query != "" {
		args = append(args, likePattern(f.Query))
		fmt.Fprintf(&sb, ` AND description ILIKE $%d`, len(args))
	}
	if f.Order == dom.OrderNewest {
		sb.WriteString(` ORDER BY id DESC`)
	} else {
		sb.WriteString(` ORDER BY id ASC`)
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	list := make([]dom.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PGTaskRepo) UpdateDescription(ctx context.Context, id int64, description string, at time.Time) (dom.Task, error) {
	query := `
		UPDATE tasks SET description = $2, updated_at = GREATEST($3::timestamptz, created_at, updated_at)
		WHERE id = $1
		RETURNING ` + taskColumns
	return pgTaskResult(scanTask(r.db.QueryRow(ctx, query, id, description, at)))
}

func (r *PGTaskRepo) ToggleCompleted(ctx context.Context, id int64, at time.Time) (dom.Task, error) {
	query := `
		UPDATE tasks SET completed = NOT completed, updated_at = GREATEST($2::timestamptz, created_at, updated_at)
		WHERE id = $1
		RETURNING ` + taskColumns
	return pgTaskResult(scanTask(r.db.QueryRow(ctx, query, id, at)))
}

func (r *PGTaskRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (dom.Task, error) {
	var t dom.Task
	err := row.Scan(&t.ID, &t.Description, &t.Completed, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func pgTaskResult(t dom.Task, err error) (dom.Task, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Task{}, ErrNotFound
	}
	if err != nil {
		return dom.Task{}, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}
