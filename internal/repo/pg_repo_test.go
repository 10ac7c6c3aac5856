package repo

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"tasktracker/migrations"
)

// setupTestPG connects to the database in TEST_PG_DSN, migrates it and
// empties the tables. Tests are skipped when the variable is unset.
func setupTestPG(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		t.Fatalf("goose open db: %v", err)
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.Up(db, "."); err != nil {
		db.Close()
		t.Fatalf("goose up: %v", err)
	}
	db.Close()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pg connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, `TRUNCATE tasks, users RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func TestPGTaskRepo(t *testing.T) {
	testTaskRepo(t, func(t *testing.T) TaskRepo { return NewPGTaskRepo(setupTestPG(t)) })
}

func TestPGUserRepo(t *testing.T) {
	testUserRepo(t, func(t *testing.T) UserRepo { return NewPGUserRepo(setupTestPG(t)) })
}
