package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tasktracker/internal/config"
	"tasktracker/internal/events"
	"tasktracker/internal/repo"
	"tasktracker/migrations"
)

type App struct {
	cfg    config.Config
	log    *zap.Logger
	db     *pgxpool.Pool
	sqlite *gorm.DB
	redis  *redis.Client
	nats   *events.NATSPublisher
	router *gin.Engine
}

// New opens every backend the config names, runs migrations and builds the router.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	store, err := a.openStorage()
	if err != nil {
		return nil, err
	}

	rdb, err := newRedis(cfg.Redis)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	a.redis = rdb

	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		p, err := events.Connect(cfg.NATS.URL)
		if err != nil {
			a.closeAll()
			return nil, err
		}
		a.nats = p
		publisher = p
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.router = NewRouter(cfg, Deps{
		Tasks:    store.tasks,
		Users:    store.users,
		Redis:    rdb,
		Events:   publisher,
		Registry: reg,
		Log:      log,
	})
	log.Info("app ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("events", a.nats != nil),
		zap.String("foreign_access", cfg.Tasks.ForeignAccess))
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close releases backends in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	_ = ctx
	return a.closeAll()
}

func (a *App) closeAll() error {
	var errs []error
	if a.nats != nil {
		errs = append(errs, a.nats.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.sqlite != nil {
		if sqlDB, err := a.sqlite.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	return errors.Join(errs...)
}

type storage struct {
	tasks repo.TaskRepo
	users repo.UserRepo
}

func (a *App) openStorage() (storage, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := Migrate(a.cfg, a.log); err != nil {
			return storage{}, err
		}
		db, err := newPostgres(a.cfg.PG.DSN)
		if err != nil {
			return storage{}, err
		}
		a.db = db
		return storage{tasks: repo.NewPGTaskRepo(db), users: repo.NewPGUserRepo(db)}, nil
	case config.DriverSQLite:
		db, err := openSQLite(a.cfg.Storage.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		a.sqlite = db
		if err := repo.MigrateSQLite(db); err != nil {
			a.closeAll()
			return storage{}, fmt.Errorf("sqlite migrate: %w", err)
		}
		return storage{tasks: repo.NewGormTaskRepo(db), users: repo.NewGormUserRepo(db)}, nil
	default:
		a.log.Warn("memory storage: tasks and users are lost on restart")
		return storage{tasks: repo.NewMemTaskRepo(), users: repo.NewMemUserRepo()}, nil
	}
}

// Migrate brings the configured database schema up to date. Memory storage
// has no schema.
func Migrate(cfg config.Config, log *zap.Logger) error {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := runMigrations(cfg.PG.DSN); err != nil {
			return err
		}
	case config.DriverSQLite:
		db, err := openSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := repo.MigrateSQLite(db); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	default:
		return nil
	}
	log.Info("migrations applied", zap.String("storage", cfg.Storage.Driver))
	return nil
}

func newPostgres(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

// openSQLite opens the file database with a single writer connection so that
// gorm transactions serialize instead of failing with SQLITE_BUSY.
func openSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func runMigrations(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
