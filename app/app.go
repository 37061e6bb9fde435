package app

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"Gin_postgres_redis_library/config"
	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/jobs"
	"Gin_postgres_redis_library/locks"
	"Gin_postgres_redis_library/metrics"
	"Gin_postgres_redis_library/services"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Short aliases for handlers.
type Ctx = gin.Context
type H = gin.H

// App aggregates the process-wide dependencies.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Config *config.Config
	Clock  clockwork.Clock

	Members *services.MemberService
	Books   *services.BookService
	Loans   *services.LoanService
	Sweeper *jobs.OverdueSweeper

	bg sync.WaitGroup
}

// New opens the pool and redis, then wires repositories, services and the
// sweeper. The caller owns Close.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	gdb, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rdb := connectRedis(ctx, cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), RequestID(), metrics.Middleware())
	useCORS(r, cfg.WebOrigin)

	a := &App{Router: r, DB: gdb, RDB: rdb, Config: cfg, Clock: clockwork.NewRealClock()}
	a.wire()
	return a, nil
}

// MustNew is New for main: any failure ends the process.
func MustNew(ctx context.Context, cfg *config.Config) *App {
	a, err := New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialise application", "error", err)
		os.Exit(1)
	}
	return a
}

func (a *App) wire() {
	tm := db.NewTxManager(a.DB)
	members, books, loans := db.NewMemberRepo(), db.NewBookRepo(), db.NewLoanRepo()

	a.Members = services.NewMemberService(tm, members, loans, a.Clock)
	a.Books = services.NewBookService(tm, books, loans)
	a.Loans = services.NewLoanService(tm, members, books, loans, a.Clock, a.Config.LoanDays)

	a.Sweeper = newSweeper(a.Loans, a.RDB, a.Clock, a.Config.SweepInterval)
}

// connectRedis never fails: redis only backs the sweep lock, and the client
// reconnects on its own once the server is reachable.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Redis unreachable, overdue sweeps run without the lock until it is back", "addr", cfg.RedisAddr, "error", err)
	}
	return rdb
}

func newSweeper(loans jobs.OverdueMarker, rdb redis.UniversalClient, clock clockwork.Clock, interval time.Duration) *jobs.OverdueSweeper {
	var lock jobs.RunLock
	if rdb != nil {
		lock = locks.NewLocker(rdb).Named(jobs.SweepLockName, jobs.SweepLockTTL)
	}
	return jobs.NewOverdueSweeper(loans, lock, clock, interval)
}

// StartSweeper runs the sweeper until ctx is done. Close waits for it.
func (a *App) StartSweeper(ctx context.Context) {
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		a.Sweeper.Run(ctx)
	}()
}

// Close waits for background jobs, then releases redis and the pool.
func (a *App) Close() {
	a.bg.Wait()
	if a.RDB != nil {
		if err := a.RDB.Close(); err != nil {
			slog.Warn("Failed to close redis", "error", err)
		}
	}
	if a.DB != nil {
		if err := db.Close(a.DB); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}
}
