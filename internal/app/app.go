package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/cache"
	"github.com/qazbilim/training-backend/internal/config"
	"github.com/qazbilim/training-backend/internal/db"
	"github.com/qazbilim/training-backend/internal/logger"
)

// App holds the wired object graph consumed by cmd/main.go and by any
// future transport layer.
type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cache    cache.Cache
	Cfg      *config.Config
	Repos    Repos
	Services Services
	cancel   context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := config.Load(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	theDB := pg.DB()

	theCache, err := cache.NewRedis(log)
	if err != nil {
		log.Warn("Redis unavailable, using in-process cache", "error", err)
		theCache = cache.NewMemory()
	}

	return Wire(theDB, log, cfg, theCache)
}

// Wire builds an App on top of already constructed infrastructure. New
// uses it after bootstrapping postgres and the cache; tests call it
// directly.
func Wire(theDB *gorm.DB, log *logger.Logger, cfg *config.Config, theCache cache.Cache) (*App, error) {
	reposet := wireRepos(theDB, log, theCache)

	serviceset, err := wireServices(theDB, log, cfg, theCache, reposet)
	if err != nil {
		log.Sync()
		return nil, err
	}

	return &App{
		Log:      log,
		DB:       theDB,
		Cache:    theCache,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
	}, nil
}

// Start launches the background job worker. The worker stops when the
// given context is cancelled or Close is called.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(runCtx)
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
