package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/db"
	"github.com/yungbote/retail-intelligence/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
	"github.com/yungbote/retail-intelligence/internal/observability"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type App struct {
	Log *logger.Logger
	// DB is nil when WAREHOUSE_DRIVER=none; stages then read and write files only.
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Registry *jobrt.Registry
	Engine   *orchestrator.Engine
	Metrics  *observability.Metrics

	closeDB      func() error
	otelShutdown func(context.Context) error
}

// New wires the app from the environment. override, when set, runs after the
// environment is read so command-line flags win.
func New(ctx context.Context, override func(*Config)) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	if override != nil {
		override(&cfg)
	}

	theDB, closeDB, err := openWarehouse(cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	clientset, err := wireClients(log)
	if err != nil {
		_ = closeDB()
		log.Sync()
		return nil, err
	}
	registry, err := wirePipelines(theDB, log, reposet, clientset)
	if err != nil {
		clientset.Close()
		_ = closeDB()
		log.Sync()
		return nil, err
	}

	metrics := observability.Init(log)
	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "retail-intelligence",
		Environment: logMode,
	})

	engine := orchestrator.NewEngine(theDB, log, reposet.Runs, jobrt.LogNotifier{Log: log}, registry)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Registry:     registry,
		Engine:       engine,
		Metrics:      metrics,
		closeDB:      closeDB,
		otelShutdown: shutdown,
	}, nil
}

func openWarehouse(cfg Config, log *logger.Logger) (*gorm.DB, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case DriverNone:
		log.Info("Warehouse disabled; stages run on files only")
		return nil, noop, nil
	case DriverPostgres:
		pg, err := db.NewPostgresService(cfg.Postgres, log)
		if err != nil {
			return nil, noop, fmt.Errorf("init postgres: %w", err)
		}
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			return nil, noop, fmt.Errorf("postgres automigrate: %w", err)
		}
		return pg.DB(), pg.Close, nil
	case DriverSQLite, "":
		lite, err := db.NewSQLiteService(cfg.SQLitePath, log)
		if err != nil {
			return nil, noop, fmt.Errorf("init sqlite: %w", err)
		}
		if err := lite.AutoMigrateAll(); err != nil {
			_ = lite.Close()
			return nil, noop, fmt.Errorf("sqlite automigrate: %w", err)
		}
		return lite.DB(), lite.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown WAREHOUSE_DRIVER %q", cfg.Driver)
	}
}

// StagesFor builds orchestrator stages for names, applying the configured
// per-stage timeout and retry budget.
func (a *App) StagesFor(names ...string) []orchestrator.Stage {
	out := make([]orchestrator.Stage, 0, len(names))
	for _, name := range names {
		out = append(out, orchestrator.Stage{
			Name:    name,
			Timeout: a.Cfg.StageTimeout,
			Retry:   orchestrator.RetryPolicy{MaxAttempts: a.Cfg.StageMaxAttempts},
		})
	}
	return out
}

// RunStages executes names in order as one pipeline run.
func (a *App) RunStages(ctx context.Context, names ...string) (*orchestrator.RunState, error) {
	if a == nil || a.Engine == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	settings, err := a.Cfg.Settings()
	if err != nil {
		return nil, err
	}
	runID := uuid.New()
	a.Log.Info("running stages", "run_id", runID.String(), "stages", strings.Join(names, ","))
	return a.Engine.Run(ctx, runID, a.StagesFor(names...), &jobrt.Dataset{}, settings)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Metrics != nil {
		if path := observability.MetricsTextfile(); path != "" {
			if err := a.Metrics.WriteTextfile(path); err != nil && a.Log != nil {
				a.Log.Warn("metrics textfile write failed", "path", path, "error", err)
			}
		}
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	a.Clients.Close()
	if a.closeDB != nil {
		_ = a.closeDB()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
