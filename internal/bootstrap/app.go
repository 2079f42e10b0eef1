package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"filegate/internal/activity"
	"filegate/internal/files"
	"filegate/internal/services/health"
	"filegate/internal/shared/config"
	"filegate/internal/shared/metrics"
	"filegate/internal/shared/server"
	"filegate/internal/shared/server/middleware"
	"filegate/internal/shared/storage/db"
	"filegate/internal/shared/storage/object"
	localstore "filegate/internal/shared/storage/object/local"
	s3store "filegate/internal/shared/storage/object/s3"
	"filegate/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.ObjectStore
	ActivityRepo    activity.Repo
	FilesService    *files.Service
	FilesHandler    *files.Handler
	ActivityHandler *activity.Handler
}

// Build wires config, database, object store, services and routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.SetLevel(cfg.LogLevel)
	metrics.Init()
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	buildServices(app)

	healthSvc := health.NewService(nil)
	if sqlDB != nil {
		healthSvc = health.NewService(sqlDB)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      app.Config,
		Registrars:  []server.RouteRegistrar{app.FilesHandler, app.ActivityHandler},
		RateLimiter: middleware.NewRateLimiter(nil),
		Health:      healthSvc,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"database":     sqlDB != nil,
	})
	return app, nil
}

// Close releases the database pool and flushes logs.
func (a *App) Close() error {
	var err error
	if a.DB != nil && !db.IsLambdaRuntime() {
		err = a.DB.Close()
	}
	telemetry.Sync()
	return err
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database.memory_fallback", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database.memory_fallback", map[string]any{"reason": "connect failed", "err": err})
			return nil, nil
		}
		return nil, err
	}

	// Lambda deployments migrate through cmd/migrate.
	if !db.IsLambdaRuntime() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			KMSKeyID:        cfg.SSEKMSKeyID,
			Endpoint:        cfg.S3Endpoint,
			ForcePathStyle:  cfg.S3ForcePathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) {
	var activityRepo activity.Repo
	if app.DB != nil {
		activityRepo = &activity.PGRepo{DB: app.DB}
	} else {
		activityRepo = activity.NewMemoryRepo()
	}

	svc := files.NewService(
		app.Store,
		files.WithMaxAttempts(app.Config.UploadAttempts),
		files.WithRecorder(activityRepo),
	)

	app.ActivityRepo = activityRepo
	app.FilesService = svc
	app.FilesHandler = files.NewHandler(svc, app.Config.MaxUploadBytes)
	app.ActivityHandler = activity.NewHandler(activityRepo)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
