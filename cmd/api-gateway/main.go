package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/timegrid-api/api/swagger"
	"github.com/noah-isme/timegrid-api/internal/generator"
	"github.com/noah-isme/timegrid-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timegrid-api/internal/middleware"
	"github.com/noah-isme/timegrid-api/internal/repository"
	"github.com/noah-isme/timegrid-api/internal/service"
	"github.com/noah-isme/timegrid-api/internal/timetable"
	"github.com/noah-isme/timegrid-api/pkg/cache"
	"github.com/noah-isme/timegrid-api/pkg/config"
	"github.com/noah-isme/timegrid-api/pkg/database"
	"github.com/noah-isme/timegrid-api/pkg/export"
	"github.com/noah-isme/timegrid-api/pkg/jobs"
	"github.com/noah-isme/timegrid-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timegrid-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timegrid-api/pkg/middleware/requestid"
	"github.com/noah-isme/timegrid-api/pkg/storage"
)

// @title Timegrid API
// @version 1.0.0
// @description Weekly timetable editing: generation, block moves, conflict detection, saving and exports
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var (
		redisClient *redis.Client
		cacheRepo   service.CacheRepository
	)
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, timetable cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	genClient := generator.NewClient(generator.Config{
		BaseURL:       cfg.Generator.BaseURL,
		Timeout:       cfg.Generator.Timeout,
		Retries:       cfg.Generator.Retries,
		RatePerSecond: cfg.Generator.RatePerSecond,
	}, nil, logr)

	frame, err := timetable.FrameSlots(cfg.Grid.DayStart, cfg.Grid.DayEnd, cfg.Grid.Break, cfg.Grid.SlotMinutes)
	if err != nil {
		return fmt.Errorf("grid frame: %w", err)
	}

	timetables := service.NewTimetableService(
		genClient,
		repository.NewTimetableRepository(db),
		cacheSvc,
		metrics,
		validate,
		logr,
		service.TimetableServiceConfig{
			Days:          cfg.Grid.Days,
			SlotMinutes:   cfg.Grid.SlotMinutes,
			FrameSlots:    frame,
			SessionTTL:    cfg.Sessions.TTL,
			SweepInterval: cfg.Sessions.SweepInterval,
			CacheTTL:      cfg.Cache.TTL,
		},
	)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: signer.TTL(),
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	exportRepo := repository.NewExportJobRepository(db)
	exportJobs := service.NewExportJobService(exportRepo, timetables, nil, exporter, metrics, validate, logr, service.ExportJobServiceConfig{
		ResultTTL:       signer.TTL(),
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	worker := service.NewExportWorker(exportRepo, exporter, metrics, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Exports.WorkerConcurrency,
		MaxRetries:  cfg.Exports.WorkerRetries,
		Logger:      logr,
		OnExhausted: exportJobs.HandleExhausted,
	})
	exportJobs.SetQueue(queue)
	if err := metrics.RegisterQueueDepth(queue.Name(), queue.Depth); err != nil {
		logr.Warn("queue depth metric not registered", zap.Error(err))
	}
	exportJobs.RecoverInterrupted(ctx)
	queue.Start(ctx)
	defer queue.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	handler.RegisterObservability(r, handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)))
	handler.RegisterRoutes(
		r.Group(cfg.APIPrefix),
		handler.NewTimetableHandler(timetables, exportJobs),
		handler.NewExportHandler(exportJobs),
	)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logr.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return timetables.RunSweeper(gctx)
	})
	g.Go(func() error {
		return exportJobs.RunCleanup(gctx)
	})

	return g.Wait()
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
