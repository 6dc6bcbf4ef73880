package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
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

	_ "github.com/noah-isme/sma-scan-attendance/api/swagger"
	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
	"github.com/noah-isme/sma-scan-attendance/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-scan-attendance/internal/middleware"
	"github.com/noah-isme/sma-scan-attendance/internal/repository"
	"github.com/noah-isme/sma-scan-attendance/internal/service"
	"github.com/noah-isme/sma-scan-attendance/pkg/cache"
	"github.com/noah-isme/sma-scan-attendance/pkg/config"
	"github.com/noah-isme/sma-scan-attendance/pkg/database"
	"github.com/noah-isme/sma-scan-attendance/pkg/jobs"
	"github.com/noah-isme/sma-scan-attendance/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-scan-attendance/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-scan-attendance/pkg/middleware/requestid"
	"github.com/noah-isme/sma-scan-attendance/pkg/storage"
)

// @title Scan Attendance API
// @version 1.0.0
// @description Fingerprint scan classification and attendance summaries for multiple schools
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	redisClient := connectRedis(ctx, cfg, logr)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Policy.CacheTTL, logr, cfg.Policy.CacheEnabled && redisClient != nil)

	scanRepo := repository.NewScanRepository(db)
	policyRepo := repository.NewPolicyRepository(db)

	policySvc := service.NewPolicyService(policyRepo, cacheSvc, validate, logr, service.PolicyServiceConfig{
		CacheTTL: cfg.Policy.CacheTTL,
		Default:  defaultPolicy(cfg.Policy, logr),
	})
	if err := policySvc.ResetCache(ctx); err != nil {
		logr.Warn("failed to reset policy cache", zap.Error(err))
	}
	attendanceSvc := service.NewAttendanceService(policySvc, scanRepo, metricsSvc, validate, logr, service.AttendanceServiceConfig{
		MaxRangeDays: cfg.Scans.MaxRangeDays,
	})
	scanSvc := service.NewScanService(scanRepo, policySvc, metricsSvc, validate, logr, service.ScanServiceConfig{
		MaxRangeDays: cfg.Scans.MaxRangeDays,
	})

	var reportHandler *handler.ReportHandler
	if cfg.Reports.Enabled {
		queue, reportSvc := startReports(ctx, cfg, db, scanRepo, policySvc, metricsSvc, validate, logr)
		defer queue.Stop()
		reportHandler = handler.NewReportHandler(reportSvc)
	} else {
		reportHandler = handler.NewReportHandler(nil)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	registerRoutes(api, routeHandlers{
		attendance: handler.NewAttendanceHandler(attendanceSvc),
		policies:   handler.NewPolicyHandler(policySvc),
		scans:      handler.NewScanHandler(scanSvc),
		reports:    reportHandler,
		metrics:    metricsHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}

type routeHandlers struct {
	attendance *handler.AttendanceHandler
	policies   *handler.PolicyHandler
	scans      *handler.ScanHandler
	reports    *handler.ReportHandler
	metrics    *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, h routeHandlers) {
	att := api.Group("/attendance")
	att.POST("/classify", h.attendance.Classify)
	att.POST("/enhance", h.attendance.Enhance)
	att.POST("/summary/day", h.attendance.SummarizeDay)
	att.POST("/summary/period", h.attendance.SummarizePeriod)
	att.GET("/statuses", h.attendance.Statuses)

	schools := api.Group("/schools/:schoolId")
	schools.GET("/policy", h.policies.Get)
	schools.PUT("/policy", h.policies.Update)
	schools.POST("/scans", h.scans.Ingest)
	schools.GET("/scans", h.scans.List)
	schools.GET("/attendance/daily", h.attendance.Daily)

	api.POST("/reports", h.reports.GenerateReport)
	api.GET("/reports/:id", h.reports.ReportStatus)
	api.GET("/export/:token", h.reports.DownloadReport)

	api.GET("/metrics/summary", h.metrics.Snapshot)
}

// connectRedis returns nil when Redis is unreachable; policy lookups then go
// straight to Postgres.
func connectRedis(ctx context.Context, cfg *config.Config, logr *zap.Logger) *redis.Client {
	if !cfg.Policy.CacheEnabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, policy cache disabled", zap.Error(err))
		return nil
	}
	return client
}

func defaultPolicy(cfg config.PolicyConfig, logr *zap.Logger) *attendance.TimePolicy {
	if !cfg.UseDefault {
		return nil
	}
	policy, err := attendance.ParsePolicy(cfg.SchoolStartTime, cfg.SchoolEndTime, cfg.LateArrivalThreshold, cfg.EarlyDepartureThreshold)
	if err == nil {
		err = policy.Validate()
	}
	if err != nil {
		logr.Warn("default time policy ignored", zap.Error(err))
		return nil
	}
	return policy
}

func startReports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	scanRepo *repository.ScanRepository,
	policySvc *service.PolicyService,
	metricsSvc *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) (*jobs.Queue, *service.ReportService) {
	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(scanRepo, policySvc, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr)

	reportRepo := repository.NewReportRepository(db)
	worker := service.NewReportWorker(reportRepo, exportSvc, metricsSvc, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Reports.WorkerConcurrency,
		MaxRetries:  cfg.Reports.WorkerRetries,
		RetryDelay:  5 * time.Second,
		Logger:      logr,
		OnExhausted: worker.Exhausted,
	})
	metricsSvc.TrackQueueDepth(queue.Pending)
	queue.Start(ctx)

	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)
	return queue, reportSvc
}
