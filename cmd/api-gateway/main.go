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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/santri-dokumen-api/api/swagger"
	"github.com/noah-isme/santri-dokumen-api/internal/handler"
	"github.com/noah-isme/santri-dokumen-api/internal/middleware"
	"github.com/noah-isme/santri-dokumen-api/internal/repository"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
	"github.com/noah-isme/santri-dokumen-api/internal/service"
	"github.com/noah-isme/santri-dokumen-api/pkg/cache"
	"github.com/noah-isme/santri-dokumen-api/pkg/config"
	"github.com/noah-isme/santri-dokumen-api/pkg/database"
	"github.com/noah-isme/santri-dokumen-api/pkg/jobs"
	"github.com/noah-isme/santri-dokumen-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/santri-dokumen-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/santri-dokumen-api/pkg/middleware/requestid"
	"github.com/noah-isme/santri-dokumen-api/pkg/storage"
	"github.com/noah-isme/santri-dokumen-api/pkg/validation"
)

// @title Santri Dokumen API
// @version 1.0.0
// @description Document requirement resolution, uploads and verification for santri administration.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}

	var cacheRepo service.CacheRepository
	if cfg.Requirements.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("requirements cache disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
			checks["redis"] = redisRepo.Ping
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Requirements.CacheTTL, logr, cacheRepo != nil)

	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	downloadURL := cfg.APIPrefix + "/files/download"
	store, local, err := buildStorage(cfg, signer, downloadURL, logr)
	if err != nil {
		logr.Fatal("storage unavailable", zap.Error(err))
	}

	validator := validation.New()
	resolver := requirement.NewResolver(requirement.WithHomeLocality(cfg.Requirements.HomeLocality))
	students := repository.NewStudentRepository(db)
	guardians := repository.NewGuardianRepository(db)

	documentSvc := service.NewDocumentService(repository.NewDocumentRepository(db), metrics, logr)
	studentSvc := service.NewStudentService(students, guardians, documentSvc, resolver, cacheSvc, metrics, logr)
	uploadSvc := service.NewUploadService(studentSvc, documentSvc, store, metrics, logr, service.UploadConfig{MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes})
	registrationSvc := service.NewRegistrationService(students, guardians, resolver, validator, logr)
	exportSvc := service.NewExportService(studentSvc, store, logr)

	handlers := handler.Handlers{
		Requirements:  handler.NewRequirementHandler(studentSvc),
		Students:      handler.NewStudentHandler(studentSvc, documentSvc, exportSvc, validator),
		Documents:     handler.NewDocumentHandler(uploadSvc, documentSvc, validator, cfg.Uploads.MaxFileSizeBytes),
		Registrations: handler.NewRegistrationHandler(registrationSvc),
		Reports:       handler.NewReportHandler(nil, validator),
	}
	if local != nil {
		handlers.Downloads = handler.NewDownloadHandler(signer, local)
	}

	if cfg.Reports.Enabled {
		reportRepo := repository.NewReportJobRepository(db)
		worker := service.NewReportWorker(reportRepo, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("completeness-reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc := service.NewReportService(reportRepo, queue, metrics, logr)
		if n := reportSvc.RecoverPendingJobs(ctx); n > 0 {
			logr.Info("requeued pending report jobs", zap.Int("count", n))
		}
		handlers.Reports = handler.NewReportHandler(reportSvc, validator)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.ResponseMeta())

	ops := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := service.NewAuthService(logr, service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience})
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, auth, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// buildStorage returns the configured blob store and, for the local driver,
// the disk store that backs /files/download.
func buildStorage(cfg *config.Config, signer *storage.SignedURLSigner, downloadURL string, logr *zap.Logger) (storage.BlobStore, *storage.LocalStorage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverBucket:
		bucket, err := storage.NewBucketStorage(storage.BucketConfig{
			BaseURL: cfg.Storage.BucketBaseURL,
			Bucket:  cfg.Storage.BucketName,
			APIKey:  cfg.Storage.BucketAPIKey,
			Timeout: cfg.Storage.BucketTimeout,
		}, logr)
		if err != nil {
			return nil, nil, err
		}
		return bucket, nil, nil
	case config.StorageDriverLocal, "":
		local, err := storage.NewLocalStorage(cfg.Storage.Dir, downloadURL, signer)
		if err != nil {
			return nil, nil, err
		}
		return local, local, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
