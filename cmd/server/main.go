// Package main runs the enablement portal API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/elevate-portal/backend/config"
	"github.com/elevate-portal/backend/internal/auth"
	"github.com/elevate-portal/backend/internal/catalog"
	"github.com/elevate-portal/backend/internal/metadata"
	"github.com/elevate-portal/backend/internal/middleware"
	"github.com/elevate-portal/backend/internal/models"
	"github.com/elevate-portal/backend/pkg/dynamo"
	"github.com/elevate-portal/backend/pkg/queue"
	"github.com/elevate-portal/backend/pkg/redis"
	"github.com/elevate-portal/backend/pkg/response"
	"github.com/elevate-portal/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	db, err := dynamo.NewClient(ctx, dynamo.Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.DynamoEndpoint,
	}, logger)
	if err != nil {
		logger.Fatal("dynamodb", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.Assets.Bucket != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AssetsBucket:         cfg.Assets.Bucket,
			PresignExpireMinutes: cfg.Assets.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("asset storage disabled", zap.Error(err))
		}
	}

	var verifier middleware.TokenVerifier
	if cfg.Cognito.Configured() {
		v, err := auth.NewVerifier(ctx, cfg.Cognito.JWKSURL(), cfg.Cognito.IssuerURL(), cfg.Cognito.ClientID, logger)
		if err != nil {
			logger.Fatal("token verifier", zap.Error(err))
		}
		verifier = v
	} else {
		logger.Warn("no Cognito user pool configured; dev header fallback active", zap.String("env", cfg.Env))
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Taxonomy
	optionRepo := metadata.NewRepository(db, cfg.Tables.Options)
	courseRepo := catalog.NewCourseRepository(db, cfg.Tables.Courses)
	contentRepo := catalog.NewContentRepository(db, cfg.Tables.Content)
	taxonomySvc := metadata.NewService(optionRepo, courseRepo, contentRepo, cfg.Migration, logger)
	taxonomyHandler := metadata.NewHandler(taxonomySvc, jobQueue, logger)

	// Catalog read surface
	catalogHandler := catalog.NewHandler(courseRepo, contentRepo, s3Client, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Protected API (token required; viewer role by default)
	v1 := router.Group("/v1")
	v1.Use(middleware.RateLimit(rdb.Client, cfg.RateLimit.RequestsPerMinute, logger))
	v1.Use(middleware.Auth(verifier, cfg.DevFallbackEnabled(), logger))
	{
		admin := middleware.RequireRole(models.RoleAdmin)

		// Metadata taxonomy
		v1.GET("/metadata/migration/scan", admin, taxonomyHandler.MigrationScan)
		v1.POST("/metadata/migration/apply", admin, taxonomyHandler.MigrationApply)
		v1.GET("/metadata/:groupKey/options", taxonomyHandler.List)
		v1.POST("/metadata/:groupKey/options", admin, taxonomyHandler.Create)
		v1.PATCH("/metadata/options/:optionId", admin, taxonomyHandler.Update)
		v1.GET("/metadata/:groupKey/options/:optionId/usage", admin, taxonomyHandler.Usage)
		v1.DELETE("/metadata/:groupKey/options/:optionId", admin, taxonomyHandler.Delete)
		v1.POST("/metadata/:groupKey/options/:optionId/merge", admin, taxonomyHandler.Merge)

		// Catalog
		v1.GET("/courses", catalogHandler.ListCourses)
		v1.GET("/courses/:id", catalogHandler.GetCourse)
		v1.GET("/content", catalogHandler.ListContent)
		v1.GET("/content/:id", catalogHandler.GetContent)
		v1.GET("/content/:id/download-url", catalogHandler.DownloadURL)
		v1.POST("/content/:id/asset-upload-url", middleware.RequireRole(models.RoleContributor), catalogHandler.AssetUploadURL)
		v1.POST("/content/:id/asset", middleware.RequireRole(models.RoleContributor), catalogHandler.UploadAsset)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
