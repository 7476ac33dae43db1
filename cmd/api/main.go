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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/dto"
	"github.com/coursescout/coursescout-api/internal/handler"
	"github.com/coursescout/coursescout-api/internal/middleware"
	"github.com/coursescout/coursescout-api/internal/repository"
	"github.com/coursescout/coursescout-api/internal/scraper"
	"github.com/coursescout/coursescout-api/internal/service"
	"github.com/coursescout/coursescout-api/pkg/cache"
	"github.com/coursescout/coursescout-api/pkg/config"
	"github.com/coursescout/coursescout-api/pkg/database"
	"github.com/coursescout/coursescout-api/pkg/jobs"
	"github.com/coursescout/coursescout-api/pkg/logger"
	"github.com/coursescout/coursescout-api/pkg/middleware/cors"
	"github.com/coursescout/coursescout-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := dto.RegisterValidators(); err != nil {
		zapLogger.Fatal("register validators", zap.Error(err))
	}

	// Redis is a cache tier, not a system of record: when it is down the
	// service degrades to slower lookups instead of refusing to start.
	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		zapLogger.Warn("redis unavailable, running without the networked cache tier", zap.Error(err))
	} else {
		redisClient = client
		defer func() { _ = redisClient.Close() }()
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connect postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	metrics := service.NewMetricsService()
	cacheService := service.NewCacheService(
		cache.NewMemory(),
		repository.NewCacheRepository(redisClient, zapLogger),
		0,
		metrics,
		zapLogger,
	)

	scrapeLogs := repository.NewScrapeLogRepository(db)

	courseService := service.NewCourseService(
		scraper.NewClient(cfg.Scraper, zapLogger),
		scraper.NewParser(zapLogger),
		cacheService,
		repository.NewCourseRepository(db),
		scrapeLogs,
		service.CourseServiceOptions{
			CacheTTL:     cfg.CacheTTL.Courses,
			SubjectPause: cfg.Scraper.SubjectPause,
		},
		metrics,
		zapLogger,
	)

	ratingService := service.NewRatingService(
		scraper.NewRatingsClient(cfg.Ratings, zapLogger),
		cacheService,
		repository.NewRatingRepository(db),
		scrapeLogs,
		service.RatingServiceOptions{
			SchoolID:   cfg.Ratings.SchoolID,
			SchoolName: cfg.Ratings.SchoolName,
			CacheTTL:   cfg.CacheTTL.Ratings,
		},
		metrics,
		zapLogger,
	)

	matcherService := service.NewMatcherService(metrics, zapLogger)
	exportService := service.NewExportService(zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheHandler := handler.NewCacheHandler(cacheService, nil, zapLogger)
	if cfg.Warmup.Enabled {
		warmupQueue := jobs.NewQueue("cache_warmup", func(ctx context.Context, job jobs.Job) error {
			payload, ok := job.Payload.(service.WarmupJob)
			if !ok {
				return fmt.Errorf("unexpected warm-up payload %T", job.Payload)
			}
			return courseService.Warm(ctx, payload.Term, payload.Subject)
		}, jobs.QueueConfig{
			Workers:    cfg.Warmup.Workers,
			BufferSize: cfg.Warmup.BufferSize,
			MaxRetries: 1,
			Logger:     zapLogger,
		})
		warmupQueue.Start(ctx)
		defer warmupQueue.Stop()
		cacheHandler = handler.NewCacheHandler(cacheService, warmupQueue, zapLogger)
	}

	router := buildRouter(cfg, zapLogger, metrics, routerDeps{
		schedule: handler.NewScheduleHandler(
			courseService,
			matcherService,
			ratingService,
			exportService,
			service.TotalCredits,
			cfg.Scraper.BaseURL,
			zapLogger,
		),
		courses: handler.NewCourseHandler(courseService, zapLogger),
		ratings: handler.NewRatingHandler(ratingService, zapLogger),
		cache:   cacheHandler,
		health:  handler.NewHealthHandler(db, redisClient),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("server listening", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routerDeps struct {
	schedule *handler.ScheduleHandler
	courses  *handler.CourseHandler
	ratings  *handler.RatingHandler
	cache    *handler.CacheHandler
	health   *handler.HealthHandler
}

func buildRouter(cfg *config.Config, zapLogger *zap.Logger, metrics *service.MetricsService, deps routerDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestid.Middleware(),
		logger.GinMiddleware(zapLogger),
		middleware.Metrics(metrics),
		cors.New(cfg.CORS.AllowedOrigins),
	)

	router.GET("/health", deps.health.Health)
	router.GET("/ready", deps.health.Ready)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group(cfg.APIPrefix)
	{
		api.POST("/schedule/generate", deps.schedule.Generate)
		api.POST("/schedule/export", deps.schedule.Export)

		api.GET("/courses/search", deps.courses.Search)

		api.GET("/ratings/:name", deps.ratings.Get)
		api.POST("/ratings/batch", deps.ratings.Batch)

		api.POST("/cache/clear", deps.cache.Clear)
		api.POST("/cache/warm", deps.cache.Warm)
		api.GET("/cache/stats", deps.cache.Stats)
	}

	return router
}
