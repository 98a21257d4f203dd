package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/shule-ratiba-api/internal/dto"
	"github.com/noah-isme/shule-ratiba-api/internal/handler"
	appmiddleware "github.com/noah-isme/shule-ratiba-api/internal/middleware"
	"github.com/noah-isme/shule-ratiba-api/internal/repository"
	"github.com/noah-isme/shule-ratiba-api/internal/service"
	"github.com/noah-isme/shule-ratiba-api/pkg/cache"
	"github.com/noah-isme/shule-ratiba-api/pkg/config"
	"github.com/noah-isme/shule-ratiba-api/pkg/database"
	"github.com/noah-isme/shule-ratiba-api/pkg/jobs"
	"github.com/noah-isme/shule-ratiba-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/shule-ratiba-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/shule-ratiba-api/pkg/middleware/requestid"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var timetableCache *service.TimetableCache
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		timetableCache = service.NewTimetableCache(redisClient, cfg.Timetable.ClassViewTTL, cfg.Timetable.ReportRetention)
	}

	metricsSvc := service.NewMetricsService()

	periodRepo := repository.NewPeriodSlotRepository(db)
	classRepo := repository.NewClassGroupRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	timetableSvc := service.NewTimetableService(
		periodRepo,
		classRepo,
		assignmentRepo,
		timetableRepo,
		timetableCache,
		metricsSvc,
		nil,
		logr,
		service.TimetableServiceConfig{
			EarlyPeriods:   cfg.Timetable.EarlyPeriods,
			MaxFinalBlanks: cfg.Timetable.MaxFinalBlanks,
		},
	)

	var queue *jobs.Queue
	if cfg.Scheduler.Enabled {
		// One worker: generation runs execute strictly one at a time.
		queue = jobs.NewQueue(handler.JobTypeGenerate, func(ctx context.Context, job jobs.Job) error {
			req, ok := job.Payload.(dto.GenerateTimetableRequest)
			if !ok {
				return fmt.Errorf("unexpected payload for job %s", job.ID)
			}
			runCtx, cancel := context.WithTimeout(ctx, cfg.Scheduler.RunTimeout)
			defer cancel()
			_, err := timetableSvc.Generate(runCtx, req)
			return err
		}, jobs.QueueConfig{Workers: 1, BufferSize: cfg.Scheduler.QueueBuffer, Logger: logr})
		queue.Start(context.Background())
		defer queue.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(appmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	handler.NewTimetableHandler(timetableSvc, queue).Register(api)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
