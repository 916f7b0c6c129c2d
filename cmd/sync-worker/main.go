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

	"github.com/noah-isme/sis-sync-api/internal/handler"
	"github.com/noah-isme/sis-sync-api/internal/models"
	"github.com/noah-isme/sis-sync-api/internal/repository"
	"github.com/noah-isme/sis-sync-api/internal/sync"
	"github.com/noah-isme/sis-sync-api/pkg/cache"
	"github.com/noah-isme/sis-sync-api/pkg/config"
	"github.com/noah-isme/sis-sync-api/pkg/database"
	"github.com/noah-isme/sis-sync-api/pkg/logger"
	reqidmiddleware "github.com/noah-isme/sis-sync-api/pkg/middleware/requestid"
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
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer rdb.Close()

	sources := repository.NewSourceRepository(db)
	schools := repository.NewSchoolRepository(db)
	lmsRepo := repository.NewLMSRepository(db)
	classes := repository.NewClassRepository(db)
	courses := repository.NewCourseRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	scores := repository.NewScoreRepository(db)
	users := repository.NewUserRepository(db)
	gradeScales := repository.NewGradeScaleRepository(db)
	catalog := repository.NewActivityCatalogRepository(db)
	docs := repository.NewDocumentRepository(rdb, logr)

	grading := sync.NewGradingService(classes, gradeScales)
	aggregates := sync.NewAggregateService(docs)
	metrics := sync.NewMetrics()

	runner := sync.NewRunner(sync.RunnerConfig{
		Sources:         sources,
		Schools:         schools,
		SchoolDocs:      docs,
		LMS:             lmsRepo,
		Notifier:        sync.NewLogNotifier(logr),
		Metrics:         metrics,
		BatchLimit:      cfg.Sync.BatchLimit,
		DefaultSchoolID: cfg.Sync.DefaultSchoolID,
		Logger:          logr,
	})

	router := sync.NewRouter(sync.RouterConfig{
		Client:    rdb,
		Runner:    runner,
		QueueName: cfg.Sync.QueueName,
		DLQSuffix: cfg.Sync.DLQSuffix,
		Workers:   cfg.Sync.Workers,
		Logger:    logr,
	})
	for _, s := range []sync.Synchronizer{
		sync.NewAgilixZoneSynchronizer(schools, docs, logr),
		sync.NewEdmentumZoneSynchronizer(schools, docs, cfg.Sync.EdmentumReservedProgramID, logr),
		sync.NewAgilixCourseSynchronizer(courses, docs, logr),
		sync.NewEdmentumCourseSynchronizer(courses, docs, logr),
		sync.NewAgilixClassSynchronizer(classes, courses, docs, cfg.Sync.ConflictGrace, logr),
		sync.NewEdmentumClassSynchronizer(classes, courses, docs, cfg.Sync.ConflictGrace, logr),
		sync.NewAgilixAssignmentSynchronizer(assignments, classes, users, logr),
		sync.NewEdmentumAssignmentSynchronizer(assignments, classes, users, logr),
		sync.NewAgilixScoreSynchronizer(scores, users, grading, aggregates, logr),
		sync.NewEdmentumScoreSynchronizer(scores, users, grading, aggregates, logr),
		sync.NewAgilixActivitySynchronizer(docs, scores, classes, users, aggregates, logr),
		sync.NewEdmentumActivitySynchronizer(docs, catalog, assignments, scores, classes, users, aggregates, logr),
	} {
		router.Register(s)
	}

	scheduler := sync.NewScheduler(rdb, cfg.Sync.QueueName, logr)
	for _, lms := range []models.LMSName{models.LMSAgilix, models.LMSEdmentum} {
		scheduler.Add(models.SyncJobZone, lms, cfg.Sync.ZoneInterval)
		scheduler.Add(models.SyncJobCourse, lms, cfg.Sync.CourseInterval)
		scheduler.Add(models.SyncJobClass, lms, cfg.Sync.ClassInterval)
		scheduler.Add(models.SyncJobAssignment, lms, cfg.Sync.AssignmentInterval)
		scheduler.Add(models.SyncJobScore, lms, cfg.Sync.ScoreInterval)
		scheduler.Add(models.SyncJobActivity, lms, cfg.Sync.ActivityInterval)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	syncHandler := handler.NewSyncHandler(rdb, cfg.Sync.QueueName, metrics, docs)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))

	r.GET("/health", syncHandler.Health)
	r.GET("/ready", syncHandler.Ready)
	r.GET("/metrics", syncHandler.Prometheus)
	internalGroup := r.Group("/internal/sync")
	{
		internalGroup.POST("/trigger", syncHandler.Trigger)
		internalGroup.GET("/classes/:classID/aggregate", syncHandler.Aggregate)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router.Start(ctx)
	scheduler.Start(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
	go func() {
		logr.Sugar().Infow("worker starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	scheduler.Stop()
	router.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	logr.Sugar().Infow("worker stopped")
}
