package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/classsync/classsync-api/api/swagger"
	"github.com/classsync/classsync-api/internal/handler"
	internalmiddleware "github.com/classsync/classsync-api/internal/middleware"
	"github.com/classsync/classsync-api/internal/repository"
	"github.com/classsync/classsync-api/internal/service"
	"github.com/classsync/classsync-api/pkg/cache"
	"github.com/classsync/classsync-api/pkg/clock"
	"github.com/classsync/classsync-api/pkg/config"
	"github.com/classsync/classsync-api/pkg/database"
	"github.com/classsync/classsync-api/pkg/logger"
	"github.com/classsync/classsync-api/pkg/mailer"
	corsmiddleware "github.com/classsync/classsync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classsync/classsync-api/pkg/middleware/requestid"
	"github.com/classsync/classsync-api/pkg/storage"
)

// @title ClassSync API
// @version 1.0.0
// @description Classroom attendance, calendar and class board backend
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	healthChecks := map[string]handler.HealthCheck{"database": db.PingContext}

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, cfg.Redis.KeyPrefix)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
			healthChecks["cache"] = redisRepo.Ping
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	clk := clock.New(cfg.Location())
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	allowRepo := repository.NewAllowedStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	monthlyRepo := repository.NewMonthlyStatRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	pollRepo := repository.NewPollRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	var sender mailer.Sender
	if cfg.Notifications.SendgridAPIKey != "" {
		sender = mailer.NewSendgridSender(cfg.Notifications.SendgridAPIKey, mail.Address{
			Name:    cfg.Notifications.FromName,
			Address: cfg.Notifications.FromAddress,
		}, cfg.Notifications.FromName)
	} else {
		sender = mailer.NewLogSender(logr)
	}
	notifications := service.NewNotificationService(sender, userRepo, configRepo, metrics, service.NotificationOptions{
		Enabled:    cfg.Notifications.Enabled,
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: 2 * time.Second,
	}, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	files, err := storage.NewLocalStorage(cfg.Resources.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare resource storage", zap.Error(err))
	}
	signer := storage.NewDownloadSigner(cfg.Resources.SignedURLSecret, cfg.Resources.SignedURLTTL, clk.Now)

	authSvc := service.NewAuthService(userRepo, sessionRepo, allowRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "classsync-api",
		SingleSession:      cfg.JWT.SingleSession,
		Clock:              clk,
	})
	userSvc := service.NewUserService(userRepo, sessionRepo, clk, validate, logr)
	allowSvc := service.NewAllowedStudentService(allowRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, userRepo, subjectRepo, cacheSvc, metrics, clk, service.AttendanceOptions{
		Threshold:          cfg.Attendance.Threshold,
		DedupeByDate:       cfg.Attendance.DedupeByDate,
		ValidateReferences: cfg.Attendance.ValidateReferences,
	}, validate, logr)
	holidaySvc := service.NewHolidayService(holidayRepo, cacheSvc, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, cacheSvc, notifications, validate, logr)
	monthlySvc := service.NewMonthlyStatService(monthlyRepo, timetableRepo, holidayRepo, cacheSvc, clk, validate, logr)
	exportSvc := service.NewExportService(attendanceSvc, monthlySvc, clk, logr, nil, nil)
	noticeSvc := service.NewNoticeService(noticeRepo, notifications, validate, logr)
	pollSvc := service.NewPollService(pollRepo, notifications, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, notifications, clk, validate, logr)
	resourceSvc := service.NewResourceService(resourceRepo, files, signer, notifications, service.ResourceOptions{
		MaxFileSizeBytes: cfg.Resources.MaxFileSizeBytes,
	}, validate, logr)
	configSvc := service.NewConfigurationService(configRepo, userRepo, clk, validate, logr, service.ConfigurationServiceConfig{})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, healthChecks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	handler.RegisterRoutes(r.Group(prefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		AllowList:     handler.NewAllowedStudentHandler(allowSvc),
		Subjects:      handler.NewSubjectHandler(subjectSvc),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc, exportSvc),
		Calendar:      handler.NewCalendarHandler(holidaySvc, timetableSvc, monthlySvc, exportSvc),
		Board:         handler.NewBoardHandler(noticeSvc, pollSvc, assignmentSvc),
		Resources:     handler.NewResourceHandler(resourceSvc, prefix+"/downloads"),
		Configuration: handler.NewConfigurationHandler(configSvc),
		Audit:         handler.NewAuditHandler(service.NewAuditService(userRepo.AuditRepository, logr), clk.Location()),
		Metrics:       metricsHandler,
	}, handler.RouterDeps{Tokens: authSvc, Audit: userRepo, Logger: logr})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
