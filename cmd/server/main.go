package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moh-surveys/survey-service/internal/auth"
	"github.com/moh-surveys/survey-service/internal/cache"
	"github.com/moh-surveys/survey-service/internal/config"
	"github.com/moh-surveys/survey-service/internal/handlers"
	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories/postgres"
	"github.com/moh-surveys/survey-service/internal/services"
	"github.com/moh-surveys/survey-service/internal/utils"
	"github.com/moh-surveys/survey-service/internal/validator"
	"github.com/moh-surveys/survey-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.Governorate{},
		&models.HealthAdministration{},
		&models.User{},
		&models.GovernorateAdmin{},
		&models.UserSurveyGrant{},
		&models.Survey{},
		&models.SurveyField{},
		&models.Response{},
		&models.ResponseDetail{},
		&models.AuditLogEntry{},
	); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// AutoMigrate cannot express a partial expression index. This one backs
	// the once-per-day completion rule against concurrent submissions.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_responses_completed_per_day
		 ON responses (user_id, survey_id, ((submitted_at AT TIME ZONE 'UTC')::date))
		 WHERE is_completed`,
	).Error; err != nil {
		logger.Error("failed to create completion index", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	cacheService := cache.NewRedisCache(redisClient, slogger)

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	v := validator.New()
	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}

	auditService := services.NewAuditService(repo, slogger)
	scopeService := services.NewScopeService(repo, auditService, slogger)
	orgService := services.NewOrgService(repo, auditService, cacheService, slogger, v)
	userService := services.NewUserService(repo, auditService, slogger, v)
	surveyService := services.NewSurveyService(repo, scopeService, auditService, publisher, slogger, v)
	responseService := services.NewResponseService(repo, scopeService, auditService, publisher, slogger, v)
	exportService := services.NewExportService(repo, scopeService, slogger)

	handlerManager := handlers.NewHandlerManager(handlers.Services{
		Org:      orgService,
		User:     userService,
		Scope:    scopeService,
		Survey:   surveyService,
		Response: responseService,
		Audit:    auditService,
		Export:   exportService,
	}, tokenService, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.LoggerMiddleware(logger), gin.Recovery())
	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
