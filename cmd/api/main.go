package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/vigilo-edu/vigilo-go-api/internal/config"
	"github.com/vigilo-edu/vigilo-go-api/internal/database"
	"github.com/vigilo-edu/vigilo-go-api/internal/handler"
	"github.com/vigilo-edu/vigilo-go-api/internal/middleware"
	"github.com/vigilo-edu/vigilo-go-api/internal/models"
	"github.com/vigilo-edu/vigilo-go-api/internal/repository"
	"github.com/vigilo-edu/vigilo-go-api/internal/router"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
	"github.com/vigilo-edu/vigilo-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.SecurityPolicy{},
		&models.SecuritySession{},
		&models.SecurityViolation{},
		&models.TeacherVerification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	sessionRepo := repository.NewSessionRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	monitorService := service.NewMonitorService(redisClient, cfg.MonitorChannel, natsConn, logger)
	engine := security.NewEngine(sessionRepo, verificationRepo, monitorService, logger)
	verifier := security.NewVerifier(cfg.TeacherVerificationTTL)
	sweeper := security.NewSweeper(engine, cfg.SweepInterval, logger)

	sessionService := service.NewSessionService(engine, sessionRepo, policyRepo, validate, logger)
	policyService := service.NewPolicyService(policyRepo, validate, logger)
	verificationService := service.NewVerificationService(verifier, verificationRepo, policyRepo, validate, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, redisClient, cfg.AnalyticsCacheTTL, logger)

	sessionHandler := handler.NewSessionHandler(sessionService, validate, logger)
	policyHandler := handler.NewPolicyHandler(policyService, logger)
	verificationHandler := handler.NewVerificationHandler(verificationService, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, logger)
	monitorHandler := handler.NewMonitorHandler(monitorService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:      sessionHandler,
		PolicyHandler:       policyHandler,
		VerificationHandler: verificationHandler,
		AnalyticsHandler:    analyticsHandler,
		MonitorHandler:      monitorHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		EventRateLimiter:    middleware.RateLimit("security-events", cfg.EventRateLimit, cfg.EventRateWindow),
	})

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	defer cancelMonitor()
	monitorService.Start(monitorCtx)

	sweeper.Start()

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, sweeper, cancelMonitor)
}

func waitForShutdown(app *fiber.App, sweeper *security.Sweeper, cancelMonitor context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	sweeper.Stop()
	cancelMonitor()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
