// Package main runs the webinar registration HTTP server with graceful shutdown.
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

	"github.com/aspire-webinars/backend/config"
	"github.com/aspire-webinars/backend/internal/auth"
	"github.com/aspire-webinars/backend/internal/emaillogs"
	"github.com/aspire-webinars/backend/internal/middleware"
	"github.com/aspire-webinars/backend/internal/notifications"
	"github.com/aspire-webinars/backend/internal/payments"
	"github.com/aspire-webinars/backend/internal/registrations"
	"github.com/aspire-webinars/backend/internal/webinars"
	"github.com/aspire-webinars/backend/internal/worker"
	"github.com/aspire-webinars/backend/pkg/database"
	"github.com/aspire-webinars/backend/pkg/queue"
	"github.com/aspire-webinars/backend/pkg/redis"
	"github.com/aspire-webinars/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authHandler := auth.NewHandler(cfg.Admin, jwtService, logger)

	// Webinars
	webinarRepo := webinars.NewRepository(pool)
	webinarHandler := webinars.NewHandler(webinarRepo)

	// Payments
	gateway := payments.NewClient(cfg.Razorpay, cfg.App.Currency, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationService := registrations.NewService(registrationRepo, webinarRepo, gateway, jobQueue, cfg.App.RegistrationFee, logger)
	registrationHandler := registrations.NewHandler(registrationService, registrationRepo, jobQueue, jwtService, gateway.KeyID(), cfg.App.RegistrationFee, logger)

	paymentService := payments.NewService(registrationRepo, jobQueue, cfg.Razorpay.KeySecret, logger)
	paymentHandler := payments.NewHandler(paymentService)

	// Email logs and bulk mail
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo, jobQueue, logger)

	// Email worker (in-process)
	sender := notifications.NewSMTPSender(cfg.Email, logger)
	dispatcher := notifications.NewDispatcher(sender, time.Duration(cfg.Email.BulkDelayMs)*time.Millisecond, logger)
	emailProcessor := worker.NewEmailProcessor(registrationRepo, webinarRepo, emailLogsRepo, dispatcher, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: open webinars and registration with payment initiation
	router.GET("/webinars", webinarHandler.ListOpen)
	router.GET("/webinars/:id", webinarHandler.GetOpen)
	router.POST("/register", registrationHandler.Register)
	router.POST("/payments/callback", paymentHandler.Callback)

	// Auth (public)
	router.POST("/admin/login", authHandler.Login)

	// Attendee (JWT from registration)
	me := router.Group("/registrations")
	me.Use(middleware.JWT(jwtService), middleware.RequireRole(auth.RoleAttendee))
	{
		me.GET("/me", registrationHandler.Me)
	}

	// Admin (JWT required)
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/dashboard", registrationHandler.Dashboard)

		admin.GET("/webinars", webinarHandler.List)
		admin.POST("/webinars", webinarHandler.Create)
		admin.GET("/webinars/deleted", webinarHandler.ListDeleted)
		admin.PATCH("/webinars/:id", webinarHandler.Update)
		admin.DELETE("/webinars/:id", webinarHandler.Delete)
		admin.POST("/webinars/:id/restore", webinarHandler.Restore)

		admin.GET("/registrations", registrationHandler.List)
		admin.GET("/registrations/export", registrationHandler.Export)
		admin.DELETE("/registrations/:id", registrationHandler.Delete)
		admin.POST("/registrations/:id/resend", registrationHandler.Resend)

		admin.GET("/emails", emailLogsHandler.List)
		admin.POST("/emails/bulk", emailLogsHandler.SendBulk)
		admin.POST("/emails/reminders", emailLogsHandler.SendReminders)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (transactional, bulk and reminder emails)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go emailProcessor.Run(workerCtx)
	logger.Info("email worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
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
