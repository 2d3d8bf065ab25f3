package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/weddia/escrow-api/internal/config"
	"github.com/weddia/escrow-api/internal/database"
	"github.com/weddia/escrow-api/internal/gateway"
	"github.com/weddia/escrow-api/internal/handlers"
	"github.com/weddia/escrow-api/internal/jobs"
	"github.com/weddia/escrow-api/internal/middleware"
	"github.com/weddia/escrow-api/internal/repository"
	"github.com/weddia/escrow-api/internal/scheduler"
	"github.com/weddia/escrow-api/internal/services"
	"github.com/weddia/escrow-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Weddia Escrow API
// @version 1.0
// @description REST API for the Weddia wedding marketplace escrow, contract and dispute ledger

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Run migrations
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("Database migrated")

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize payment gateway client
	gw := gateway.NewHTTPGateway(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)

	// Initialize services
	svcs := services.NewServices(repos, worker, gw, cfg)

	// Start the auto-release scheduler
	sched, err := scheduler.NewManager(svcs, cfg)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	if err := sched.Start(); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	h := handlers.NewHandlers(svcs, worker)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Stop the scheduler, then drain the worker
	sched.Stop()
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Redirect root to swagger
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})

		// Swagger documentation
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		// Health check (public)
		v1.GET("/health", h.Health.Check)

		// Authentication (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Escrow accounts
			escrows := protected.Group("/escrows")
			{
				escrows.POST("", h.Escrow.Create)
				escrows.GET("/:id", h.Escrow.Show)
				escrows.POST("/:id/fund", h.Escrow.Fund)
				escrows.POST("/:id/release", h.Escrow.Release)
				escrows.POST("/:id/refund", h.Escrow.Refund)
				escrows.GET("/:id/transactions", h.Escrow.Transactions)
			}

			// Booking lookups
			protected.GET("/bookings/:booking_id/escrow", h.Escrow.ShowByBooking)
			protected.GET("/bookings/:booking_id/contract", h.Contract.ShowByBooking)

			// Contracts
			contracts := protected.Group("/contracts")
			{
				contracts.POST("", h.Contract.Create)
				contracts.GET("", h.Contract.Index)
				contracts.POST("/generate", h.Contract.Generate)
				contracts.GET("/:id", h.Contract.Show)
				contracts.POST("/:id/sign", h.Contract.Sign)
				contracts.POST("/:id/refund-preview", h.Contract.RefundPreview)
				contracts.PATCH("/:id/milestones/:milestone_id", h.Contract.UpdateMilestone)
				contracts.GET("/:id/pdf", h.Contract.DownloadPDF)
			}

			// Disputes
			disputes := protected.Group("/disputes")
			{
				disputes.POST("", h.Dispute.Create)
				disputes.GET("", h.Dispute.Index)
				disputes.GET("/:id", h.Dispute.Show)
				disputes.POST("/:id/close", h.Dispute.Close)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.Index)
				notifications.POST("/:id/read", h.Notification.MarkRead)
				notifications.POST("/read-all", h.Notification.MarkAllRead)
			}

			// Admin-only routes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/escrows", h.Escrow.Index)
				admin.POST("/escrows/:id/hold", h.Escrow.SetHold)
				admin.GET("/escrows/:id/verify", h.Escrow.VerifyLedger)

				admin.POST("/contracts/templates", h.Contract.CreateTemplate)
				admin.POST("/contracts/:id/cancel", h.Contract.Cancel)

				admin.POST("/disputes/:id/review", h.Dispute.MarkUnderReview)
				admin.POST("/disputes/:id/resolve", h.Dispute.Resolve)

				admin.GET("/reports/transactions/csv", h.Report.TransactionsCSV)
				admin.GET("/reports/transactions/xlsx", h.Report.TransactionsXLSX)
				admin.GET("/reports/escrows/:id/statement/xlsx", h.Report.StatementXLSX)
				admin.GET("/reports/escrows/:id/statement/pdf", h.Report.StatementPDF)
				admin.GET("/reports/audit", h.Report.AuditTrail)
			}
		}
	}

	return router
}
