package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invobridge/funding-portal-backend/internal/auth"
	"invobridge/funding-portal-backend/internal/config"
	"invobridge/funding-portal-backend/internal/currency"
	"invobridge/funding-portal-backend/internal/funding"
	"invobridge/funding-portal-backend/internal/funding/engine"
	"invobridge/funding-portal-backend/internal/invoice"
	"invobridge/funding-portal-backend/internal/notifications"
	"invobridge/funding-portal-backend/internal/notifications/websocket"
	"invobridge/funding-portal-backend/internal/payments"
	"invobridge/funding-portal-backend/internal/portfolio"
	"invobridge/funding-portal-backend/internal/settings"
	"invobridge/funding-portal-backend/internal/statements"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	gormDB, err := gorm.Open(gormpostgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&invoice.Invoice{},
		&engine.Pool{},
		&engine.Investment{},
		&payments.PayoutInstruction{},
		&settings.Profile{},
		&settings.NotificationPreferences{},
	); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Portfolio queries run over sqlx against the same database.
	sqlxDB, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer sqlxDB.Close()

	// Funding engine
	eng := engine.New(engine.Config{
		FeeBps:           cfg.Engine.FeeBps,
		GracePeriod:      cfg.Engine.GracePeriod(),
		MinInvestmentBps: cfg.Engine.MinInvestmentBps,
		MaxInvestmentBps: cfg.Engine.MaxInvestmentBps,
		Currency:         cfg.Engine.Currency,
	})

	// Notifications
	wsManager := websocket.NewManager(logger)
	notifier := notifications.NewService(wsManager, logger)

	// Services
	authService := auth.NewService(cfg.Security.JWTSecret, cfg.Security.TokenTTL())
	invoiceService := invoice.NewService(invoice.NewRepository(gormDB), logger)
	rateService := currency.NewService(
		currency.NewStaticRateSource(cfg.Currency.Rates),
		cfg.Currency.BufferBps,
		cfg.Currency.LockTTL(),
		logger,
	)

	platformAccount := uuid.Nil
	if cfg.Engine.PlatformAccount != "" {
		platformAccount, err = uuid.Parse(cfg.Engine.PlatformAccount)
		if err != nil {
			logger.Fatal("Invalid platform account", zap.Error(err))
		}
	}
	payoutService := payments.NewService(payments.NewRepository(gormDB), platformAccount, logger)

	fundingService := funding.NewService(
		eng,
		funding.NewRepository(gormDB),
		invoiceService,
		payoutService,
		rateService,
		notifier,
		logger,
	)
	statementService := statements.NewService(fundingService, logger)

	// Rebuild the in-memory arena before accepting traffic.
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 30*time.Second)
	if err := fundingService.Restore(restoreCtx); err != nil {
		cancelRestore()
		logger.Fatal("Failed to restore pools", zap.Error(err))
	}
	cancelRestore()

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Token issuance and identity echo
	auth.RegisterRoutes(router, auth.NewHandler(authService))

	fundingHandler := funding.NewHandler(fundingService, payoutService, logger)

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.Middleware(authService))
	{
		invoice.NewHandler(invoiceService, logger).RegisterRoutes(api)
		fundingHandler.RegisterRoutes(api)
		currency.NewHandler(rateService, logger).RegisterRoutes(api)
		portfolio.NewHandler(portfolio.NewRepository(sqlxDB), logger).RegisterRoutes(api)
		statements.NewHandler(statementService, logger).RegisterRoutes(api)
		settings.NewHandler(settings.NewService(settings.NewRepository(gormDB), logger), logger).RegisterRoutes(api)
	}

	admin := router.Group("/api/v1/admin")
	admin.Use(auth.Middleware(authService), auth.RequireRole(auth.RoleAdmin, auth.RoleOperator))
	{
		fundingHandler.RegisterAdminRoutes(admin)
	}

	// Live pool events
	router.GET("/ws", auth.Middleware(authService), func(c *gin.Context) {
		userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
		if _, err := wsManager.HandleConnection(c.Writer, c.Request, userID.String()); err != nil {
			logger.Error("WebSocket upgrade failed", zap.Error(err))
		}
	})

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen: %s\n", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", zap.Error(err))
	}
	notifier.Close()

	logger.Info("Server exiting")
}
