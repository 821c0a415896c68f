package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invobridge/funding-portal-backend/internal/config"
	"invobridge/funding-portal-backend/internal/funding"
	"invobridge/funding-portal-backend/internal/funding/engine"
	"invobridge/funding-portal-backend/internal/invoice"
	"invobridge/funding-portal-backend/internal/notifications"
	"invobridge/funding-portal-backend/internal/payments"
)

// DefaultWorker sweeps the pool ledger for disbursed pools past their grace
// window and open pools past their funding deadline, and applies the
// defaulted / closed transitions. Each sweep rebuilds its view from the
// database so pools created after the worker started are still covered.
type DefaultWorker struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *zap.Logger
}

func NewDefaultWorker(db *gorm.DB, cfg *config.Config, logger *zap.Logger) *DefaultWorker {
	return &DefaultWorker{db: db, cfg: cfg, logger: logger}
}

// Sweep runs one pass over all persisted pools.
func (w *DefaultWorker) Sweep(ctx context.Context) error {
	eng := engine.New(engine.Config{
		FeeBps:           w.cfg.Engine.FeeBps,
		GracePeriod:      w.cfg.Engine.GracePeriod(),
		MinInvestmentBps: w.cfg.Engine.MinInvestmentBps,
		MaxInvestmentBps: w.cfg.Engine.MaxInvestmentBps,
		Currency:         w.cfg.Engine.Currency,
	})

	service := funding.NewService(
		eng,
		funding.NewRepository(w.db),
		invoice.NewService(invoice.NewRepository(w.db), w.logger),
		payments.NewService(payments.NewRepository(w.db), platformAccount(w.cfg), w.logger),
		nil, // sweeps never verify rate locks
		notifications.NopNotifier{},
		w.logger,
	)
	if err := service.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore pools: %w", err)
	}

	now := time.Now()
	defaulted := service.ScanDefaults(ctx, now, w.cfg.Engine.GracePeriod())
	expired := service.ExpireStalePools(ctx, now)

	if len(defaulted) > 0 || len(expired) > 0 {
		w.logger.Info("Sweep applied transitions",
			zap.Int("defaulted", len(defaulted)),
			zap.Int("expired", len(expired)))
	}
	return nil
}

func platformAccount(cfg *config.Config) uuid.UUID {
	if cfg.Engine.PlatformAccount == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(cfg.Engine.PlatformAccount)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := gorm.Open(gormpostgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	worker := NewDefaultWorker(db, cfg, logger)

	schedule := os.Getenv("SWEEP_SCHEDULE")
	if schedule == "" {
		schedule = "@every 15m"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		sweepCtx, sweepCancel := context.WithTimeout(ctx, 5*time.Minute)
		defer sweepCancel()
		if err := worker.Sweep(sweepCtx); err != nil {
			logger.Error("Sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("Invalid sweep schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	// Run once immediately so a restart never delays overdue transitions.
	if err := worker.Sweep(ctx); err != nil {
		logger.Error("Initial sweep failed", zap.Error(err))
	}

	c.Start()
	logger.Info("Default worker started", zap.String("schedule", schedule))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down default worker...")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("Default worker exiting")
}
