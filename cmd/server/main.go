package main

import (
	"context"
	"os"

	"github.com/creditgate/creditgate/internal/config"
	"github.com/creditgate/creditgate/internal/middleware"
	"github.com/creditgate/creditgate/internal/models"
	"github.com/creditgate/creditgate/internal/services"
	"github.com/creditgate/creditgate/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warnf("Failed to seed default data: %v", err)
	}

	db := models.GetDB()

	// Core services
	pricingService := services.NewPricingService(db, cfg.Billing)
	if err := pricingService.Reload(); err != nil {
		logger.Fatalf("Failed to load price table: %v", err)
	}
	ledgerService := services.NewLedgerService(db)
	jobService := services.NewJobService(db, pricingService, ledgerService, cfg.Billing)

	// Settlement retry queue: asynq when Redis is enabled, in-process
	// otherwise. Both paths funnel into SettleJob.
	queue := services.InitTaskQueue(cfg)
	jobService.SetQueue(queue)
	defer queue.Close()

	settle := func(ctx context.Context, task *services.SettlementTask) error {
		return jobService.SettleJob(task.JobID)
	}
	if syncQueue, ok := queue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(settle)
	}
	if worker := services.NewWorker(&cfg.Redis); worker != nil {
		worker.SetProcessor(settle)
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start settlement worker: %v", err)
		}
		defer worker.Stop()
	}

	// Auto-refill and price reload scheduler
	refillService := services.NewRefillService(db, ledgerService, pricingService)
	if err := refillService.Start(); err != nil {
		logger.Fatalf("Failed to start refill scheduler: %v", err)
	}
	defer refillService.Stop()

	// HTTP surface
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS())
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		r.Use(rl.Middleware())
	}

	registerRoutes(r, db, pricingService, ledgerService, jobService)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Infof("creditgate listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}
