package services

import (
	"time"

	"github.com/creditgate/creditgate/internal/models"
	"github.com/creditgate/creditgate/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const refillBatchSize = 100

// RefillService periodically tops up teams that have auto-refill
// enabled and keeps the price cache fresh.
type RefillService struct {
	db      *gorm.DB
	ledger  *LedgerService
	pricing *PricingService

	scheduler *cron.Cron
}

func NewRefillService(db *gorm.DB, ledger *LedgerService, pricing *PricingService) *RefillService {
	return &RefillService{
		db:      db,
		ledger:  ledger,
		pricing: pricing,
	}
}

// Start schedules the hourly refill pass and a periodic price reload.
func (s *RefillService) Start() error {
	s.scheduler = cron.New()

	if _, err := s.scheduler.AddFunc("@hourly", s.RunRefillPass); err != nil {
		return err
	}
	if _, err := s.scheduler.AddFunc("@every 10m", func() {
		if err := s.pricing.Reload(); err != nil {
			logger.Errorf("[Refill] Price table reload failed: %v", err)
		}
	}); err != nil {
		return err
	}

	s.scheduler.Start()
	logger.Infof("[Refill] Scheduler started (refill hourly, price reload every 10m)")
	return nil
}

// Stop halts the scheduler.
func (s *RefillService) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunRefillPass allocates the configured amount to every team whose
// refill period has elapsed. Each team is processed independently; one
// failure does not stop the pass.
func (s *RefillService) RunRefillPass() {
	now := time.Now()

	var due []models.TeamLedger
	err := s.db.
		Where("auto_refill_enabled = ? AND auto_refill_amount > 0", true).
		Limit(refillBatchSize).
		Find(&due).Error
	if err != nil {
		logger.Errorf("[Refill] Failed to fetch refill candidates: %v", err)
		return
	}

	for _, led := range due {
		period := time.Duration(led.AutoRefillPeriodHours) * time.Hour
		if period <= 0 {
			period = 24 * time.Hour
		}
		if led.LastRefillAt != nil && now.Sub(*led.LastRefillAt) < period {
			continue
		}

		if _, err := s.ledger.Allocate(led.TeamID, led.AutoRefillAmount, "auto refill"); err != nil {
			logger.Errorf("[Refill] Allocation failed for team %d: %v", led.TeamID, err)
			continue
		}
		if err := s.db.Model(&models.TeamLedger{}).
			Where("team_id = ?", led.TeamID).
			Update("last_refill_at", now).Error; err != nil {
			logger.Errorf("[Refill] Failed to stamp refill time for team %d: %v", led.TeamID, err)
			continue
		}

		logger.Info().
			Uint("team_id", led.TeamID).
			Int64("amount", led.AutoRefillAmount).
			Msg("auto refill applied")
	}
}
