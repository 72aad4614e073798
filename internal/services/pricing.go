package services

import (
	"sync"

	"github.com/creditgate/creditgate/internal/config"
	"github.com/creditgate/creditgate/internal/models"
	"github.com/creditgate/creditgate/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type modelPrice struct {
	inputPerMTok  float64
	outputPerMTok float64
}

// PricingService converts token counts to USD cost using the price table.
// The table lives in the database and is cached in memory; Reload refreshes
// the cache, so prices can be updated without a restart.
type PricingService struct {
	db       *gorm.DB
	defaults config.BillingConfig

	mu     sync.RWMutex
	prices map[string]modelPrice
}

func NewPricingService(db *gorm.DB, billing config.BillingConfig) *PricingService {
	return &PricingService{
		db:       db,
		defaults: billing,
		prices:   make(map[string]modelPrice),
	}
}

// Reload replaces the in-memory price cache from the database.
func (s *PricingService) Reload() error {
	var rows []models.ModelPrice
	if err := s.db.Find(&rows).Error; err != nil {
		return err
	}

	next := make(map[string]modelPrice, len(rows))
	for _, row := range rows {
		next[row.Model] = modelPrice{
			inputPerMTok:  row.InputPerMTok,
			outputPerMTok: row.OutputPerMTok,
		}
	}

	s.mu.Lock()
	s.prices = next
	s.mu.Unlock()
	return nil
}

// Cost returns the USD cost of a call:
//
//	tokensIn/1e6 * priceIn + tokensOut/1e6 * priceOut
//
// If the model is missing from the price table the configured default
// prices apply and degraded is true, since the result affects both
// consumption billing and margin reporting. No rounding happens here;
// rounding is a display concern.
func (s *PricingService) Cost(model string, tokensIn, tokensOut int64) (cost float64, degraded bool) {
	s.mu.RLock()
	price, ok := s.prices[model]
	s.mu.RUnlock()

	if !ok {
		price = modelPrice{
			inputPerMTok:  s.defaults.DefaultInputPerMTok,
			outputPerMTok: s.defaults.DefaultOutputPerMTok,
		}
		degraded = true
		logger.Warn().
			Str("model", model).
			Msg("no price for model, using default table")
	}

	cost = float64(tokensIn)/1e6*price.inputPerMTok + float64(tokensOut)/1e6*price.outputPerMTok
	return cost, degraded
}

// Known reports whether a model has an entry in the cached price table.
func (s *PricingService) Known(model string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.prices[model]
	return ok
}

// ListPrices returns the persisted price table.
func (s *PricingService) ListPrices() ([]models.ModelPrice, error) {
	var rows []models.ModelPrice
	if err := s.db.Order("model ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertPrice creates or updates a price row and refreshes the cache.
func (s *PricingService) UpsertPrice(model string, inputPerMTok, outputPerMTok float64) (*models.ModelPrice, error) {
	row := models.ModelPrice{
		Model:         model,
		InputPerMTok:  inputPerMTok,
		OutputPerMTok: outputPerMTok,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model"}},
		DoUpdates: clause.AssignmentColumns([]string{"input_per_m_tok", "output_per_m_tok", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return &row, nil
}
