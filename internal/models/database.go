package models

import (
	"fmt"

	"github.com/creditgate/creditgate/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&Organization{},
		&Team{},
		&ModelGroup{},
		&ModelGroupModel{},
		&TeamModelGroupGrant{},
		&TeamLedger{},
		&CreditTransaction{},
		&Job{},
		&UsageRecord{},
		&ModelPrice{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// defaultPrices is the fallback price table seeded on first boot.
// Prices are USD per million tokens.
var defaultPrices = []ModelPrice{
	{Model: "gpt-4-turbo", InputPerMTok: 10.0, OutputPerMTok: 30.0},
	{Model: "gpt-4", InputPerMTok: 30.0, OutputPerMTok: 60.0},
	{Model: "gpt-4o", InputPerMTok: 2.5, OutputPerMTok: 10.0},
	{Model: "gpt-4o-mini", InputPerMTok: 0.15, OutputPerMTok: 0.6},
	{Model: "gpt-3.5-turbo", InputPerMTok: 0.5, OutputPerMTok: 1.5},
	{Model: "claude-3-opus", InputPerMTok: 15.0, OutputPerMTok: 75.0},
	{Model: "claude-3-5-sonnet", InputPerMTok: 3.0, OutputPerMTok: 15.0},
	{Model: "claude-3-haiku", InputPerMTok: 0.25, OutputPerMTok: 1.25},
	{Model: "gemini-1.5-pro", InputPerMTok: 1.25, OutputPerMTok: 5.0},
	{Model: "gemini-1.5-flash", InputPerMTok: 0.075, OutputPerMTok: 0.3},
}

// SeedDefaultData inserts the default price table if missing.
func SeedDefaultData() error {
	for _, price := range defaultPrices {
		var count int64
		DB.Model(&ModelPrice{}).Where("model = ?", price.Model).Count(&count)
		if count == 0 {
			if err := DB.Create(&price).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
