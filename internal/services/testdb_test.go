package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/creditgate/creditgate/internal/config"
	"github.com/creditgate/creditgate/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq int64

// setupTestDB opens a private in-memory database. cache=shared keeps the
// database alive across pooled connections, and the pool is pinned to a
// single connection so a transaction and an outside read can never
// deadlock on sqlite's single writer.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:creditgate_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&models.Organization{},
		&models.Team{},
		&models.ModelGroup{},
		&models.ModelGroupModel{},
		&models.TeamModelGroupGrant{},
		&models.TeamLedger{},
		&models.CreditTransaction{},
		&models.Job{},
		&models.UsageRecord{},
		&models.ModelPrice{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func testBilling() config.BillingConfig {
	return config.BillingConfig{
		CreditsPerDollar:     10,
		TokensPerCredit:      10000,
		DefaultInputPerMTok:  5.0,
		DefaultOutputPerMTok: 15.0,
	}
}

func createTestOrg(t *testing.T, db *gorm.DB, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name, Status: models.StatusActive}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create org: %v", err)
	}
	return org
}

func createTestTeam(t *testing.T, db *gorm.DB, org *models.Organization, name string) *models.Team {
	t.Helper()
	team := &models.Team{OrganizationID: org.ID, Name: name, Status: models.StatusActive}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	return team
}

// createTestTenant is the common fixture: one org with one active team.
func createTestTenant(t *testing.T, db *gorm.DB) *models.Team {
	t.Helper()
	org := createTestOrg(t, db, "acme")
	return createTestTeam(t, db, org, "platform")
}

func seedTestPrice(t *testing.T, db *gorm.DB, model string, in, out float64) {
	t.Helper()
	row := &models.ModelPrice{Model: model, InputPerMTok: in, OutputPerMTok: out}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to seed price for %s: %v", model, err)
	}
}

func intp(v int) *int { return &v }

func int64p(v int64) *int64 { return &v }

func float64p(v float64) *float64 { return &v }
