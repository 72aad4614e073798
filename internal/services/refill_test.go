package services

import (
	"testing"
	"time"

	"github.com/creditgate/creditgate/internal/models"
)

func TestRunRefillPass(t *testing.T) {
	db := setupTestDB(t)
	team := createTestTenant(t, db)
	ledger := NewLedgerService(db)
	pricing := NewPricingService(db, testBilling())
	refill := NewRefillService(db, ledger, pricing)

	enabled := true
	_, err := ledger.UpdatePolicy(team.ID, &PolicyUpdate{
		AutoRefillEnabled:     &enabled,
		AutoRefillAmount:      int64p(50),
		AutoRefillPeriodHours: intp(1),
	})
	if err != nil {
		t.Fatalf("UpdatePolicy failed: %v", err)
	}

	// Never refilled before: the first pass tops up immediately.
	refill.RunRefillPass()

	bal, err := ledger.GetBalance(team.ID)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if bal.Allocated != 50 {
		t.Errorf("allocated = %d, expected 50 after first pass", bal.Allocated)
	}

	var led models.TeamLedger
	if err := db.Where("team_id = ?", team.ID).First(&led).Error; err != nil {
		t.Fatalf("failed to load ledger: %v", err)
	}
	if led.LastRefillAt == nil {
		t.Fatal("last_refill_at must be stamped")
	}

	// Within the period: no double refill.
	refill.RunRefillPass()
	bal, _ = ledger.GetBalance(team.ID)
	if bal.Allocated != 50 {
		t.Errorf("allocated = %d, pass inside the period must not refill", bal.Allocated)
	}

	// Backdate past the period: the next pass refills again.
	stale := time.Now().Add(-2 * time.Hour)
	if err := db.Model(&led).Update("last_refill_at", stale).Error; err != nil {
		t.Fatalf("failed to backdate refill time: %v", err)
	}
	refill.RunRefillPass()
	bal, _ = ledger.GetBalance(team.ID)
	if bal.Allocated != 100 {
		t.Errorf("allocated = %d, expected 100 after elapsed period", bal.Allocated)
	}
}

func TestRunRefillPass_SkipsDisabled(t *testing.T) {
	db := setupTestDB(t)
	team := createTestTenant(t, db)
	ledger := NewLedgerService(db)
	refill := NewRefillService(db, ledger, NewPricingService(db, testBilling()))

	// Ledger exists but refill is off.
	if _, err := ledger.UpdatePolicy(team.ID, &PolicyUpdate{AutoRefillAmount: int64p(50)}); err != nil {
		t.Fatalf("UpdatePolicy failed: %v", err)
	}

	refill.RunRefillPass()

	bal, err := ledger.GetBalance(team.ID)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if bal.Allocated != 0 {
		t.Errorf("allocated = %d, disabled teams must not be refilled", bal.Allocated)
	}
}
