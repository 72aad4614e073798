package models

import "time"

// Budget modes determine how a completed job is converted to credits.
const (
	BudgetModeJobBased          = "job_based"
	BudgetModeConsumptionUSD    = "consumption_usd"
	BudgetModeConsumptionTokens = "consumption_tokens"
)

// Credit transaction types.
const (
	TransactionDeduction  = "deduction"
	TransactionAllocation = "allocation"
	TransactionRefund     = "refund"
	TransactionAdjustment = "adjustment"
)

// TeamLedger holds a team's credit balance and billing policy.
// There is exactly one row per team; all balance mutations go through
// the ledger service, which serializes writers per team.
type TeamLedger struct {
	ID               uint  `gorm:"primaryKey" json:"id"`
	TeamID           uint  `gorm:"uniqueIndex;not null" json:"team_id"`
	CreditsAllocated int64 `gorm:"default:0" json:"credits_allocated"`
	CreditsUsed      int64 `gorm:"default:0" json:"credits_used"`

	// CreditLimit nil means unlimited: deductions always succeed and the
	// balance may go negative. Non-nil enables hard enforcement.
	CreditLimit *int64 `json:"credit_limit"`

	BudgetMode string `gorm:"size:30;default:job_based" json:"budget_mode"`

	// Per-team overrides for the conversion rates; nil falls back to the
	// system defaults from config.
	CreditsPerDollar *float64 `json:"credits_per_dollar"`
	TokensPerCredit  *int64   `json:"tokens_per_credit"`

	AutoRefillEnabled     bool       `gorm:"default:false" json:"auto_refill_enabled"`
	AutoRefillAmount      int64      `gorm:"default:0" json:"auto_refill_amount"`
	AutoRefillPeriodHours int        `gorm:"default:24" json:"auto_refill_period_hours"`
	LastRefillAt          *time.Time `json:"last_refill_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Remaining returns the derived balance: allocated minus used.
func (l *TeamLedger) Remaining() int64 {
	return l.CreditsAllocated - l.CreditsUsed
}

// Unlimited reports whether the ledger has no hard credit limit.
func (l *TeamLedger) Unlimited() bool {
	return l.CreditLimit == nil
}

// CreditTransaction is the append-only audit trail of ledger mutations.
// Rows are write-once: exactly one transaction per balance mutation, with
// BalanceBefore/BalanceAfter bracketing the change.
type CreditTransaction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Reference      string    `gorm:"uniqueIndex;size:36" json:"reference"`
	TeamID         uint      `gorm:"index;not null" json:"team_id"`
	OrganizationID uint      `gorm:"index" json:"organization_id"`
	JobID          *uint     `gorm:"index" json:"job_id"`
	Type           string    `gorm:"size:20;not null" json:"type"` // deduction, allocation, refund, adjustment
	Amount         int64     `gorm:"not null" json:"amount"`
	BalanceBefore  int64     `json:"balance_before"`
	BalanceAfter   int64     `json:"balance_after"`
	Reason         string    `gorm:"size:500" json:"reason"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (TeamLedger) TableName() string        { return "team_ledgers" }
func (CreditTransaction) TableName() string { return "credit_transactions" }
