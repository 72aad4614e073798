package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/creditgate/creditgate/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrRefundExceedsUsage = errors.New("refund exceeds credits used")
)

// LedgerService is the per-team balance state machine. Every mutation is
// a single atomic unit scoped to one team: an in-process per-team lock
// serializes writers, and inside the database transaction the ledger row
// is re-read (with a row lock on databases that support it) before the
// affordability check. Two jobs for the same team completing at the same
// time can therefore never both pass a stale check under a hard limit.
// Unrelated teams are never blocked.
//
// The ledger executes already-computed amounts; budget-mode arithmetic
// lives in budget.go and idempotency is the caller's job (credit_applied).
type LedgerService struct {
	db *gorm.DB

	mu        sync.Mutex
	teamLocks map[uint]*sync.Mutex
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		db:        db,
		teamLocks: make(map[uint]*sync.Mutex),
	}
}

func (s *LedgerService) teamLock(teamID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.teamLocks[teamID]
	if !ok {
		lock = &sync.Mutex{}
		s.teamLocks[teamID] = lock
	}
	return lock
}

// WithTeamLock runs fn while holding the team's mutation lock. Job
// settlement uses this to make its status write and the deduction one
// critical section.
func (s *LedgerService) WithTeamLock(teamID uint, fn func() error) error {
	lock := s.teamLock(teamID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// EnsureLedger returns the team's ledger row, creating a default one if
// the team has none yet.
func (s *LedgerService) EnsureLedger(teamID uint) (*models.TeamLedger, error) {
	var led models.TeamLedger
	err := s.db.Where(models.TeamLedger{TeamID: teamID}).
		Attrs(models.TeamLedger{BudgetMode: models.BudgetModeJobBased}).
		FirstOrCreate(&led).Error
	if err != nil {
		return nil, err
	}
	return &led, nil
}

// loadLedgerTx re-reads the ledger row inside tx. On databases with row
// locks the read takes FOR UPDATE; sqlite rejects the clause and already
// serializes writers on its own.
func (s *LedgerService) loadLedgerTx(tx *gorm.DB, teamID uint) (*models.TeamLedger, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var led models.TeamLedger
	if err := q.Where("team_id = ?", teamID).First(&led).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: team %d", ErrLedgerNotFound, teamID)
		}
		return nil, err
	}
	return &led, nil
}

func (s *LedgerService) loadTeamTx(tx *gorm.DB, teamID uint) (*models.Team, error) {
	var team models.Team
	if err := tx.First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTeamNotFound, teamID)
		}
		return nil, err
	}
	return &team, nil
}

// CheckAvailable reports whether the team can afford the given amount:
// always true under unlimited mode, otherwise remaining must cover it.
func (s *LedgerService) CheckAvailable(teamID uint, needed int64) (bool, error) {
	led, err := s.EnsureLedger(teamID)
	if err != nil {
		return false, err
	}
	if led.Unlimited() {
		return true, nil
	}
	return led.Remaining() >= needed, nil
}

// Deduct atomically charges a team: reload balance, verify affordability
// under a hard limit, increment credits_used and append the transaction.
// On InsufficientCredits nothing is mutated.
func (s *LedgerService) Deduct(teamID uint, jobID *uint, amount int64, reason string) (*models.CreditTransaction, error) {
	var txn *models.CreditTransaction
	err := s.WithTeamLock(teamID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			txn, err = s.DeductTx(tx, teamID, jobID, amount, reason)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// DeductTx performs the deduction inside an existing transaction. The
// caller must hold the team lock (WithTeamLock).
func (s *LedgerService) DeductTx(tx *gorm.DB, teamID uint, jobID *uint, amount int64, reason string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	team, err := s.loadTeamTx(tx, teamID)
	if err != nil {
		return nil, err
	}
	led, err := s.loadLedgerTx(tx, teamID)
	if err != nil {
		return nil, err
	}

	before := led.Remaining()
	if !led.Unlimited() && before < amount {
		return nil, &InsufficientCreditsError{TeamID: teamID, Needed: amount, Remaining: before}
	}

	if err := tx.Model(led).Update("credits_used", gorm.Expr("credits_used + ?", amount)).Error; err != nil {
		return nil, err
	}

	return s.appendTransactionTx(tx, team, jobID, models.TransactionDeduction, amount, before, before-amount, reason)
}

// Allocate atomically grants credits to a team.
func (s *LedgerService) Allocate(teamID uint, amount int64, reason string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var txn *models.CreditTransaction
	err := s.WithTeamLock(teamID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			team, err := s.loadTeamTx(tx, teamID)
			if err != nil {
				return err
			}
			var ensure models.TeamLedger
			if err := tx.Where(models.TeamLedger{TeamID: teamID}).
				Attrs(models.TeamLedger{BudgetMode: models.BudgetModeJobBased}).
				FirstOrCreate(&ensure).Error; err != nil {
				return err
			}
			led, err := s.loadLedgerTx(tx, teamID)
			if err != nil {
				return err
			}

			before := led.Remaining()
			if err := tx.Model(led).Update("credits_allocated", gorm.Expr("credits_allocated + ?", amount)).Error; err != nil {
				return err
			}

			txn, err = s.appendTransactionTx(tx, team, nil, models.TransactionAllocation, amount, before, before+amount, reason)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Refund atomically returns credits by decrementing credits_used (never
// allocated), for jobs retroactively found to have failed. With reopen
// set and a job reference present, the job's credit_applied flag is
// cleared in the same transaction so the job can be re-billed.
func (s *LedgerService) Refund(teamID uint, jobID *uint, amount int64, reason string, reopen bool) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var txn *models.CreditTransaction
	err := s.WithTeamLock(teamID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			team, err := s.loadTeamTx(tx, teamID)
			if err != nil {
				return err
			}
			led, err := s.loadLedgerTx(tx, teamID)
			if err != nil {
				return err
			}
			if led.CreditsUsed < amount {
				return fmt.Errorf("%w: used %d, refund %d", ErrRefundExceedsUsage, led.CreditsUsed, amount)
			}

			before := led.Remaining()
			if err := tx.Model(led).Update("credits_used", gorm.Expr("credits_used - ?", amount)).Error; err != nil {
				return err
			}

			if reopen && jobID != nil {
				if err := tx.Model(&models.Job{}).Where("id = ?", *jobID).
					Update("credit_applied", false).Error; err != nil {
					return err
				}
			}

			txn, err = s.appendTransactionTx(tx, team, jobID, models.TransactionRefund, amount, before, before+amount, reason)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *LedgerService) appendTransactionTx(tx *gorm.DB, team *models.Team, jobID *uint, txType string, amount, before, after int64, reason string) (*models.CreditTransaction, error) {
	txn := &models.CreditTransaction{
		Reference:      uuid.NewString(),
		TeamID:         team.ID,
		OrganizationID: team.OrganizationID,
		JobID:          jobID,
		Type:           txType,
		Amount:         amount,
		BalanceBefore:  before,
		BalanceAfter:   after,
		Reason:         reason,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

// Balance is the externally visible ledger state.
type Balance struct {
	TeamID      uint   `json:"team_id"`
	Allocated   int64  `json:"allocated"`
	Used        int64  `json:"used"`
	Remaining   int64  `json:"remaining"`
	BudgetMode  string `json:"budget_mode"`
	CreditLimit *int64 `json:"credit_limit"`
}

// GetBalance returns the team's current balance.
func (s *LedgerService) GetBalance(teamID uint) (*Balance, error) {
	if _, err := s.loadTeamTx(s.db, teamID); err != nil {
		return nil, err
	}
	led, err := s.EnsureLedger(teamID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		TeamID:      teamID,
		Allocated:   led.CreditsAllocated,
		Used:        led.CreditsUsed,
		Remaining:   led.Remaining(),
		BudgetMode:  led.BudgetMode,
		CreditLimit: led.CreditLimit,
	}, nil
}

// PolicyUpdate describes budget policy changes for a team ledger.
type PolicyUpdate struct {
	BudgetMode            *string  `json:"budget_mode"`
	CreditLimit           *int64   `json:"credit_limit"`
	ClearCreditLimit      bool     `json:"clear_credit_limit"`
	CreditsPerDollar      *float64 `json:"credits_per_dollar"`
	TokensPerCredit       *int64   `json:"tokens_per_credit"`
	AutoRefillEnabled     *bool    `json:"auto_refill_enabled"`
	AutoRefillAmount      *int64   `json:"auto_refill_amount"`
	AutoRefillPeriodHours *int     `json:"auto_refill_period_hours"`
}

// UpdatePolicy mutates ledger policy fields under the team lock. Balance
// fields are untouched; only Deduct/Allocate/Refund move them.
func (s *LedgerService) UpdatePolicy(teamID uint, update *PolicyUpdate) (*models.TeamLedger, error) {
	var led *models.TeamLedger
	err := s.WithTeamLock(teamID, func() error {
		var err error
		led, err = s.EnsureLedger(teamID)
		if err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if update.BudgetMode != nil {
			switch *update.BudgetMode {
			case models.BudgetModeJobBased, models.BudgetModeConsumptionUSD, models.BudgetModeConsumptionTokens:
			default:
				return fmt.Errorf("unknown budget mode: %s", *update.BudgetMode)
			}
			changes["budget_mode"] = *update.BudgetMode
		}
		if update.ClearCreditLimit {
			changes["credit_limit"] = nil
		} else if update.CreditLimit != nil {
			changes["credit_limit"] = *update.CreditLimit
		}
		if update.CreditsPerDollar != nil {
			changes["credits_per_dollar"] = *update.CreditsPerDollar
		}
		if update.TokensPerCredit != nil {
			changes["tokens_per_credit"] = *update.TokensPerCredit
		}
		if update.AutoRefillEnabled != nil {
			changes["auto_refill_enabled"] = *update.AutoRefillEnabled
		}
		if update.AutoRefillAmount != nil {
			changes["auto_refill_amount"] = *update.AutoRefillAmount
		}
		if update.AutoRefillPeriodHours != nil {
			changes["auto_refill_period_hours"] = *update.AutoRefillPeriodHours
		}
		if len(changes) == 0 {
			return nil
		}
		if err := s.db.Model(led).Updates(changes).Error; err != nil {
			return err
		}
		return s.db.Where("team_id = ?", teamID).First(led).Error
	})
	if err != nil {
		return nil, err
	}
	return led, nil
}

// TransactionFilter narrows ListTransactions. Zero values are ignored.
type TransactionFilter struct {
	TeamID         uint
	OrganizationID uint
	JobID          *uint
	Limit          int
}

// ListTransactions returns the audit trail, newest first.
func (s *LedgerService) ListTransactions(filter TransactionFilter) ([]models.CreditTransaction, error) {
	query := s.db.Model(&models.CreditTransaction{})
	if filter.TeamID > 0 {
		query = query.Where("team_id = ?", filter.TeamID)
	}
	if filter.OrganizationID > 0 {
		query = query.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.JobID != nil {
		query = query.Where("job_id = ?", *filter.JobID)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var txns []models.CreditTransaction
	if err := query.Order("id DESC").Limit(limit).Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
