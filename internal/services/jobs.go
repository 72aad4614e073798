package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/creditgate/creditgate/internal/config"
	"github.com/creditgate/creditgate/internal/models"
	"github.com/creditgate/creditgate/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobService orchestrates the job lifecycle: creation, usage recording
// and completion with ledger settlement.
type JobService struct {
	db      *gorm.DB
	pricing *PricingService
	ledger  *LedgerService
	billing config.BillingConfig
	queue   TaskQueue
}

func NewJobService(db *gorm.DB, pricing *PricingService, ledger *LedgerService, billing config.BillingConfig) *JobService {
	return &JobService{
		db:      db,
		pricing: pricing,
		ledger:  ledger,
		billing: billing,
	}
}

// SetQueue attaches the settlement retry queue. Optional; without a
// queue a failed settlement is only retried by explicit re-completion.
func (s *JobService) SetQueue(queue TaskQueue) {
	s.queue = queue
}

// CreateJob returns a new pending job for an active team. Suspended or
// paused teams (or inactive organizations) cannot create jobs.
func (s *JobService) CreateJob(teamID uint, jobType, metadata string) (*models.Job, error) {
	var team models.Team
	if err := s.db.Preload("Organization").First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTeamNotFound, teamID)
		}
		return nil, err
	}

	if team.Organization != nil && team.Organization.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: org %d is %s", ErrOrgSuspended, team.OrganizationID, team.Organization.Status)
	}
	switch team.Status {
	case models.StatusActive:
	case models.StatusSuspended:
		return nil, fmt.Errorf("%w: team %d", ErrTeamSuspended, teamID)
	case models.StatusPaused:
		return nil, fmt.Errorf("%w: team %d", ErrTeamPaused, teamID)
	default:
		return nil, fmt.Errorf("%w: team %d has status %s", ErrTeamSuspended, teamID, team.Status)
	}

	job := &models.Job{
		JobKey:         uuid.NewString(),
		TeamID:         team.ID,
		OrganizationID: team.OrganizationID,
		Type:           jobType,
		Status:         models.JobStatusPending,
		Metadata:       metadata,
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// UsageInput is one provider call to attach to a job.
type UsageInput struct {
	GroupRequested   string `json:"group_requested"`
	ResolvedModel    string `json:"resolved_model"`
	ActualModel      string `json:"actual_model"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	LatencyMs        int64  `json:"latency_ms"`
	ErrorMessage     string `json:"error_message"`
}

// RecordUsage appends a usage row to a job, pricing the call at append
// time. The first append moves a pending job to in_progress via a
// guarded transition; appends may run concurrently with no ordering
// guarantee among them. Terminal jobs reject further usage.
func (s *JobService) RecordUsage(jobID uint, input *UsageInput) (*models.UsageRecord, error) {
	var job models.Job
	if err := s.db.First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrJobNotFound, jobID)
		}
		return nil, err
	}
	if models.JobTerminal(job.Status) {
		return nil, fmt.Errorf("%w: job %d is %s", ErrJobTerminal, jobID, job.Status)
	}

	model := input.ActualModel
	if model == "" {
		model = input.ResolvedModel
	}
	cost, degraded := s.pricing.Cost(model, input.PromptTokens, input.CompletionTokens)

	rec := &models.UsageRecord{
		JobID:            job.ID,
		TeamID:           job.TeamID,
		GroupRequested:   input.GroupRequested,
		ResolvedModel:    input.ResolvedModel,
		ActualModel:      input.ActualModel,
		PromptTokens:     input.PromptTokens,
		CompletionTokens: input.CompletionTokens,
		TotalTokens:      input.PromptTokens + input.CompletionTokens,
		CostUSD:          cost,
		CostDegraded:     degraded,
		LatencyMs:        input.LatencyMs,
		Success:          input.ErrorMessage == "",
		ErrorMessage:     input.ErrorMessage,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		// Guarded pending -> in_progress transition: only the first
		// append flips the status, concurrent appends no-op here.
		now := time.Now()
		return tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", job.ID, models.JobStatusPending).
			Updates(map[string]interface{}{
				"status":     models.JobStatusInProgress,
				"started_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteResult is the outcome of CompleteJob.
type CompleteResult struct {
	Job              *models.Job    `json:"job"`
	Summary          JobCostSummary `json:"summary"`
	CreditApplied    bool           `json:"credit_applied"`
	CreditsCharged   int64          `json:"credits_charged"`
	CreditsRemaining int64          `json:"credits_remaining"`
	AlreadyTerminal  bool           `json:"already_terminal"`
	Warning          string         `json:"warning,omitempty"`
}

// CompleteJob moves a job to a terminal state and settles the ledger.
//
// An already terminal job returns its stored summary idempotently: safe
// to retry, and the loser of two racing completions observes the
// winner's result. Settlement happens only when the requested status is
// completed, no calls failed, and credit has not been applied yet. A
// deduction rejected for insufficient credits does not fail the
// completion: the provider cost was already incurred, so the job
// completes with a warning, credit_applied stays false, and a retry
// task is enqueued. Job, summary and transaction commit as one unit.
func (s *JobService) CompleteJob(jobID uint, requestedStatus, errMsg string) (*CompleteResult, error) {
	switch requestedStatus {
	case models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled:
	default:
		return nil, fmt.Errorf("invalid completion status: %s", requestedStatus)
	}

	var probe models.Job
	if err := s.db.First(&probe, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrJobNotFound, jobID)
		}
		return nil, err
	}

	var result *CompleteResult
	err := s.ledger.WithTeamLock(probe.TeamID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var job models.Job
			q := tx
			if tx.Dialector.Name() != "sqlite" {
				q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
			}
			if err := q.First(&job, jobID).Error; err != nil {
				return err
			}
			if models.JobTerminal(job.Status) {
				result = resultFromJob(&job, true)
				return nil
			}

			summary, err := s.summarizeTx(tx, job.ID)
			if err != nil {
				return err
			}

			now := time.Now()
			updates := map[string]interface{}{
				"status":            requestedStatus,
				"completed_at":      now,
				"total_calls":       summary.TotalCalls,
				"failed_calls":      summary.FailedCalls,
				"prompt_tokens":     summary.PromptTokens,
				"completion_tokens": summary.CompletionTokens,
				"total_tokens":      summary.TotalTokens,
				"total_cost_usd":    summary.TotalCostUSD,
				"cost_degraded":     summary.CostDegraded,
			}
			if errMsg != "" {
				updates["error_message"] = errMsg
			}

			warning := ""
			creditApplied := job.CreditApplied
			creditsCharged := job.CreditsCharged

			if requestedStatus == models.JobStatusCompleted && summary.FailedCalls == 0 && !job.CreditApplied {
				var led models.TeamLedger
				if err := tx.Where(models.TeamLedger{TeamID: job.TeamID}).
					Attrs(models.TeamLedger{BudgetMode: models.BudgetModeJobBased}).
					FirstOrCreate(&led).Error; err != nil {
					return err
				}

				amount := CreditCost(&led, summary, s.billing)
				_, err := s.ledger.DeductTx(tx, job.TeamID, &job.ID, amount, fmt.Sprintf("settlement for job %s", job.JobKey))
				switch {
				case err == nil:
					creditApplied = true
					creditsCharged = amount
					updates["credit_applied"] = true
					updates["credits_charged"] = amount
				case errors.Is(err, ErrInsufficientCredits):
					// Billing failure is decoupled from operational
					// completion: the work already happened.
					warning = err.Error()
					logger.Warn().
						Uint("job_id", job.ID).
						Uint("team_id", job.TeamID).
						Int64("credits", amount).
						Msg("settlement deferred: insufficient credits")
				default:
					return err
				}
			}

			if err := tx.Model(&job).Updates(updates).Error; err != nil {
				return err
			}

			job.Status = requestedStatus
			job.CompletedAt = &now
			result = &CompleteResult{
				Job:            &job,
				Summary:        *summary,
				CreditApplied:  creditApplied,
				CreditsCharged: creditsCharged,
				Warning:        warning,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if balance, err := s.ledger.GetBalance(probe.TeamID); err == nil {
		result.CreditsRemaining = balance.Remaining
	}

	if result.Warning != "" && s.queue != nil {
		if err := s.queue.Enqueue(&SettlementTask{JobID: jobID}); err != nil {
			logger.Errorf("[Jobs] Failed to enqueue settlement retry for job %d: %v", jobID, err)
		}
	}
	return result, nil
}

// SettleJob retries the settlement step only, for completed jobs whose
// deduction was deferred. Idempotent: the credit_applied flag guards
// re-entry, so a duplicate task or a concurrent manual retry cannot
// double-charge.
func (s *JobService) SettleJob(jobID uint) error {
	var probe models.Job
	if err := s.db.First(&probe, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrJobNotFound, jobID)
		}
		return err
	}
	if probe.Status != models.JobStatusCompleted || probe.CreditApplied {
		return nil
	}

	return s.ledger.WithTeamLock(probe.TeamID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var job models.Job
			if err := tx.First(&job, jobID).Error; err != nil {
				return err
			}
			if job.Status != models.JobStatusCompleted || job.CreditApplied {
				return nil
			}

			summary, err := s.summarizeTx(tx, job.ID)
			if err != nil {
				return err
			}
			if summary.FailedCalls > 0 {
				return nil
			}

			var led models.TeamLedger
			if err := tx.Where(models.TeamLedger{TeamID: job.TeamID}).
				Attrs(models.TeamLedger{BudgetMode: models.BudgetModeJobBased}).
				FirstOrCreate(&led).Error; err != nil {
				return err
			}

			amount := CreditCost(&led, summary, s.billing)
			if _, err := s.ledger.DeductTx(tx, job.TeamID, &job.ID, amount, fmt.Sprintf("deferred settlement for job %s", job.JobKey)); err != nil {
				return err
			}

			return tx.Model(&job).Updates(map[string]interface{}{
				"credit_applied":  true,
				"credits_charged": amount,
			}).Error
		})
	})
}

// GetJob returns a job by numeric ID.
func (s *JobService) GetJob(jobID uint) (*models.Job, error) {
	var job models.Job
	if err := s.db.First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrJobNotFound, jobID)
		}
		return nil, err
	}
	return &job, nil
}

// GetJobByKey returns a job by its public UUID key.
func (s *JobService) GetJobByKey(key string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Where("job_key = ?", key).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, key)
		}
		return nil, err
	}
	return &job, nil
}

// ListUsage returns a job's usage rows, oldest first.
func (s *JobService) ListUsage(jobID uint) ([]models.UsageRecord, error) {
	var rows []models.UsageRecord
	if err := s.db.Where("job_id = ?", jobID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// JobListRequest filters ListJobs.
type JobListRequest struct {
	TeamID   uint   `form:"team_id"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// JobListResponse is a paginated job list.
type JobListResponse struct {
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Items    []models.Job `json:"items"`
}

// ListJobs returns paginated jobs, newest first.
func (s *JobService) ListJobs(req *JobListRequest) (*JobListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Job{})
	if req.TeamID > 0 {
		query = query.Where("team_id = ?", req.TeamID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	query.Count(&total)

	var jobs []models.Job
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("id DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}

	return &JobListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    jobs,
	}, nil
}

type usageAggregate struct {
	TotalCalls       int64
	FailedCalls      int64
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	TotalCostUSD     float64
	DegradedCalls    int64
}

// summarizeTx recomputes the job cost summary from the usage rows with
// order-independent aggregates only.
func (s *JobService) summarizeTx(tx *gorm.DB, jobID uint) (*JobCostSummary, error) {
	var agg usageAggregate
	err := tx.Model(&models.UsageRecord{}).
		Where("job_id = ?", jobID).
		Select(
			"COUNT(*) as total_calls, "+
				"COALESCE(SUM(CASE WHEN success = ? THEN 1 ELSE 0 END), 0) as failed_calls, "+
				"COALESCE(SUM(prompt_tokens), 0) as prompt_tokens, "+
				"COALESCE(SUM(completion_tokens), 0) as completion_tokens, "+
				"COALESCE(SUM(total_tokens), 0) as total_tokens, "+
				"COALESCE(SUM(cost_usd), 0) as total_cost_usd, "+
				"COALESCE(SUM(CASE WHEN cost_degraded = ? THEN 1 ELSE 0 END), 0) as degraded_calls",
			false, true,
		).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	return &JobCostSummary{
		TotalCalls:       agg.TotalCalls,
		FailedCalls:      agg.FailedCalls,
		PromptTokens:     agg.PromptTokens,
		CompletionTokens: agg.CompletionTokens,
		TotalTokens:      agg.TotalTokens,
		TotalCostUSD:     agg.TotalCostUSD,
		CostDegraded:     agg.DegradedCalls > 0,
	}, nil
}

func resultFromJob(job *models.Job, alreadyTerminal bool) *CompleteResult {
	return &CompleteResult{
		Job: job,
		Summary: JobCostSummary{
			TotalCalls:       job.TotalCalls,
			FailedCalls:      job.FailedCalls,
			PromptTokens:     job.PromptTokens,
			CompletionTokens: job.CompletionTokens,
			TotalTokens:      job.TotalTokens,
			TotalCostUSD:     job.TotalCostUSD,
			CostDegraded:     job.CostDegraded,
		},
		CreditApplied:   job.CreditApplied,
		CreditsCharged:  job.CreditsCharged,
		AlreadyTerminal: alreadyTerminal,
	}
}
