package models

import "time"

// Job statuses. Pending jobs move to in_progress on first recorded usage;
// completion moves them to one of the terminal states, which are final.
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

// JobTerminal reports whether a job status is terminal.
func JobTerminal(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is a tenant-initiated unit of work grouping one or more provider
// calls, billed as a whole at completion. The summary columns are a
// denormalized copy of the usage aggregate written at completion; the
// usage rows remain the recomputable source.
type Job struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	JobKey         string `gorm:"uniqueIndex;size:36;not null" json:"job_key"`
	TeamID         uint   `gorm:"index;not null" json:"team_id"`
	OrganizationID uint   `gorm:"index" json:"organization_id"`
	Type           string `gorm:"size:50" json:"type"`
	Status         string `gorm:"size:20;default:pending;index" json:"status"`
	Metadata       string `gorm:"type:text" json:"metadata"`
	ErrorMessage   string `gorm:"size:1000" json:"error_message,omitempty"`

	// CreditApplied flips false->true at most once, when settlement
	// succeeds. It is the idempotency guard for deduction.
	CreditApplied  bool  `gorm:"default:false" json:"credit_applied"`
	CreditsCharged int64 `gorm:"default:0" json:"credits_charged"`

	TotalCalls       int64   `gorm:"default:0" json:"total_calls"`
	FailedCalls      int64   `gorm:"default:0" json:"failed_calls"`
	PromptTokens     int64   `gorm:"default:0" json:"prompt_tokens"`
	CompletionTokens int64   `gorm:"default:0" json:"completion_tokens"`
	TotalTokens      int64   `gorm:"default:0" json:"total_tokens"`
	TotalCostUSD     float64 `gorm:"default:0" json:"total_cost_usd"`
	CostDegraded     bool    `gorm:"default:false" json:"cost_degraded"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UsageRecord captures one provider call attached to a job. Rows are
// append-only; settlement aggregates them order-independently.
type UsageRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	JobID            uint      `gorm:"index;not null" json:"job_id"`
	TeamID           uint      `gorm:"index;not null" json:"team_id"`
	GroupRequested   string    `gorm:"size:100" json:"group_requested"`
	ResolvedModel    string    `gorm:"size:100" json:"resolved_model"`
	ActualModel      string    `gorm:"size:100" json:"actual_model"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	CostDegraded     bool      `gorm:"default:false" json:"cost_degraded"`
	LatencyMs        int64     `json:"latency_ms"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `gorm:"size:1000" json:"error_message,omitempty"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (Job) TableName() string         { return "jobs" }
func (UsageRecord) TableName() string { return "usage_records" }
