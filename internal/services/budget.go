package services

import (
	"math"

	"github.com/creditgate/creditgate/internal/config"
	"github.com/creditgate/creditgate/internal/models"
)

// JobCostSummary is the order-independent aggregate over a job's usage
// rows. It is recomputed at settlement time and is not authoritative on
// its own.
type JobCostSummary struct {
	TotalCalls       int64   `json:"total_calls"`
	FailedCalls      int64   `json:"failed_calls"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
	CostDegraded     bool    `json:"cost_degraded"`
}

// CreditCost maps a job cost summary to a credit amount under the
// ledger's budget mode. Pure arithmetic: the ledger executes the result,
// it never decides it. Unknown modes fall back to job_based.
func CreditCost(ledger *models.TeamLedger, summary *JobCostSummary, defaults config.BillingConfig) int64 {
	switch ledger.BudgetMode {
	case models.BudgetModeConsumptionUSD:
		rate := defaults.CreditsPerDollar
		if ledger.CreditsPerDollar != nil && *ledger.CreditsPerDollar > 0 {
			rate = *ledger.CreditsPerDollar
		}
		return creditsForUSD(summary.TotalCostUSD, rate)
	case models.BudgetModeConsumptionTokens:
		rate := defaults.TokensPerCredit
		if ledger.TokensPerCredit != nil && *ledger.TokensPerCredit > 0 {
			rate = *ledger.TokensPerCredit
		}
		return creditsForTokens(summary.TotalTokens, rate)
	default:
		return creditsJobBased()
	}
}

// creditsJobBased charges a flat credit per completed job.
func creditsJobBased() int64 {
	return 1
}

// creditsForUSD charges max(1, ceil(cost * creditsPerDollar)).
func creditsForUSD(costUSD, creditsPerDollar float64) int64 {
	credits := int64(math.Ceil(costUSD * creditsPerDollar))
	if credits < 1 {
		return 1
	}
	return credits
}

// creditsForTokens charges max(1, ceil(totalTokens / tokensPerCredit)).
func creditsForTokens(totalTokens, tokensPerCredit int64) int64 {
	credits := int64(math.Ceil(float64(totalTokens) / float64(tokensPerCredit)))
	if credits < 1 {
		return 1
	}
	return credits
}
