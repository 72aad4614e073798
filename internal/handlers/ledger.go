package handlers

import (
	"strconv"

	"github.com/creditgate/creditgate/internal/services"
	"github.com/creditgate/creditgate/pkg/response"
	"github.com/gin-gonic/gin"
)

// LedgerHandler exposes balances, credit mutations and the audit trail.
type LedgerHandler struct {
	ledgerService *services.LedgerService
}

func NewLedgerHandler(ledgerService *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

func teamIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return 0, false
	}
	return uint(id), true
}

// GetBalance returns a team's current balance.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetBalance(teamID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, balance)
}

type allocateRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

// Allocate grants credits to a team.
func (h *LedgerHandler) Allocate(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	txn, err := h.ledgerService.Allocate(teamID, req.Amount, req.Reason)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, txn)
}

type refundRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	JobID  *uint  `json:"job_id"`
	Reason string `json:"reason"`
	Reopen bool   `json:"reopen"`
}

// Refund returns credits to a team, optionally reopening the job for
// re-billing.
func (h *LedgerHandler) Refund(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	txn, err := h.ledgerService.Refund(teamID, req.JobID, req.Amount, req.Reason, req.Reopen)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, txn)
}

// UpdatePolicy changes a team's budget policy.
func (h *LedgerHandler) UpdatePolicy(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	var req services.PolicyUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	led, err := h.ledgerService.UpdatePolicy(teamID, &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, led)
}

// ListTransactions returns the audit trail, newest first. Filters:
// team_id, org_id, job_id, limit.
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	var filter services.TransactionFilter

	if v := c.Query("team_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			filter.TeamID = uint(id)
		}
	}
	if v := c.Query("org_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			filter.OrganizationID = uint(id)
		}
	}
	if v := c.Query("job_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			jobID := uint(id)
			filter.JobID = &jobID
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	txns, err := h.ledgerService.ListTransactions(filter)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, txns)
}
