package handlers

import (
	"strconv"

	"github.com/creditgate/creditgate/internal/services"
	"github.com/creditgate/creditgate/pkg/response"
	"github.com/gin-gonic/gin"
)

// JobHandler exposes the job lifecycle: create, record usage, complete.
type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobService *services.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

type createJobRequest struct {
	TeamID   uint   `json:"team_id" binding:"required"`
	Type     string `json:"type"`
	Metadata string `json:"metadata"`
}

// Create starts a new pending job for a team.
func (h *JobHandler) Create(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	job, err := h.jobService.CreateJob(req.TeamID, req.Type, req.Metadata)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, job)
}

// jobRef resolves the :id path param, accepting either the numeric ID
// or the public job key.
func (h *JobHandler) jobRef(c *gin.Context) (uint, bool) {
	ref := c.Param("id")
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return uint(id), true
	}
	job, err := h.jobService.GetJobByKey(ref)
	if err != nil {
		serviceError(c, err)
		return 0, false
	}
	return job.ID, true
}

type recordUsageRequest struct {
	GroupRequested   string `json:"group_requested"`
	ResolvedModel    string `json:"resolved_model" binding:"required"`
	ActualModel      string `json:"actual_model"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	LatencyMs        int64  `json:"latency_ms"`
	ErrorMessage     string `json:"error_message"`
}

// RecordUsage appends one provider call to a job.
func (h *JobHandler) RecordUsage(c *gin.Context) {
	jobID, ok := h.jobRef(c)
	if !ok {
		return
	}

	var req recordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	rec, err := h.jobService.RecordUsage(jobID, &services.UsageInput{
		GroupRequested:   req.GroupRequested,
		ResolvedModel:    req.ResolvedModel,
		ActualModel:      req.ActualModel,
		PromptTokens:     req.PromptTokens,
		CompletionTokens: req.CompletionTokens,
		LatencyMs:        req.LatencyMs,
		ErrorMessage:     req.ErrorMessage,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, rec)
}

type completeJobRequest struct {
	Status       string `json:"status" binding:"required"`
	ErrorMessage string `json:"error_message"`
}

// Complete moves a job to a terminal state and settles the ledger.
// Retries are safe: a terminal job returns its stored summary.
func (h *JobHandler) Complete(c *gin.Context) {
	jobID, ok := h.jobRef(c)
	if !ok {
		return
	}

	var req completeJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.jobService.CompleteJob(jobID, req.Status, req.ErrorMessage)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, result)
}

// Get returns one job.
func (h *JobHandler) Get(c *gin.Context) {
	jobID, ok := h.jobRef(c)
	if !ok {
		return
	}

	job, err := h.jobService.GetJob(jobID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, job)
}

// ListUsage returns a job's usage rows.
func (h *JobHandler) ListUsage(c *gin.Context) {
	jobID, ok := h.jobRef(c)
	if !ok {
		return
	}

	rows, err := h.jobService.ListUsage(jobID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, rows)
}

// List returns paginated jobs.
func (h *JobHandler) List(c *gin.Context) {
	var req services.JobListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query: "+err.Error())
		return
	}

	resp, err := h.jobService.ListJobs(&req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, resp)
}
