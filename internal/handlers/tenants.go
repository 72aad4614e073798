package handlers

import (
	"strconv"

	"github.com/creditgate/creditgate/internal/services"
	"github.com/creditgate/creditgate/pkg/response"
	"github.com/gin-gonic/gin"
)

// TenantHandler exposes organization and team administration.
type TenantHandler struct {
	tenantService *services.TenantService
}

func NewTenantHandler(tenantService *services.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

type createOrgRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateOrganization creates an organization.
func (h *TenantHandler) CreateOrganization(c *gin.Context) {
	var req createOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	org, err := h.tenantService.CreateOrganization(req.Name)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, org)
}

// ListOrganizations returns all organizations.
func (h *TenantHandler) ListOrganizations(c *gin.Context) {
	orgs, err := h.tenantService.ListOrganizations()
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, orgs)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetOrganizationStatus updates an organization's lifecycle state.
func (h *TenantHandler) SetOrganizationStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.tenantService.SetOrganizationStatus(uint(id), req.Status); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, nil)
}

type createTeamRequest struct {
	OrganizationID uint   `json:"organization_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
}

// CreateTeam creates a team with its ledger.
func (h *TenantHandler) CreateTeam(c *gin.Context) {
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	team, err := h.tenantService.CreateTeam(req.OrganizationID, req.Name)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, team)
}

// GetTeam returns one team.
func (h *TenantHandler) GetTeam(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	team, err := h.tenantService.GetTeam(teamID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, team)
}

// ListTeams returns teams, optionally filtered by org_id.
func (h *TenantHandler) ListTeams(c *gin.Context) {
	var orgID uint
	if v := c.Query("org_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			orgID = uint(id)
		}
	}

	teams, err := h.tenantService.ListTeams(orgID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, teams)
}

// SetTeamStatus updates a team's lifecycle state.
func (h *TenantHandler) SetTeamStatus(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.tenantService.SetTeamStatus(teamID, req.Status); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, nil)
}
