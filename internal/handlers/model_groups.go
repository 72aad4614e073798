package handlers

import (
	"strconv"

	"github.com/creditgate/creditgate/internal/services"
	"github.com/creditgate/creditgate/pkg/response"
	"github.com/gin-gonic/gin"
)

// ModelGroupHandler exposes model group and grant administration.
type ModelGroupHandler struct {
	groupService *services.ModelGroupService
}

func NewModelGroupHandler(groupService *services.ModelGroupService) *ModelGroupHandler {
	return &ModelGroupHandler{groupService: groupService}
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

type createGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Create creates a model group.
func (h *ModelGroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	group, err := h.groupService.CreateGroup(req.Name, req.Description)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, group)
}

// List returns all model groups with their models.
func (h *ModelGroupHandler) List(c *gin.Context) {
	groups, err := h.groupService.ListGroups()
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, groups)
}

// Get returns one model group.
func (h *ModelGroupHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	group, err := h.groupService.GetGroup(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, group)
}

type activeRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetActive toggles a group's active flag.
func (h *ModelGroupHandler) SetActive(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.groupService.SetGroupActive(id, *req.IsActive); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, nil)
}

type addModelRequest struct {
	ModelName string `json:"model_name" binding:"required"`
	Priority  int    `json:"priority"`
}

// AddModel attaches a concrete model to a group.
func (h *ModelGroupHandler) AddModel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req addModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	entry, err := h.groupService.AddModel(id, req.ModelName, req.Priority)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, entry)
}

// SetModelActive toggles one group member's active flag.
func (h *ModelGroupHandler) SetModelActive(c *gin.Context) {
	entryID, ok := idParam(c, "model_id")
	if !ok {
		return
	}

	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.groupService.SetModelActive(entryID, *req.IsActive); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, nil)
}

type grantRequest struct {
	TeamID  uint `json:"team_id" binding:"required"`
	GroupID uint `json:"group_id" binding:"required"`
}

// Grant gives a team access to a group.
func (h *ModelGroupHandler) Grant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	grant, err := h.groupService.Grant(req.TeamID, req.GroupID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, grant)
}

// Revoke removes a team's access to a group.
func (h *ModelGroupHandler) Revoke(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.groupService.Revoke(req.TeamID, req.GroupID); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListGrants returns the groups a team can access.
func (h *ModelGroupHandler) ListGrants(c *gin.Context) {
	teamID, ok := idParam(c, "id")
	if !ok {
		return
	}

	groups, err := h.groupService.ListGrants(teamID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, groups)
}
