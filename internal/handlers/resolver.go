package handlers

import (
	"github.com/creditgate/creditgate/internal/services"
	"github.com/creditgate/creditgate/pkg/response"
	"github.com/gin-gonic/gin"
)

// ResolverHandler exposes model group resolution.
type ResolverHandler struct {
	resolver *services.ResolverService
}

func NewResolverHandler(resolver *services.ResolverService) *ResolverHandler {
	return &ResolverHandler{resolver: resolver}
}

type resolveRequest struct {
	TeamID uint   `json:"team_id" binding:"required"`
	Group  string `json:"group" binding:"required"`
}

// Resolve returns the primary model and ordered fallbacks for a team's
// request against a logical group name.
func (h *ResolverHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	res, err := h.resolver.Resolve(req.TeamID, req.Group)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, res)
}
