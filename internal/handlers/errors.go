package handlers

import (
	"errors"

	"github.com/creditgate/creditgate/internal/services"
	"github.com/creditgate/creditgate/pkg/response"
	"github.com/gin-gonic/gin"
)

// serviceError maps core service errors onto the response envelope.
// Configuration errors are 4xx and never retried; resource errors get
// 402 so callers can allocate credits and retry.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrJobNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrLedgerNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAccessDenied),
		errors.Is(err, services.ErrTeamSuspended),
		errors.Is(err, services.ErrTeamPaused),
		errors.Is(err, services.ErrOrgSuspended):
		response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInsufficientCredits):
		response.PaymentRequired(c, err.Error())
	case errors.Is(err, services.ErrJobTerminal):
		response.Error(c, response.NewConflict(err.Error()))
	case errors.Is(err, services.ErrGroupInactive),
		errors.Is(err, services.ErrNoModelsConfigured),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrRefundExceedsUsage):
		response.BadRequest(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}
