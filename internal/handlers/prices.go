package handlers

import (
	"github.com/creditgate/creditgate/internal/services"
	"github.com/creditgate/creditgate/pkg/response"
	"github.com/gin-gonic/gin"
)

// PriceHandler exposes the refreshable model price table.
type PriceHandler struct {
	pricing *services.PricingService
}

func NewPriceHandler(pricing *services.PricingService) *PriceHandler {
	return &PriceHandler{pricing: pricing}
}

// List returns the persisted price table.
func (h *PriceHandler) List(c *gin.Context) {
	prices, err := h.pricing.ListPrices()
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, prices)
}

type upsertPriceRequest struct {
	Model         string   `json:"model" binding:"required"`
	InputPerMTok  *float64 `json:"input_per_mtok" binding:"required"`
	OutputPerMTok *float64 `json:"output_per_mtok" binding:"required"`
}

// Upsert creates or updates one price row and refreshes the cache.
func (h *PriceHandler) Upsert(c *gin.Context) {
	var req upsertPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	price, err := h.pricing.UpsertPrice(req.Model, *req.InputPerMTok, *req.OutputPerMTok)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, price)
}

// Reload refreshes the in-memory price cache from the database.
func (h *PriceHandler) Reload(c *gin.Context) {
	if err := h.pricing.Reload(); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, nil)
}
