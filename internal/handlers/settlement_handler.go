package handlers

import (
	"net/http"

	"options-market/internal/models"
	"options-market/internal/services"

	"github.com/gin-gonic/gin"
)

// SettlementHandler exposes operator-only lifecycle endpoints.
type SettlementHandler struct {
	settlement *services.SettlementService
}

func NewSettlementHandler(settlement *services.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlement: settlement}
}

// ResolveMarket resolves a market against a final price (operator only)
// POST /markets/:id/resolve
func (h *SettlementHandler) ResolveMarket(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	marketID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	var req models.ResolveMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.settlement.Resolve(c.Request.Context(), userID, marketID, req.FinalPrice)
	if err != nil {
		respondError(c, err)
		return
	}

	response, err := models.ToMarketResponse(market)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
	})
}

// BatchResolve resolves several markets in one call (operator only)
// POST /markets/resolve-batch
func (h *SettlementHandler) BatchResolve(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req models.BatchResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.settlement.BatchResolve(c.Request.Context(), userID, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}

// CancelMarket cancels a market and refunds all open positions (operator only)
// POST /markets/:id/cancel
func (h *SettlementHandler) CancelMarket(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	marketID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	var req models.CancelMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.settlement.Cancel(c.Request.Context(), userID, marketID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	response, err := models.ToMarketResponse(market)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
	})
}
