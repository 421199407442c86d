package handlers

import (
	"net/http"
	"strconv"

	"options-market/internal/models"
	"options-market/internal/services"

	"github.com/gin-gonic/gin"
)

// MarketHandler exposes market CRUD and odds endpoints.
type MarketHandler struct {
	markets *services.MarketService
}

func NewMarketHandler(markets *services.MarketService) *MarketHandler {
	return &MarketHandler{markets: markets}
}

// CreateMarket creates a new market (operator only)
// POST /markets
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req models.CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.markets.CreateMarket(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response, err := models.ToMarketResponse(market)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    response,
	})
}

// GetMarkets returns markets with optional status filtering
// GET /markets?status=ACTIVE&limit=50&offset=0
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	status := c.DefaultQuery("status", string(models.MarketStatusActive))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	markets, err := h.markets.ListMarkets(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]*models.MarketResponse, 0, len(markets))
	for i := range markets {
		response, err := models.ToMarketResponse(&markets[i])
		if err != nil {
			respondError(c, err)
			return
		}
		responses = append(responses, response)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    responses,
		"count":   len(responses),
	})
}

// GetMarketByID returns a specific market
// GET /markets/:id
func (h *MarketHandler) GetMarketByID(c *gin.Context) {
	marketID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	market, err := h.markets.GetMarket(c.Request.Context(), marketID)
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

// GetOdds returns the current pool-implied odds for a market
// GET /markets/:id/odds
func (h *MarketHandler) GetOdds(c *gin.Context) {
	marketID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	yes, no, err := h.markets.GetOdds(c.Request.Context(), marketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"market_id": marketID,
		"yes_odds":  yes,
		"no_odds":   no,
	})
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}
