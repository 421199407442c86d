package handlers

import (
	"net/http"
	"strconv"

	"options-market/internal/models"
	"options-market/internal/services"

	"github.com/gin-gonic/gin"
)

// StakeHandler exposes staking, early exit, claim and position endpoints.
type StakeHandler struct {
	stakes *services.StakeService
}

func NewStakeHandler(stakes *services.StakeService) *StakeHandler {
	return &StakeHandler{stakes: stakes}
}

// PlaceStake stakes on one side of a market
// POST /markets/:id/stake
func (h *StakeHandler) PlaceStake(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	marketID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	var req models.PlaceStakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shares, err := h.stakes.PlaceStake(c.Request.Context(), userID, marketID, req.Side, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": models.StakeResponse{
			MarketID: marketID,
			Side:     req.Side,
			Amount:   req.Amount,
			Shares:   shares,
		},
	})
}

// EarlyExit unwinds the caller's position before the market ends
// POST /markets/:id/exit
func (h *StakeHandler) EarlyExit(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	marketID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	gross, fee, net, err := h.stakes.EarlyExit(c.Request.Context(), userID, marketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": models.SettleResponse{
			MarketID:    marketID,
			GrossPayout: gross,
			Fee:         fee,
			NetPayout:   net,
		},
	})
}

// Claim pays out the caller's winning position after resolution
// POST /markets/:id/claim
func (h *StakeHandler) Claim(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	marketID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	gross, fee, net, err := h.stakes.Claim(c.Request.Context(), userID, marketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": models.SettleResponse{
			MarketID:    marketID,
			GrossPayout: gross,
			Fee:         fee,
			NetPayout:   net,
		},
	})
}

// GetPosition returns the caller's position in a market
// GET /markets/:id/position
func (h *StakeHandler) GetPosition(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	marketID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	position, err := h.stakes.GetPosition(c.Request.Context(), userID, marketID)
	if err != nil {
		respondError(c, err)
		return
	}

	potential, err := h.stakes.GetPotentialPayout(c.Request.Context(), userID, marketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"data":             models.ToPositionResponse(position),
		"potential_payout": potential,
	})
}

// GetMyPositions returns the caller's positions across markets
// GET /positions
func (h *StakeHandler) GetMyPositions(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	positions, err := h.stakes.ListUserPositions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]*models.PositionResponse, 0, len(positions))
	for i := range positions {
		responses = append(responses, models.ToPositionResponse(&positions[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    responses,
		"count":   len(responses),
	})
}
