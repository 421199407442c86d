package handlers

import (
	"errors"
	"net/http"

	"options-market/internal/fixedpoint"
	"options-market/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service-layer sentinel errors onto HTTP statuses so
// every handler reports failures the same way.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrTooEarly),
		errors.Is(err, services.ErrAlreadyResolved),
		errors.Is(err, services.ErrAlreadyCancelled),
		errors.Is(err, services.ErrPositionSideConflict),
		errors.Is(err, services.ErrNotAWinner),
		errors.Is(err, services.ErrAlreadyClaimed):
		status = http.StatusConflict
	case errors.Is(err, fixedpoint.ErrArithmetic):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrPriceUnavailable):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// callerID pulls the authenticated user out of the request context.
func callerID(c *gin.Context) (uint, bool) {
	id, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	userID, ok := id.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return userID, true
}
