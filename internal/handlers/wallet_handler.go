package handlers

import (
	"context"
	"fmt"
	"net/http"

	"options-market/internal/auth"
	"options-market/internal/custody"
	"options-market/internal/models"
	"options-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Custody is the on-chain boundary the wallet endpoints talk to. Nil custody
// means database-backed balances only (dev mode): deposits credit directly
// and withdrawals just debit.
type Custody interface {
	VerifyDeposit(ctx context.Context, signature, fromWallet string) (uint64, error)
	Payout(ctx context.Context, toWallet string, lamports uint64) (string, error)
}

// WalletHandler exposes balance, deposit and withdrawal endpoints.
type WalletHandler struct {
	db      *gorm.DB
	ledger  *services.LedgerService
	custody Custody
}

func NewWalletHandler(db *gorm.DB, ledger *services.LedgerService, custody Custody) *WalletHandler {
	return &WalletHandler{db: db, ledger: ledger, custody: custody}
}

// GetBalance returns the caller's internal balance
// GET /wallet/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":         balance,
		"balance_display": decimal.NewFromInt(balance).Div(decimal.NewFromInt(1_000_000)).String(),
	})
}

// Deposit credits the caller's balance. With custody configured the request
// must carry the signature of a confirmed on-chain transfer to the treasury;
// without it the amount is credited directly.
// POST /wallet/deposit
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req struct {
		Signature string `json:"signature"`
		Amount    int64  `json:"amount"` // 1e6 scale, dev mode only
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount := req.Amount
	if h.custody != nil {
		if req.Signature == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "transaction signature required"})
			return
		}
		wallet, ok := auth.GetWalletAddress(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var credited int64
		if err := h.db.Model(&models.WalletDeposit{}).Where("signature = ?", req.Signature).Count(&credited).Error; err != nil {
			respondError(c, err)
			return
		}
		if credited > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "deposit already credited"})
			return
		}

		lamports, err := h.custody.VerifyDeposit(c.Request.Context(), req.Signature, wallet)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		amount = int64(lamports / custody.LamportsPerUnit)
	}
	if amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deposit amount must be positive"})
		return
	}

	// The deposit row and the credit commit together; the unique signature
	// index closes the race between concurrent replays.
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if h.custody != nil {
			record := &models.WalletDeposit{
				UserID:    userID,
				Signature: req.Signature,
				Amount:    amount,
			}
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to record deposit: %w", err)
			}
		}
		return h.ledger.Credit(tx, userID, amount)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"amount":  amount,
	})
}

// Withdraw debits the caller's balance and, with custody configured, pays
// out the equivalent lamports to their wallet.
// POST /wallet/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req struct {
		Amount int64 `json:"amount" binding:"required,gt=0"` // 1e6 scale
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledger.Debit(h.db.WithContext(c.Request.Context()), userID, req.Amount); err != nil {
		respondError(c, err)
		return
	}

	var signature string
	if h.custody != nil {
		wallet, ok := auth.GetWalletAddress(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		sig, err := h.custody.Payout(c.Request.Context(), wallet, uint64(req.Amount)*custody.LamportsPerUnit)
		if err != nil {
			// The debit already happened; put the funds back.
			if creditErr := h.ledger.Credit(h.db.WithContext(c.Request.Context()), userID, req.Amount); creditErr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "payout failed and refund failed, contact support"})
				return
			}
			respondError(c, err)
			return
		}
		signature = sig
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"amount":    req.Amount,
		"signature": signature,
	})
}
