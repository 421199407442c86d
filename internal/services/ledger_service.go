package services

import (
	"context"
	"fmt"

	"options-market/internal/models"

	"gorm.io/gorm"
)

// Ledger is the custody collaborator the engine denominates stakes and
// payouts in. Debit and Credit take the caller's transaction handle so a
// balance movement commits atomically with the pool and position writes it
// belongs to. Both fail loudly; there is no partial transfer.
type Ledger interface {
	Debit(tx *gorm.DB, userID uint, amount int64) error
	Credit(tx *gorm.DB, userID uint, amount int64) error
}

// LedgerService is the database-backed Ledger: balances live on the users
// table and move with guarded UPDATEs.
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new ledger service
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Debit removes amount from the user's balance, failing with
// ErrInsufficientBalance if the balance would go negative.
func (s *LedgerService) Debit(tx *gorm.DB, userID uint, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit amount must be positive", ErrInvalidParameter)
	}

	result := tx.Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))

	if result.Error != nil {
		return fmt.Errorf("failed to debit user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing user from a short balance.
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to debit user %d: %w", userID, err)
		}
		if count == 0 {
			return fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("user %d: %w", userID, ErrInsufficientBalance)
	}
	return nil
}

// Credit adds amount to the user's balance.
func (s *LedgerService) Credit(tx *gorm.DB, userID uint, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", ErrInvalidParameter)
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))

	if result.Error != nil {
		return fmt.Errorf("failed to credit user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// Balance reads the user's current balance.
func (s *LedgerService) Balance(ctx context.Context, userID uint) (int64, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return user.Balance, nil
}
