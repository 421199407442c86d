package services

import (
	"context"
	"fmt"

	"options-market/internal/models"

	"gorm.io/gorm"
)

// Authorizer is the capability check gating market creation, resolution and
// cancellation. The engine calls it; it does not implement policy itself.
type Authorizer interface {
	IsAuthorizedOperator(ctx context.Context, userID uint) (bool, error)
}

// UserService handles account lookup and the operator capability check.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// FindOrCreateByWallet returns the account for a wallet address, creating it
// on first login.
func (s *UserService) FindOrCreateByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to look up wallet %s: %w", walletAddress, err)
	}

	user = models.User{WalletAddress: walletAddress}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user for wallet %s: %w", walletAddress, err)
	}
	return &user, nil
}

// GetByID retrieves a user by id.
func (s *UserService) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return &user, nil
}

// IsAuthorizedOperator reports whether the user may create, resolve or
// cancel markets.
func (s *UserService) IsAuthorizedOperator(ctx context.Context, userID uint) (bool, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsOperator, nil
}
