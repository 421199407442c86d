package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"options-market/internal/models"

	"gorm.io/gorm"
)

// Admissible market duration range.
const (
	MinMarketDuration = 5 * time.Minute
	MaxMarketDuration = 24 * time.Hour
)

// MarketService creates and serves markets. Ids are assigned by the store's
// auto-increment sequence: starting at 1, strictly increasing, never reused
// (markets are never deleted).
type MarketService struct {
	db         *gorm.DB
	authorizer Authorizer

	now func() time.Time
}

// NewMarketService creates a new market service
func NewMarketService(db *gorm.DB, authorizer Authorizer) *MarketService {
	return &MarketService{
		db:         db,
		authorizer: authorizer,
		now:        time.Now,
	}
}

// CreateMarket validates and stores a new market. Operator only.
func (s *MarketService) CreateMarket(ctx context.Context, callerID uint, req *models.CreateMarketRequest) (*models.Market, error) {
	authorized, err := s.authorizer.IsAuthorizedOperator(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, fmt.Errorf("user %d: %w", callerID, ErrUnauthorized)
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, fmt.Errorf("%w: label must not be empty", ErrInvalidParameter)
	}
	if req.BasePrice <= 0 {
		return nil, fmt.Errorf("%w: base price must be positive", ErrInvalidParameter)
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	if duration < MinMarketDuration || duration > MaxMarketDuration {
		return nil, fmt.Errorf("%w: duration must be between %v and %v",
			ErrInvalidParameter, MinMarketDuration, MaxMarketDuration)
	}

	now := s.now()
	market := &models.Market{
		Label:     label,
		BasePrice: req.BasePrice,
		EndTime:   now.Add(duration),
		Status:    models.MarketStatusActive,
		CreatedBy: callerID,
	}

	if err := s.db.WithContext(ctx).Create(market).Error; err != nil {
		return nil, fmt.Errorf("failed to create market: %w", err)
	}

	return market, nil
}

// GetMarket retrieves a market by id.
func (s *MarketService) GetMarket(ctx context.Context, marketID uint) (*models.Market, error) {
	var market models.Market
	if err := s.db.WithContext(ctx).First(&market, marketID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("market %d: %w", marketID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load market %d: %w", marketID, err)
	}
	return &market, nil
}

// ListMarkets retrieves markets, optionally filtered by status, newest first.
func (s *MarketService) ListMarkets(ctx context.Context, status string, limit, offset int) ([]models.Market, error) {
	var markets []models.Market
	query := s.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", strings.ToUpper(status))
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&markets).Error; err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	return markets, nil
}

// ListExpiredActive retrieves Active markets whose end time has passed,
// oldest first, for the auto-resolver.
func (s *MarketService) ListExpiredActive(ctx context.Context, limit int) ([]models.Market, error) {
	var markets []models.Market
	if err := s.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", models.MarketStatusActive, s.now()).
		Order("end_time ASC").
		Limit(limit).
		Find(&markets).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired markets: %w", err)
	}
	return markets, nil
}

// GetOdds returns both sides' odds at fixed-point scale.
func (s *MarketService) GetOdds(ctx context.Context, marketID uint) (yes int64, no int64, err error) {
	market, err := s.GetMarket(ctx, marketID)
	if err != nil {
		return 0, 0, err
	}
	return market.Odds()
}
