package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"options-market/internal/models"

	"gorm.io/gorm"
)

// SettlementService drives market lifecycle transitions: resolution at or
// after end time, and operator cancellation with a full principal refund
// sweep. Pool arithmetic for individual payouts stays in StakeService; this
// service only freezes the outcome the pools are judged against.
type SettlementService struct {
	db         *gorm.DB
	authorizer Authorizer
	ledger     Ledger
	locks      *MarketLocks

	now func() time.Time
}

// NewSettlementService creates a new settlement service
func NewSettlementService(db *gorm.DB, authorizer Authorizer, ledger Ledger, locks *MarketLocks) *SettlementService {
	return &SettlementService{
		db:         db,
		authorizer: authorizer,
		ledger:     ledger,
		locks:      locks,
		now:        time.Now,
	}
}

// Resolve settles an active market against finalPrice. Only operators may
// resolve, and only once the market's end time has passed. A final price
// equal to the strike resolves in favor of YES.
func (s *SettlementService) Resolve(ctx context.Context, callerID, marketID uint, finalPrice int64) (*models.Market, error) {
	ok, err := s.authorizer.IsAuthorizedOperator(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %d may not resolve markets: %w", callerID, ErrUnauthorized)
	}
	return s.resolve(ctx, marketID, finalPrice)
}

// AutoResolve is the unattended path used by the resolver job once it has an
// oracle price. It skips the operator check; the job is trusted.
func (s *SettlementService) AutoResolve(ctx context.Context, marketID uint, finalPrice int64) (*models.Market, error) {
	return s.resolve(ctx, marketID, finalPrice)
}

func (s *SettlementService) resolve(ctx context.Context, marketID uint, finalPrice int64) (*models.Market, error) {
	if finalPrice <= 0 {
		return nil, fmt.Errorf("%w: final price must be positive", ErrInvalidParameter)
	}

	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	var resolved *models.Market
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := loadMarket(tx, marketID)
		if err != nil {
			return err
		}
		if err := requireActive(market); err != nil {
			return err
		}
		now := s.now()
		if now.Before(market.EndTime) {
			return fmt.Errorf("market %d ends at %v: %w", marketID, market.EndTime, ErrTooEarly)
		}

		// Ties go to YES: the option pays out when price held at or above
		// the strike.
		winner := models.SideNo
		if finalPrice >= market.BasePrice {
			winner = models.SideYes
		}

		market.Status = models.MarketStatusResolved
		market.FinalPrice = &finalPrice
		market.WinningSide = &winner
		market.ResolvedAt = &now
		if err := tx.Save(market).Error; err != nil {
			return fmt.Errorf("failed to resolve market %d: %w", marketID, err)
		}
		resolved = market
		return nil
	})

	if err != nil {
		return nil, err
	}
	log.Printf("[Settlement] Market %d resolved: final=%d strike=%d winner=%s",
		resolved.ID, finalPrice, resolved.BasePrice, *resolved.WinningSide)
	return resolved, nil
}

// BatchResolve resolves several markets in one call. Each item is its own
// transaction; one failure never rolls back or blocks the rest.
func (s *SettlementService) BatchResolve(ctx context.Context, callerID uint, items []models.BatchResolveItem) ([]models.BatchResolveResult, error) {
	ok, err := s.authorizer.IsAuthorizedOperator(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %d may not resolve markets: %w", callerID, ErrUnauthorized)
	}

	results := make([]models.BatchResolveResult, 0, len(items))
	for _, item := range items {
		result := models.BatchResolveResult{MarketID: item.MarketID}
		if _, err := s.resolve(ctx, item.MarketID, item.FinalPrice); err != nil {
			result.Error = err.Error()
		} else {
			result.Resolved = true
		}
		results = append(results, result)
	}
	return results, nil
}

// Cancel voids an active market and refunds every unclaimed position its
// principal, with no fees. Positions already settled by early exit keep what
// they were paid. Pools are zeroed once the sweep completes.
func (s *SettlementService) Cancel(ctx context.Context, callerID, marketID uint, reason string) (*models.Market, error) {
	ok, err := s.authorizer.IsAuthorizedOperator(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %d may not cancel markets: %w", callerID, ErrUnauthorized)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: cancel reason is required", ErrInvalidParameter)
	}

	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	var cancelled *models.Market
	var refunds int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := loadMarket(tx, marketID)
		if err != nil {
			return err
		}
		if err := requireActive(market); err != nil {
			return err
		}

		var positions []models.Position
		if err := tx.Where("market_id = ? AND claimed = ?", marketID, false).
			Find(&positions).Error; err != nil {
			return fmt.Errorf("failed to load positions for market %d: %w", marketID, err)
		}

		for i := range positions {
			position := &positions[i]
			if err := s.ledger.Credit(tx, position.UserID, position.Amount); err != nil {
				return err
			}
			position.Claimed = true
			if err := tx.Save(position).Error; err != nil {
				return fmt.Errorf("failed to mark position refunded: %w", err)
			}
			if err := recordSettlement(tx, marketID, position.UserID, models.SettlementTypeRefund, position.Amount); err != nil {
				return err
			}
		}
		refunds = len(positions)

		market.Status = models.MarketStatusCancelled
		market.CancelReason = &reason
		market.YesPool = 0
		market.NoPool = 0
		if err := tx.Save(market).Error; err != nil {
			return fmt.Errorf("failed to cancel market %d: %w", marketID, err)
		}
		cancelled = market
		return nil
	})

	if err != nil {
		return nil, err
	}
	log.Printf("[Settlement] Market %d cancelled (%s): refunded %d positions", marketID, reason, refunds)
	return cancelled, nil
}
