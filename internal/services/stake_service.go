package services

import (
	"context"
	"fmt"
	"time"

	"options-market/internal/fixedpoint"
	"options-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StakeService owns all pool mutation and payout arithmetic: deposits, early
// exits and final claims. No other code path touches yes_pool/no_pool. Every
// operation takes the market's lock and runs in one database transaction so
// the pool update, the position write and the ledger movement commit
// together or not at all.
type StakeService struct {
	db         *gorm.DB
	ledger     Ledger
	locks      *MarketLocks
	feeRateBps int64

	now func() time.Time
}

// NewStakeService creates a new stake service
func NewStakeService(db *gorm.DB, ledger Ledger, locks *MarketLocks, feeRateBps int64) *StakeService {
	return &StakeService{
		db:         db,
		ledger:     ledger,
		locks:      locks,
		feeRateBps: feeRateBps,
		now:        time.Now,
	}
}

// PlaceStake stakes amount on one side of an active market and returns the
// shares issued. The user's balance is debited atomically with the pool and
// position update.
//
// Repeat stakes on the same side do not add shares naively: the prior
// principal is unwound from the pool, shares are recomputed for the combined
// amount against the remaining pool state, then the combined principal is
// re-added. This stops a user's own earlier stake from inflating their claim
// on the opposing pool. A stake on the opposite side of an unclaimed
// position is rejected.
func (s *StakeService) PlaceStake(ctx context.Context, userID, marketID uint, side models.Side, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: stake amount must be positive", ErrInvalidParameter)
	}
	if !side.Valid() {
		return 0, fmt.Errorf("%w: side must be YES or NO", ErrInvalidParameter)
	}

	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	var shares int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := loadMarket(tx, marketID)
		if err != nil {
			return err
		}
		if err := requireActive(market); err != nil {
			return err
		}
		if !s.now().Before(market.EndTime) {
			return fmt.Errorf("%w: staking window closed at %v", ErrInvalidState, market.EndTime)
		}

		if err := s.ledger.Debit(tx, userID, amount); err != nil {
			return err
		}

		var position models.Position
		err = tx.Where("market_id = ? AND user_id = ?", marketID, userID).First(&position).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			// First stake: shares mint against the pool as it stands.
			shares, err = fixedpoint.ShareForDeposit(amount, market.SidePool(side), market.TotalPool())
			if err != nil {
				return err
			}
			position = models.Position{
				MarketID: marketID,
				UserID:   userID,
				Side:     side,
				Amount:   amount,
				Shares:   shares,
			}
			if err := tx.Create(&position).Error; err != nil {
				return fmt.Errorf("failed to create position: %w", err)
			}
			addToPool(market, side, amount)

		case err != nil:
			return fmt.Errorf("failed to load position: %w", err)

		case position.Claimed:
			// A settled position contributes nothing; this is a fresh strike.
			shares, err = fixedpoint.ShareForDeposit(amount, market.SidePool(side), market.TotalPool())
			if err != nil {
				return err
			}
			position.Side = side
			position.Amount = amount
			position.Shares = shares
			position.Claimed = false
			if err := tx.Save(&position).Error; err != nil {
				return fmt.Errorf("failed to update position: %w", err)
			}
			addToPool(market, side, amount)

		case position.Side != side:
			return fmt.Errorf("market %d user %d: %w", marketID, userID, ErrPositionSideConflict)

		default:
			// Same-side aggregation: unwind, then redeposit the combined stake.
			poolAfterRemoval := market.SidePool(side) - position.Amount
			totalAfterRemoval := market.TotalPool() - position.Amount
			combined := position.Amount + amount
			if combined < position.Amount || poolAfterRemoval < 0 || totalAfterRemoval < 0 {
				return fixedpoint.ErrArithmetic
			}
			shares, err = fixedpoint.ShareForDeposit(combined, poolAfterRemoval, totalAfterRemoval)
			if err != nil {
				return err
			}
			position.Amount = combined
			position.Shares = shares
			if err := tx.Save(&position).Error; err != nil {
				return fmt.Errorf("failed to update position: %w", err)
			}
			setPool(market, side, poolAfterRemoval+combined)
		}

		if err := tx.Save(market).Error; err != nil {
			return fmt.Errorf("failed to update market pools: %w", err)
		}

		return recordSettlement(tx, marketID, userID, models.SettlementTypeDeposit, amount)
	})

	if err != nil {
		return 0, err
	}
	return shares, nil
}

// EarlyExit unwinds an unclaimed position on an active market before its end
// time: the position is paid its principal plus a pro-rata slice of the
// current opposing pool, a fee is charged on the profit portion only, the
// principal (never the payout) leaves the pool, and the position is marked
// claimed. Returns gross payout, fee and net payout.
func (s *StakeService) EarlyExit(ctx context.Context, userID, marketID uint) (gross, fee, net int64, err error) {
	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := loadMarket(tx, marketID)
		if err != nil {
			return err
		}
		if err := requireActive(market); err != nil {
			return err
		}
		if !s.now().Before(market.EndTime) {
			// The exit window closes exactly when the resolve window opens.
			return fmt.Errorf("%w: exit window closed at %v", ErrInvalidState, market.EndTime)
		}

		position, err := loadPosition(tx, marketID, userID)
		if err != nil {
			return err
		}
		if position.Claimed {
			return fmt.Errorf("market %d user %d: %w", marketID, userID, ErrAlreadyClaimed)
		}

		gross, fee, net, err = s.settle(tx, market, position, models.SettlementTypeEarlyExit)
		return err
	})

	if err != nil {
		return 0, 0, 0, err
	}
	return gross, fee, net, nil
}

// Claim pays out a winning position after resolution. Pools are read live:
// each claim removes its principal from the winning pool before the next
// claimant's ratio is computed, so claim order among winners shifts exact
// payouts. That ordering sensitivity is intentional and covered by tests.
func (s *StakeService) Claim(ctx context.Context, userID, marketID uint) (gross, fee, net int64, err error) {
	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := loadMarket(tx, marketID)
		if err != nil {
			return err
		}
		if market.Status != models.MarketStatusResolved {
			if market.Status == models.MarketStatusCancelled {
				return fmt.Errorf("market %d: %w", marketID, ErrAlreadyCancelled)
			}
			return fmt.Errorf("%w: market %d is not resolved", ErrInvalidState, marketID)
		}

		position, err := loadPosition(tx, marketID, userID)
		if err != nil {
			return err
		}
		if position.Claimed {
			return fmt.Errorf("market %d user %d: %w", marketID, userID, ErrAlreadyClaimed)
		}
		if market.WinningSide == nil || position.Side != *market.WinningSide {
			return fmt.Errorf("market %d user %d: %w", marketID, userID, ErrNotAWinner)
		}

		gross, fee, net, err = s.settle(tx, market, position, models.SettlementTypeClaim)
		return err
	})

	if err != nil {
		return 0, 0, 0, err
	}
	return gross, fee, net, nil
}

// settle computes and pays out one position against the live pools, then
// removes its principal from its side's pool and marks it claimed. Shared by
// early exit and final claim; the formula is the same, only the lifecycle
// gates differ.
func (s *StakeService) settle(tx *gorm.DB, market *models.Market, position *models.Position, kind models.SettlementType) (gross, fee, net int64, err error) {
	winningPool := market.SidePool(position.Side)
	losingPool := market.SidePool(position.Side.Opposite())

	gross, err = fixedpoint.PayoutForShares(position.Amount, position.Shares, winningPool, losingPool)
	if err != nil {
		return 0, 0, 0, err
	}

	fee, err = fixedpoint.FeeOn(gross-position.Amount, s.feeRateBps)
	if err != nil {
		return 0, 0, 0, err
	}
	net = gross - fee

	// Principal leaves the pool; the payout never does.
	newPool := winningPool - position.Amount
	if newPool < 0 {
		return 0, 0, 0, fixedpoint.ErrArithmetic
	}
	setPool(market, position.Side, newPool)
	market.TotalFees += fee

	position.Claimed = true
	if err := tx.Save(position).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("failed to mark position claimed: %w", err)
	}
	if err := tx.Save(market).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("failed to update market pools: %w", err)
	}

	if err := s.ledger.Credit(tx, position.UserID, net); err != nil {
		return 0, 0, 0, err
	}
	if err := recordSettlement(tx, market.ID, position.UserID, kind, net); err != nil {
		return 0, 0, 0, err
	}
	if fee > 0 {
		if err := recordSettlement(tx, market.ID, 0, models.SettlementTypeFee, fee); err != nil {
			return 0, 0, 0, err
		}
	}

	return gross, fee, net, nil
}

// GetPotentialPayout projects what the user's position would pay right now
// without mutating anything: the early-exit payout while the market is
// active, the final-claim payout once resolved (zero for the losing side),
// or the outstanding principal refund after cancellation.
func (s *StakeService) GetPotentialPayout(ctx context.Context, userID, marketID uint) (int64, error) {
	var market models.Market
	if err := s.db.WithContext(ctx).First(&market, marketID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, fmt.Errorf("market %d: %w", marketID, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to load market %d: %w", marketID, err)
	}

	position, err := s.GetPosition(ctx, userID, marketID)
	if err != nil {
		return 0, err
	}
	if position.Claimed {
		return 0, nil
	}

	switch market.Status {
	case models.MarketStatusCancelled:
		return position.Amount, nil
	case models.MarketStatusResolved:
		if market.WinningSide == nil || position.Side != *market.WinningSide {
			return 0, nil
		}
	}

	gross, err := fixedpoint.PayoutForShares(
		position.Amount,
		position.Shares,
		market.SidePool(position.Side),
		market.SidePool(position.Side.Opposite()),
	)
	if err != nil {
		return 0, err
	}
	fee, err := fixedpoint.FeeOn(gross-position.Amount, s.feeRateBps)
	if err != nil {
		return 0, err
	}
	return gross - fee, nil
}

// GetPosition retrieves the user's position in a market.
func (s *StakeService) GetPosition(ctx context.Context, userID, marketID uint) (*models.Position, error) {
	var position models.Position
	err := s.db.WithContext(ctx).
		Where("market_id = ? AND user_id = ?", marketID, userID).
		First(&position).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("position for market %d user %d: %w", marketID, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load position: %w", err)
	}
	return &position, nil
}

// ListUserPositions retrieves all positions for a user, newest first.
func (s *StakeService) ListUserPositions(ctx context.Context, userID uint, limit, offset int) ([]models.Position, error) {
	var positions []models.Position
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return positions, nil
}

// ---- shared helpers ----

func loadMarket(tx *gorm.DB, marketID uint) (*models.Market, error) {
	var market models.Market
	if err := tx.First(&market, marketID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("market %d: %w", marketID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load market %d: %w", marketID, err)
	}
	return &market, nil
}

func loadPosition(tx *gorm.DB, marketID, userID uint) (*models.Position, error) {
	var position models.Position
	err := tx.Where("market_id = ? AND user_id = ?", marketID, userID).First(&position).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("position for market %d user %d: %w", marketID, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load position: %w", err)
	}
	return &position, nil
}

func requireActive(market *models.Market) error {
	switch market.Status {
	case models.MarketStatusActive:
		return nil
	case models.MarketStatusResolved:
		return fmt.Errorf("market %d: %w", market.ID, ErrAlreadyResolved)
	case models.MarketStatusCancelled:
		return fmt.Errorf("market %d: %w", market.ID, ErrAlreadyCancelled)
	default:
		return fmt.Errorf("%w: market %d has status %s", ErrInvalidState, market.ID, market.Status)
	}
}

func addToPool(market *models.Market, side models.Side, amount int64) {
	setPool(market, side, market.SidePool(side)+amount)
}

func setPool(market *models.Market, side models.Side, value int64) {
	if side == models.SideYes {
		market.YesPool = value
	} else {
		market.NoPool = value
	}
}

func recordSettlement(tx *gorm.DB, marketID, userID uint, kind models.SettlementType, amount int64) error {
	record := &models.SettlementTransaction{
		ID:       uuid.New(),
		MarketID: marketID,
		UserID:   userID,
		Type:     kind,
		Amount:   amount,
	}
	if err := tx.Create(record).Error; err != nil {
		return fmt.Errorf("failed to record settlement transaction: %w", err)
	}
	return nil
}
