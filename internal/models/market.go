package models

import (
	"time"

	"github.com/shopspring/decimal"

	"options-market/internal/fixedpoint"
)

// MarketStatus is the lifecycle state of a market. ACTIVE markets accept
// stakes and early exits; RESOLVED and CANCELLED are terminal.
type MarketStatus string

const (
	MarketStatusActive    MarketStatus = "ACTIVE"
	MarketStatusResolved  MarketStatus = "RESOLVED"
	MarketStatusCancelled MarketStatus = "CANCELLED"
)

// Side is a binary outcome side.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Valid reports whether s is one of the two recognised sides.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Market is one YES/NO prediction instance: will the label's price be at or
// above BasePrice when EndTime passes. Pool fields hold the sum of active
// stake principal per side; they are mutated only inside the stake service
// under the market's lock. Markets are never deleted — terminal states stay
// queryable for history and late claims.
type Market struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Label        string       `gorm:"size:255;not null" json:"label"`
	BasePrice    int64        `gorm:"not null" json:"base_price"` // fixed-point, 1e6 scale
	EndTime      time.Time    `gorm:"not null;index" json:"end_time"`
	FinalPrice   *int64       `json:"final_price"`
	WinningSide  *Side        `gorm:"size:10" json:"winning_side"`
	Status       MarketStatus `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
	YesPool      int64        `gorm:"not null;default:0" json:"yes_pool"`
	NoPool       int64        `gorm:"not null;default:0" json:"no_pool"`
	TotalFees    int64        `gorm:"not null;default:0" json:"total_fees"`
	CancelReason *string      `gorm:"size:255" json:"cancel_reason,omitempty"`
	CreatedBy    uint         `gorm:"index" json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	ResolvedAt   *time.Time   `json:"resolved_at"`
}

func (Market) TableName() string {
	return "markets"
}

// TotalPool is the invariant sum yes_pool + no_pool.
func (m *Market) TotalPool() int64 {
	return m.YesPool + m.NoPool
}

// SidePool returns the pool balance for the given side.
func (m *Market) SidePool(side Side) int64 {
	if side == SideYes {
		return m.YesPool
	}
	return m.NoPool
}

// Odds returns the implied odds for each side at fixed-point Scale. An empty
// market reports the neutral midpoint on both sides. Fails with
// fixedpoint.ErrArithmetic when a pool is deep enough that the scaled ratio
// would overflow.
func (m *Market) Odds() (yes int64, no int64, err error) {
	total := m.TotalPool()
	if total == 0 {
		return fixedpoint.Scale / 2, fixedpoint.Scale / 2, nil
	}
	yes, err = fixedpoint.MulDiv(m.YesPool, fixedpoint.Scale, total)
	if err != nil {
		return 0, 0, err
	}
	no, err = fixedpoint.MulDiv(m.NoPool, fixedpoint.Scale, total)
	if err != nil {
		return 0, 0, err
	}
	return yes, no, nil
}

// ---- Request/Response DTOs ----

// CreateMarketRequest is the request body for creating a market.
type CreateMarketRequest struct {
	Label           string `json:"label" binding:"required"`
	BasePrice       int64  `json:"base_price" binding:"required,gt=0"` // 1e6 scale
	DurationSeconds int64  `json:"duration_seconds" binding:"required,gt=0"`
}

// ResolveMarketRequest carries the final price for manual resolution.
type ResolveMarketRequest struct {
	FinalPrice int64 `json:"final_price" binding:"required,gt=0"` // 1e6 scale
}

// BatchResolveRequest resolves several markets in one call. Items fail or
// succeed independently.
type BatchResolveRequest struct {
	Items []BatchResolveItem `json:"items" binding:"required,dive"`
}

// BatchResolveItem pairs a market with its final price.
type BatchResolveItem struct {
	MarketID   uint  `json:"market_id" binding:"required"`
	FinalPrice int64 `json:"final_price" binding:"required,gt=0"`
}

// BatchResolveResult is the per-item outcome of a batch resolution.
type BatchResolveResult struct {
	MarketID uint   `json:"market_id"`
	Resolved bool   `json:"resolved"`
	Error    string `json:"error,omitempty"`
}

// CancelMarketRequest carries the operator's reason for cancelling.
type CancelMarketRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// MarketResponse is the API shape of a market, with odds rendered both as
// fixed-point integers and display decimals.
type MarketResponse struct {
	ID          uint       `json:"id"`
	Label       string     `json:"label"`
	BasePrice   int64      `json:"base_price"`
	EndTime     time.Time  `json:"end_time"`
	FinalPrice  *int64     `json:"final_price"`
	WinningSide *Side      `json:"winning_side"`
	Status      string     `json:"status"`
	YesPool     int64      `json:"yes_pool"`
	NoPool      int64      `json:"no_pool"`
	TotalPool   int64      `json:"total_pool"`
	TotalFees   int64      `json:"total_fees"`
	YesOdds     int64      `json:"yes_odds"`
	NoOdds      int64      `json:"no_odds"`
	YesOddsDec  string     `json:"yes_odds_decimal"`
	NoOddsDec   string     `json:"no_odds_decimal"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

// ToMarketResponse converts a Market for API output.
func ToMarketResponse(m *Market) (*MarketResponse, error) {
	yes, no, err := m.Odds()
	if err != nil {
		return nil, err
	}
	return &MarketResponse{
		ID:          m.ID,
		Label:       m.Label,
		BasePrice:   m.BasePrice,
		EndTime:     m.EndTime,
		FinalPrice:  m.FinalPrice,
		WinningSide: m.WinningSide,
		Status:      string(m.Status),
		YesPool:     m.YesPool,
		NoPool:      m.NoPool,
		TotalPool:   m.TotalPool(),
		TotalFees:   m.TotalFees,
		YesOdds:     yes,
		NoOdds:      no,
		YesOddsDec:  decimal.New(yes, 0).Div(decimal.New(fixedpoint.Scale, 0)).StringFixed(6),
		NoOddsDec:   decimal.New(no, 0).Div(decimal.New(fixedpoint.Scale, 0)).StringFixed(6),
		CreatedAt:   m.CreatedAt,
		ResolvedAt:  m.ResolvedAt,
	}, nil
}
