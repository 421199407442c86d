package models

import "time"

// Position is a user's aggregated stake in one market. A user holds at most
// one active position per market: repeat stakes on the same side fold into
// this record (shares recomputed, not summed), and a stake on the opposite
// side is rejected while the position is unclaimed. Claimed covers every way
// a position settles — early exit, final claim, or cancellation refund.
type Position struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MarketID  uint      `gorm:"not null;uniqueIndex:idx_positions_market_user" json:"market_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_positions_market_user;index" json:"user_id"`
	Side      Side      `gorm:"size:10;not null" json:"side"`
	Amount    int64     `gorm:"not null" json:"amount"` // cumulative principal, 1e6 scale
	Shares    int64     `gorm:"not null" json:"shares"` // normalized claim units
	Claimed   bool      `gorm:"not null;default:false;index" json:"claimed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

// ---- Request/Response DTOs ----

// PlaceStakeRequest is the request body for staking on a market.
type PlaceStakeRequest struct {
	Side   Side  `json:"side" binding:"required"`
	Amount int64 `json:"amount" binding:"required,gt=0"` // 1e6 scale
}

// StakeResponse reports the shares issued for a stake.
type StakeResponse struct {
	MarketID uint  `json:"market_id"`
	Side     Side  `json:"side"`
	Amount   int64 `json:"amount"`
	Shares   int64 `json:"shares"`
}

// SettleResponse reports the outcome of an early exit or final claim.
type SettleResponse struct {
	MarketID    uint  `json:"market_id"`
	GrossPayout int64 `json:"gross_payout"`
	Fee         int64 `json:"fee"`
	NetPayout   int64 `json:"net_payout"`
}

// PositionResponse is the API shape of a position.
type PositionResponse struct {
	MarketID  uint      `json:"market_id"`
	Side      Side      `json:"side"`
	Amount    int64     `json:"amount"`
	Shares    int64     `json:"shares"`
	Claimed   bool      `json:"claimed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToPositionResponse converts a Position for API output.
func ToPositionResponse(p *Position) *PositionResponse {
	return &PositionResponse{
		MarketID:  p.MarketID,
		Side:      p.Side,
		Amount:    p.Amount,
		Shares:    p.Shares,
		Claimed:   p.Claimed,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
