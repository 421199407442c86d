package models

import (
	"time"

	"github.com/google/uuid"
)

// SettlementType classifies a settlement audit record.
type SettlementType string

const (
	SettlementTypeDeposit   SettlementType = "DEPOSIT"
	SettlementTypeEarlyExit SettlementType = "EARLY_EXIT"
	SettlementTypeClaim     SettlementType = "CLAIM"
	SettlementTypeRefund    SettlementType = "REFUND"
	SettlementTypeFee       SettlementType = "FEE"
)

// SettlementTransaction is the audit trail: one row per value movement
// through the engine (stake in, exit/claim/refund out, fee retained).
// Fee rows carry UserID 0 — the platform, not a player.
type SettlementTransaction struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MarketID  uint           `gorm:"not null;index" json:"market_id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Type      SettlementType `gorm:"size:20;not null" json:"type"`
	Amount    int64          `gorm:"not null" json:"amount"`
	CreatedAt time.Time      `json:"created_at"`
}

func (SettlementTransaction) TableName() string {
	return "settlement_transactions"
}
