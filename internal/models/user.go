package models

import "time"

// User is an account keyed by Solana wallet address. Balance is the custody
// ledger the engine denominates stakes and payouts in (1e6 scale); it is
// funded by verified on-chain deposits and drained by withdrawals. Operators
// may create, resolve and cancel markets.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"size:255;uniqueIndex;not null" json:"wallet_address"`
	Balance       int64     `gorm:"not null;default:0" json:"balance"` // 1e6 scale
	IsOperator    bool      `gorm:"not null;default:false" json:"is_operator"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// WalletDeposit records one credited on-chain deposit. The unique signature
// index is what stops a confirmed transaction from being credited twice.
type WalletDeposit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Signature string    `gorm:"size:128;uniqueIndex;not null" json:"signature"`
	Amount    int64     `gorm:"not null" json:"amount"` // 1e6 scale
	CreatedAt time.Time `json:"created_at"`
}

func (WalletDeposit) TableName() string {
	return "wallet_deposits"
}
