package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is one balance per (user, game, server, currency). WalletKey is
// the canonical form of that tuple and carries the unique constraint, so
// a NULL server still collides with itself.
type Wallet struct {
	ID            int64           `json:"id"             gorm:"column:id;primaryKey;autoIncrement"`
	WalletKey     string          `json:"wallet_key"     gorm:"column:wallet_key;type:varchar(96);uniqueIndex;not null"`
	UserID        int64           `json:"user_id"        gorm:"column:user_id;not null;index"`
	GameID        int64           `json:"game_id"        gorm:"column:game_id;not null"`
	ServerID      *int64          `json:"server_id"      gorm:"column:server_id"`
	CurrencyID    int64           `json:"currency_id"    gorm:"column:currency_id;not null"`
	Balance       decimal.Decimal `json:"balance"        gorm:"column:balance;type:numeric(20,8);not null"`
	LockedBalance decimal.Decimal `json:"locked_balance" gorm:"column:locked_balance;type:numeric(20,8);not null"`
	IsActive      bool            `json:"is_active"      gorm:"column:is_active;not null"`
	Version       int64           `json:"version"        gorm:"column:version;not null"`
	CreatedAt     time.Time       `json:"created_at"     gorm:"column:created_at"`
	UpdatedAt     time.Time       `json:"updated_at"     gorm:"column:updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

// Available is the spendable part of the balance.
func (w Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.LockedBalance)
}
