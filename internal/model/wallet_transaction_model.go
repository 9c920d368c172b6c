package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxDeposit     TransactionType = "DEPOSIT"
	TxWithdraw    TransactionType = "WITHDRAW"
	TxTransferIn  TransactionType = "TRANSFER_IN"
	TxTransferOut TransactionType = "TRANSFER_OUT"
	TxPurchase    TransactionType = "PURCHASE"
	TxSale        TransactionType = "SALE"
	TxReward      TransactionType = "REWARD"
	TxPenalty     TransactionType = "PENALTY"
)

// IsCredit reports whether the type adds to a balance. Unknown types
// are neither credit nor debit.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TxDeposit, TxTransferIn, TxSale, TxReward:
		return true
	}
	return false
}

func (t TransactionType) IsDebit() bool {
	switch t {
	case TxWithdraw, TxTransferOut, TxPurchase, TxPenalty:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "PENDING"
	TxStatusCompleted TransactionStatus = "COMPLETED"
	TxStatusFailed    TransactionStatus = "FAILED"
	TxStatusCancelled TransactionStatus = "CANCELLED"
)

// WalletTransaction is an append-only ledger row. Amount is always
// positive; Type gives the sign.
type WalletTransaction struct {
	ID            int64             `json:"id"             gorm:"column:id;primaryKey;autoIncrement"`
	WalletID      int64             `json:"wallet_id"      gorm:"column:wallet_id;not null;index:ix_wallet_tx_wallet_id;uniqueIndex:ux_wallet_tx_ref,priority:1"`
	UserID        int64             `json:"user_id"        gorm:"column:user_id;not null;index"`
	Type          TransactionType   `json:"transaction_type" gorm:"column:transaction_type;type:varchar(16);not null;uniqueIndex:ux_wallet_tx_ref,priority:2"`
	Amount        decimal.Decimal   `json:"amount"         gorm:"column:amount;type:numeric(20,8);not null"`
	BalanceBefore decimal.Decimal   `json:"balance_before" gorm:"column:balance_before;type:numeric(20,8);not null"`
	BalanceAfter  decimal.Decimal   `json:"balance_after"  gorm:"column:balance_after;type:numeric(20,8);not null"`
	ReferenceID   *string           `json:"reference_id"   gorm:"column:reference_id;type:varchar(100);uniqueIndex:ux_wallet_tx_ref,priority:3"`
	Description   string            `json:"description"    gorm:"column:description;type:varchar(500)"`
	Status        TransactionStatus `json:"status"         gorm:"column:status;type:varchar(16);not null"`
	CreatedAt     time.Time         `json:"created_at"     gorm:"column:created_at;index"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }

// Signed returns the amount with the direction of the transaction type.
func (t WalletTransaction) Signed() decimal.Decimal {
	if t.Type.IsDebit() {
		return t.Amount.Neg()
	}
	return t.Amount
}
