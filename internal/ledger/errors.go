package ledger

import "errors"

var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrLedgerConflict         = errors.New("ledger conflict")
	ErrWalletInactive         = errors.New("wallet is inactive")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidWalletKey       = errors.New("invalid wallet key")
	ErrInvalidTransfer        = errors.New("invalid transfer")
	ErrChainBroken            = errors.New("transaction chain broken")
)
