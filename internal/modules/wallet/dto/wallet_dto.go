package dto

import (
	"encoding/json"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"
)

type WalletKeyInput struct {
	UserID     int64  `json:"user_id"     validate:"required,gt=0"`
	GameID     int64  `json:"game_id"     validate:"required,gt=0"`
	ServerID   *int64 `json:"server_id"   validate:"omitempty,gt=0"`
	CurrencyID int64  `json:"currency_id" validate:"required,gt=0"`
}

// MutationInput is the body of POST /api/wallet/credit and /debit.
type MutationInput struct {
	WalletKeyInput
	Amount          json.Number `json:"amount"           validate:"required,decimal_positive"`
	TransactionType string      `json:"transaction_type" validate:"required,oneof=DEPOSIT WITHDRAW TRANSFER_IN TRANSFER_OUT PURCHASE SALE REWARD PENALTY"`
	ReferenceID     string      `json:"reference_id"     validate:"max=100"`
}

type TransferInput struct {
	From        WalletKeyInput `json:"from"`
	To          WalletKeyInput `json:"to"`
	Amount      json.Number    `json:"amount"       validate:"required,decimal_positive"`
	ReferenceID string         `json:"reference_id" validate:"max=100"`
}

type MutationOutput struct {
	Applied     bool                    `json:"applied"`
	Transaction model.WalletTransaction `json:"transaction"`
	Wallet      model.Wallet            `json:"wallet"`
}

type TransferOutput struct {
	Out MutationOutput `json:"out"`
	In  MutationOutput `json:"in"`
}

type BalanceOutput struct {
	WalletID  int64  `json:"wallet_id"`
	WalletKey string `json:"wallet_key"`
	Balance   string `json:"balance"`
	Version   int64  `json:"version"`
	Source    string `json:"source"`
}

type VerifyOutput struct {
	WalletID int64  `json:"wallet_id"`
	Valid    bool   `json:"valid"`
	Problem  string `json:"problem,omitempty"`
}
