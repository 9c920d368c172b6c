package ledger

import (
	"fmt"
	"strconv"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"
)

// WalletKey identifies one balance. A nil ServerID is the game-wide
// wallet.
type WalletKey struct {
	UserID     int64  `json:"user_id"`
	GameID     int64  `json:"game_id"`
	ServerID   *int64 `json:"server_id,omitempty"`
	CurrencyID int64  `json:"currency_id"`
}

func (k WalletKey) String() string {
	server := "-"
	if k.ServerID != nil {
		server = strconv.FormatInt(*k.ServerID, 10)
	}
	return fmt.Sprintf("u%d:g%d:s%s:c%d", k.UserID, k.GameID, server, k.CurrencyID)
}

func (k WalletKey) Validate() error {
	if k.UserID <= 0 || k.GameID <= 0 || k.CurrencyID <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWalletKey, k)
	}
	if k.ServerID != nil && *k.ServerID <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWalletKey, k)
	}
	return nil
}

func (k WalletKey) newWallet() model.Wallet {
	return model.Wallet{
		WalletKey:  k.String(),
		UserID:     k.UserID,
		GameID:     k.GameID,
		ServerID:   k.ServerID,
		CurrencyID: k.CurrencyID,
	}
}

func KeyOf(w model.Wallet) WalletKey {
	return WalletKey{UserID: w.UserID, GameID: w.GameID, ServerID: w.ServerID, CurrencyID: w.CurrencyID}
}
