package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/ledger"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/dto"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/store"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/shopspring/decimal"
)

type WalletUsecase struct {
	ledger *ledger.Ledger
	cache  *store.BalanceCache
}

// NewWalletUsecase builds the wallet API on top of the ledger. cache may
// be nil; balances are then always read from the database.
func NewWalletUsecase(l *ledger.Ledger, cache *store.BalanceCache) *WalletUsecase {
	return &WalletUsecase{ledger: l, cache: cache}
}

func KeyFromInput(in dto.WalletKeyInput) ledger.WalletKey {
	return ledger.WalletKey{UserID: in.UserID, GameID: in.GameID, ServerID: in.ServerID, CurrencyID: in.CurrencyID}
}

func (u *WalletUsecase) List(ctx context.Context, userID int64) ([]model.Wallet, error) {
	return u.ledger.UserWallets(ctx, userID)
}

// Balance serves from the cache when it has the key and falls back to
// the database, refreshing the cache on the way.
func (u *WalletUsecase) Balance(ctx context.Context, key ledger.WalletKey) (dto.BalanceOutput, error) {
	if err := key.Validate(); err != nil {
		return dto.BalanceOutput{}, err
	}
	if u.cache != nil {
		cached, ok, err := u.cache.Get(ctx, key.String())
		if err != nil {
			logger.WithError(err).WithField("wallet_key", key.String()).Warn("balance cache read failed")
		} else if ok {
			return dto.BalanceOutput{
				WalletID:  cached.WalletID,
				WalletKey: key.String(),
				Balance:   cached.Balance.StringFixed(8),
				Version:   cached.Version,
				Source:    "cache",
			}, nil
		}
	}

	w, err := u.ledger.Balance(ctx, key)
	if err != nil {
		return dto.BalanceOutput{}, err
	}
	if u.cache != nil {
		_, err := u.cache.Apply(ctx, w.WalletKey, store.CachedBalance{WalletID: w.ID, Balance: w.Balance, Version: w.Version})
		if err != nil {
			logger.WithError(err).WithField("wallet_key", w.WalletKey).Warn("balance cache fill failed")
		}
	}
	return dto.BalanceOutput{
		WalletID:  w.ID,
		WalletKey: w.WalletKey,
		Balance:   w.Balance.StringFixed(8),
		Version:   w.Version,
		Source:    "db",
	}, nil
}

func (u *WalletUsecase) Transactions(ctx context.Context, walletID int64, limit, offset int) ([]model.WalletTransaction, error) {
	return u.ledger.Transactions(ctx, walletID, limit, offset)
}

func (u *WalletUsecase) Credit(ctx context.Context, in dto.MutationInput) (dto.MutationOutput, error) {
	amount, err := parseAmount(in.Amount.String())
	if err != nil {
		return dto.MutationOutput{}, err
	}
	res, err := u.ledger.Credit(ctx, KeyFromInput(in.WalletKeyInput), amount, model.TransactionType(in.TransactionType), in.ReferenceID)
	if err != nil {
		return dto.MutationOutput{}, err
	}
	return toOutput(res), nil
}

func (u *WalletUsecase) Debit(ctx context.Context, in dto.MutationInput) (dto.MutationOutput, error) {
	amount, err := parseAmount(in.Amount.String())
	if err != nil {
		return dto.MutationOutput{}, err
	}
	res, err := u.ledger.Debit(ctx, KeyFromInput(in.WalletKeyInput), amount, model.TransactionType(in.TransactionType), in.ReferenceID)
	if err != nil {
		return dto.MutationOutput{}, err
	}
	return toOutput(res), nil
}

func (u *WalletUsecase) Transfer(ctx context.Context, in dto.TransferInput) (dto.TransferOutput, error) {
	amount, err := parseAmount(in.Amount.String())
	if err != nil {
		return dto.TransferOutput{}, err
	}
	out, inRes, err := u.ledger.Transfer(ctx, KeyFromInput(in.From), KeyFromInput(in.To), amount, in.ReferenceID)
	if err != nil {
		return dto.TransferOutput{}, err
	}
	return dto.TransferOutput{Out: toOutput(out), In: toOutput(inRes)}, nil
}

// Verify reports a broken chain as a result rather than an error.
func (u *WalletUsecase) Verify(ctx context.Context, walletID int64) (dto.VerifyOutput, error) {
	err := u.ledger.VerifyChain(ctx, walletID)
	switch {
	case err == nil:
		return dto.VerifyOutput{WalletID: walletID, Valid: true}, nil
	case errors.Is(err, ledger.ErrChainBroken):
		logger.WithError(err).WithField("wallet_id", walletID).Error("wallet chain broken")
		return dto.VerifyOutput{WalletID: walletID, Valid: false, Problem: err.Error()}, nil
	default:
		return dto.VerifyOutput{}, err
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, s)
	}
	return d, nil
}

func toOutput(r *ledger.Result) dto.MutationOutput {
	return dto.MutationOutput{Applied: r.Applied, Transaction: r.Transaction, Wallet: r.Wallet}
}
