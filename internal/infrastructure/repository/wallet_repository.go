package repository

import (
	"context"
	"errors"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleVersion means the wallet row moved since it was read.
var ErrStaleVersion = errors.New("wallet version is stale")

type WalletRepository struct {
	dbWrite *gorm.DB
	dbRead  *gorm.DB
}

func NewWalletRepository(dbWrite *gorm.DB, dbRead *gorm.DB) *WalletRepository {
	return &WalletRepository{dbWrite: dbWrite, dbRead: dbRead}
}

// Transaction runs fn against a repository bound to one DB transaction.
// Reads inside fn go through the same transaction.
func (r *WalletRepository) Transaction(ctx context.Context, fn func(repo *WalletRepository) error) error {
	return r.dbWrite.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&WalletRepository{dbWrite: tx, dbRead: tx})
	})
}

// EnsureWallet inserts the wallet for w.WalletKey unless it exists, then
// returns the stored row locked for update. Racing first-time callers
// all end up on the single row the unique key allows.
func (r *WalletRepository) EnsureWallet(ctx context.Context, w model.Wallet) (model.Wallet, error) {
	w.Balance = decimal.Zero
	w.LockedBalance = decimal.Zero
	w.IsActive = true
	w.Version = 0

	err := r.dbWrite.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "wallet_key"}}, DoNothing: true}).
		Create(&w).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.Wallet{}, err
	}
	return r.LockWallet(ctx, w.WalletKey)
}

func (r *WalletRepository) LockWallet(ctx context.Context, walletKey string) (model.Wallet, error) {
	var out model.Wallet
	err := r.dbWrite.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("wallet_key = ?", walletKey).
		First(&out).Error
	return out, err
}

func (r *WalletRepository) GetWalletByKey(ctx context.Context, walletKey string) (model.Wallet, error) {
	var out model.Wallet
	err := r.dbRead.WithContext(ctx).Where("wallet_key = ?", walletKey).First(&out).Error
	return out, err
}

func (r *WalletRepository) GetWallet(ctx context.Context, walletID int64) (model.Wallet, error) {
	var out model.Wallet
	err := r.dbRead.WithContext(ctx).First(&out, "id = ?", walletID).Error
	return out, err
}

func (r *WalletRepository) ListUserWallets(ctx context.Context, userID int64) ([]model.Wallet, error) {
	var out []model.Wallet
	err := r.dbRead.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// FindByReference returns the transaction already recorded for ref, if any.
func (r *WalletRepository) FindByReference(
	ctx context.Context,
	walletID int64,
	txType model.TransactionType,
	ref string,
) (*model.WalletTransaction, error) {
	var out model.WalletTransaction
	res := r.dbWrite.WithContext(ctx).
		Where("wallet_id = ? AND transaction_type = ? AND reference_id = ?", walletID, txType, ref).
		Limit(1).
		Find(&out)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &out, nil
}

// SwapBalance writes the new balance only if the row still carries
// expectedVersion, bumping the version on success.
func (r *WalletRepository) SwapBalance(
	ctx context.Context,
	walletID, expectedVersion int64,
	balance decimal.Decimal,
) error {
	res := r.dbWrite.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND version = ?", walletID, expectedVersion).
		Updates(map[string]any{
			"balance":    balance.Round(8),
			"version":    expectedVersion + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (r *WalletRepository) InsertTransaction(ctx context.Context, t *model.WalletTransaction) error {
	return r.dbWrite.WithContext(ctx).Create(t).Error
}

func (r *WalletRepository) SetActive(ctx context.Context, walletKey string, active bool) (int64, error) {
	res := r.dbWrite.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("wallet_key = ?", walletKey).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

// ListTransactions pages through a wallet's history, newest first.
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID int64, limit, offset int) ([]model.WalletTransaction, error) {
	var out []model.WalletTransaction
	err := r.dbRead.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}

// EachTransaction streams a wallet's history oldest first, in primary
// key batches.
func (r *WalletRepository) EachTransaction(ctx context.Context, walletID int64, batch int, fn func(model.WalletTransaction) error) error {
	var rows []model.WalletTransaction
	res := r.dbRead.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		FindInBatches(&rows, batch, func(_ *gorm.DB, _ int) error {
			for _, row := range rows {
				if err := fn(row); err != nil {
					return err
				}
			}
			return nil
		})
	return res.Error
}
