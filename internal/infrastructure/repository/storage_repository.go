package repository

import (
	"context"
	"errors"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StorageRepository struct {
	dbWrite *gorm.DB
	dbRead  *gorm.DB
}

func NewStorageRepository(dbWrite *gorm.DB, dbRead *gorm.DB) *StorageRepository {
	return &StorageRepository{dbWrite: dbWrite, dbRead: dbRead}
}

// GrantItem adds qty of itemID to the user's online storage. grantID
// makes the call idempotent: a grant already logged is skipped and
// reported with applied=false.
func (r *StorageRepository) GrantItem(ctx context.Context, grantID string, userID int64, itemID string, qty int64) (applied bool, err error) {
	err = r.dbWrite.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		logRow := model.GrantLog{GrantID: grantID, UserID: userID, ItemID: itemID, Quantity: qty}
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "grant_id"}}, DoNothing: true}).
			Create(&logRow)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		item := model.OnlineStorageItem{UserID: userID, ItemID: itemID, Quantity: qty}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("online_storage_items.quantity + ?", qty),
				"updated_at": time.Now(),
			}),
		}).Create(&item).Error
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (r *StorageRepository) ListItems(ctx context.Context, userID int64) ([]model.OnlineStorageItem, error) {
	var out []model.OnlineStorageItem
	err := r.dbRead.WithContext(ctx).Where("user_id = ?", userID).Order("item_id ASC").Find(&out).Error
	return out, err
}

func (r *StorageRepository) Quantity(ctx context.Context, userID int64, itemID string) (int64, error) {
	var item model.OnlineStorageItem
	err := r.dbRead.WithContext(ctx).Where("user_id = ? AND item_id = ?", userID, itemID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return item.Quantity, err
}
