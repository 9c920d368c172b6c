package repository

import (
	"context"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DropRepository struct {
	dbWrite *gorm.DB
	dbRead  *gorm.DB
}

func NewDropRepository(dbWrite *gorm.DB, dbRead *gorm.DB) *DropRepository {
	return &DropRepository{dbWrite: dbWrite, dbRead: dbRead}
}

func (r *DropRepository) List(ctx context.Context) ([]model.DropEntry, error) {
	var out []model.DropEntry
	err := r.dbRead.WithContext(ctx).Order("rarity ASC, item_id ASC").Find(&out).Error
	return out, err
}

// SeedIfEmpty writes rows only when the table holds nothing yet and
// reports how many were inserted.
func (r *DropRepository) SeedIfEmpty(ctx context.Context, rows []model.DropEntry) (int64, error) {
	var inserted int64
	err := r.dbWrite.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.DropEntry{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 || len(rows) == 0 {
			return nil
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "server_scope"}, {Name: "item_id"}},
			DoNothing: true,
		}).CreateInBatches(rows, 100)
		inserted = res.RowsAffected
		return res.Error
	})
	return inserted, err
}
