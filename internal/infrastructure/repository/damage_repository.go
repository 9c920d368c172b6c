package repository

import (
	"context"
	"errors"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DamageRepository struct {
	dbWrite *gorm.DB
	dbRead  *gorm.DB
}

func NewDamageRepository(dbWrite *gorm.DB, dbRead *gorm.DB) *DamageRepository {
	return &DamageRepository{dbWrite: dbWrite, dbRead: dbRead}
}

// InsertOnce stores the audit row unless one with the same event id
// already exists. It returns the stored row and whether this call wrote
// it.
func (r *DamageRepository) InsertOnce(ctx context.Context, row model.DamageLog) (model.DamageLog, bool, error) {
	res := r.dbWrite.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return model.DamageLog{}, false, res.Error
	}
	if res.RowsAffected == 1 {
		return row, true, nil
	}

	var existing model.DamageLog
	err := r.dbWrite.WithContext(ctx).Where("event_id = ?", row.EventID).First(&existing).Error
	return existing, false, err
}

// FindByEventID returns the audit row for eventID, or nil when the event
// has not been stored.
func (r *DamageRepository) FindByEventID(ctx context.Context, eventID string) (*model.DamageLog, error) {
	var out model.DamageLog
	err := r.dbWrite.WithContext(ctx).Where("event_id = ?", eventID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *DamageRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.DamageLog, error) {
	var out []model.DamageLog
	err := r.dbRead.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
