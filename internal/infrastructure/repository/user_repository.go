package repository

import (
	"context"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	dbWrite *gorm.DB
	dbRead  *gorm.DB
}

func NewUserRepository(dbWrite *gorm.DB, dbRead *gorm.DB) *UserRepository {
	return &UserRepository{dbWrite: dbWrite, dbRead: dbRead}
}

// FindOrCreateBySteamID returns the user for steamID, creating it on
// first sight. Concurrent first sightings converge on one row.
func (r *UserRepository) FindOrCreateBySteamID(ctx context.Context, steamID string) (model.User, error) {
	now := time.Now()
	u := model.User{SteamID: steamID, Username: steamID, LastActiveAt: now}
	err := r.dbWrite.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "steam_id"}},
			DoUpdates: clause.Assignments(map[string]any{"last_active_at": now}),
		}).
		Create(&u).Error
	if err != nil {
		return model.User{}, err
	}

	var out model.User
	err = r.dbWrite.WithContext(ctx).Where("steam_id = ?", steamID).First(&out).Error
	return out, err
}

func (r *UserRepository) GetBySteamID(ctx context.Context, steamID string) (model.User, error) {
	var out model.User
	err := r.dbRead.WithContext(ctx).Where("steam_id = ?", steamID).First(&out).Error
	return out, err
}
