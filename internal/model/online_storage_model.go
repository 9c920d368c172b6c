package model

import "time"

// OnlineStorageItem is a stack of items a player can pull into the game.
type OnlineStorageItem struct {
	ID        int64     `json:"id"         gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id"    gorm:"column:user_id;not null;uniqueIndex:ux_storage_user_item,priority:1"`
	ItemID    string    `json:"item_id"    gorm:"column:item_id;type:varchar(255);not null;uniqueIndex:ux_storage_user_item,priority:2"`
	Quantity  int64     `json:"quantity"   gorm:"column:quantity;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (OnlineStorageItem) TableName() string { return "online_storage_items" }

// GrantLog records each delivered grant so redelivery of the same task
// is a no-op.
type GrantLog struct {
	ID        int64     `json:"id"         gorm:"column:id;primaryKey;autoIncrement"`
	GrantID   string    `json:"grant_id"   gorm:"column:grant_id;type:varchar(64);uniqueIndex;not null"`
	UserID    int64     `json:"user_id"    gorm:"column:user_id;not null"`
	ItemID    string    `json:"item_id"    gorm:"column:item_id;type:varchar(255);not null"`
	Quantity  int64     `json:"quantity"   gorm:"column:quantity;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (GrantLog) TableName() string { return "grant_logs" }
