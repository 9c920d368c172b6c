package model

import "time"

type DropEntry struct {
	ID          int64     `json:"id"           gorm:"column:id;primaryKey;autoIncrement"`
	ItemID      string    `json:"item_id"      gorm:"column:item_id;type:varchar(255);not null;uniqueIndex:ux_drop_scope_item,priority:2"`
	ItemName    string    `json:"item_name"    gorm:"column:item_name;type:varchar(255);not null"`
	Rarity      int       `json:"rarity"       gorm:"column:rarity;not null;index"`
	Weight      float64   `json:"weight"       gorm:"column:weight;not null"`
	ServerScope string    `json:"server_scope" gorm:"column:server_scope;type:varchar(32);not null;uniqueIndex:ux_drop_scope_item,priority:1"`
	IsActive    bool      `json:"is_active"    gorm:"column:is_active;not null"`
	Description string    `json:"description"  gorm:"column:description;type:text"`
	CreatedAt   time.Time `json:"created_at"   gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at"   gorm:"column:updated_at"`
}

func (DropEntry) TableName() string { return "drop_entries" }
