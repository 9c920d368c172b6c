package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DamageLog is the write-once audit row of one ingested damage event.
type DamageLog struct {
	ID             int64           `json:"id"              gorm:"column:id;primaryKey;autoIncrement"`
	EventID        string          `json:"event_id"        gorm:"column:event_id;type:varchar(64);uniqueIndex;not null"`
	UserID         int64           `json:"user_id"         gorm:"column:user_id;not null;index"`
	SteamID        string          `json:"steam_id"        gorm:"column:steam_id;type:varchar(32);not null;index"`
	Damage         float64         `json:"damage"          gorm:"column:damage;not null"`
	ServerCode     string          `json:"server_id"       gorm:"column:server_code;type:varchar(32)"`
	TierCode       string          `json:"tier_code"       gorm:"column:tier_code;type:varchar(32);not null"`
	CurrencyAmount decimal.Decimal `json:"currency_amount" gorm:"column:currency_amount;type:numeric(20,8);not null"`
	DroppedItem    string          `json:"dropped_item"    gorm:"column:dropped_item;type:varchar(255)"`
	ObservedAt     time.Time       `json:"observed_at"     gorm:"column:observed_at;not null"`
	CreatedAt      time.Time       `json:"created_at"      gorm:"column:created_at"`
}

func (DamageLog) TableName() string { return "damage_logs" }
