package model

import "time"

type User struct {
	ID           int64     `json:"id"             gorm:"column:id;primaryKey;autoIncrement"`
	SteamID      string    `json:"steam_id"       gorm:"column:steam_id;type:varchar(32);uniqueIndex;not null"`
	Username     string    `json:"username"       gorm:"column:username;type:varchar(100);not null"`
	LastActiveAt time.Time `json:"last_active_at" gorm:"column:last_active_at"`
	CreatedAt    time.Time `json:"created_at"     gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at"     gorm:"column:updated_at"`
}

func (User) TableName() string { return "users" }
