package models

import (
	"time"

	"gorm.io/datatypes"
)

// SettingRecord corresponds to the settings table. One row per storage key.
type SettingRecord struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	SettingKey   string         `gorm:"type:varchar(255);not null;unique" json:"setting_key"`
	SettingValue datatypes.JSON `gorm:"type:json;not null" json:"setting_value"`
	Revision     uint64         `gorm:"not null;default:0" json:"revision"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName pins the table name independent of the struct name.
func (SettingRecord) TableName() string {
	return "settings"
}
