package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const KeyWaterPrice = "water_price_per_m3"

// Setting is a keyed site-wide configuration value editable by admins.
type Setting struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Key       string       `json:"key" gorm:"column:key;type:varchar(100);not null;uniqueIndex:ux_website_settings_key"`
	Value     string       `json:"value" gorm:"column:value;type:text;not null"`
	Desc      string       `json:"desc" gorm:"column:desc;type:varchar(225);not null;default:''"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Setting) TableName() string { return "website_settings" }
