package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOfficer Role = "officer"
	RoleUser    Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOfficer, RoleUser:
		return true
	default:
		return false
	}
}

// User is a household (role user) or a staff account (admin, officer).
type User struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	NIK       string       `json:"nik" gorm:"column:nik;type:varchar(16);not null;uniqueIndex:ux_users_nik"`
	Name      string       `json:"name" gorm:"type:varchar(255);not null"`
	Region    string       `json:"region" gorm:"type:varchar(255);not null;index"`
	Address   string       `json:"address" gorm:"type:text;not null"`
	Role      Role         `json:"role" gorm:"type:varchar(20);not null;default:'user';index"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Credential holds the login secret for a user, keyed by NIK.
type Credential struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	UserID       snowflake.ID `gorm:"column:user_id;not null;index"`
	NIK          string       `gorm:"column:nik;type:varchar(16);not null;uniqueIndex:ux_credentials_nik"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Credential) TableName() string { return "credentials" }
