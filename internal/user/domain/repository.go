package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Role    Role
	Region  string
	AfterID snowflake.ID
	Limit   int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	InsertCredential(ctx context.Context, db *gorm.DB, cred *Credential) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByNIK(ctx context.Context, db *gorm.DB, nik string) (*User, error)
	FindCredentialByNIK(ctx context.Context, db *gorm.DB, nik string) (*Credential, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]User, error)
	ListByRole(ctx context.Context, db *gorm.DB, role Role) ([]User, error)
	Search(ctx context.Context, db *gorm.DB, query string, limit int) ([]User, error)
	CountByRole(ctx context.Context, db *gorm.DB, role Role) (int64, error)
}
