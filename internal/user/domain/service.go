package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	GetByNIK(ctx context.Context, nik string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Search(ctx context.Context, query string) ([]Response, error)
}

type CreateRequest struct {
	NIK      string `json:"nik" validate:"len=16"`
	Name     string `json:"name" validate:"min=2,max=255"`
	Region   string `json:"region" validate:"min=2,max=255"`
	Address  string `json:"address" validate:"min=5"`
	Role     Role   `json:"role" validate:"oneof=admin officer user"`
	Password string `json:"password" validate:"min=6,max=72"`
}

type ListRequest struct {
	pagination.Pagination
	Role   string `form:"role"`
	Region string `form:"region"`
}

type ListResponse struct {
	Users    []Response          `json:"users"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Response struct {
	ID        string    `json:"id"`
	NIK       string    `json:"nik"`
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	Address   string    `json:"address"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidID       = errors.New("invalid_user_id")
	ErrInvalidNIK      = errors.New("invalid_nik")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidRegion   = errors.New("invalid_region")
	ErrInvalidAddress  = errors.New("invalid_address")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrInvalidPassword = errors.New("invalid_password")
	ErrInvalidQuery    = errors.New("invalid_query")
	ErrNIKExists       = errors.New("nik_already_registered")
	ErrNotFound        = errors.New("user_not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

func ToResponse(u *User) *Response {
	return &Response{
		ID:        u.ID.String(),
		NIK:       u.NIK,
		Name:      u.Name,
		Region:    u.Region,
		Address:   u.Address,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
