package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/usage"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Correct(ctx context.Context, req CorrectRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	ListByUser(ctx context.Context, userID string) ([]Response, error)
}

// Validator enforces the write-time rules for a new reading.
type Validator interface {
	Validate(ctx context.Context, userID snowflake.ID, meterNow int64, meterBefore *int64) error
}

type CreateRequest struct {
	UserID      string       `json:"user_id"`
	MeterNow    int64        `json:"meter_now"`
	MeterBefore *int64       `json:"meter_before,omitempty"`
	RecordedBy  snowflake.ID `json:"-"`
}

type CorrectRequest struct {
	ID       string `json:"-"`
	MeterNow int64  `json:"meter_now"`
}

type Response struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	MeterNow    int64      `json:"meter_now"`
	MeterBefore *int64     `json:"meter_before,omitempty"`
	Usage       int64      `json:"usage"`
	Period      string     `json:"period"`
	RecordedAt  time.Time  `json:"recorded_at"`
	MeterPaid   *int64     `json:"meter_paid,omitempty"`
	LastPayment *time.Time `json:"last_payment,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var (
	ErrInvalidID               = errors.New("invalid_id")
	ErrInvalidUser             = errors.New("invalid_user")
	ErrInvalidReading          = errors.New("invalid_reading")
	ErrDuplicateMonthlyReading = errors.New("duplicate_monthly_reading")
	ErrReadingNotFound         = errors.New("reading_not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

func ToResponse(r *Reading) *Response {
	if r == nil {
		return nil
	}
	return &Response{
		ID:          r.ID.String(),
		UserID:      r.UserID.String(),
		MeterNow:    r.MeterNow,
		MeterBefore: r.MeterBefore,
		Usage:       usage.ForReading(r),
		Period:      r.Period,
		RecordedAt:  r.RecordedAt,
		MeterPaid:   r.MeterPaid,
		LastPayment: r.LastPayment,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
