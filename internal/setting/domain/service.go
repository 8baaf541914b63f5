package domain

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

type Service interface {
	// WaterPrice returns the current price per m3, read fresh on every call.
	WaterPrice(ctx context.Context) (int64, error)
	GetWaterPrice(ctx context.Context) (*PriceResponse, error)
	UpdateWaterPrice(ctx context.Context, req UpdatePriceRequest) (*PriceResponse, error)
}

type UpdatePriceRequest struct {
	Value string `json:"value"`
}

type PriceSource string

const (
	PriceSourceSetting PriceSource = "setting"
	PriceSourceDefault PriceSource = "default"
)

type PriceResponse struct {
	Value     int64       `json:"value"`
	Currency  string      `json:"currency"`
	Source    PriceSource `json:"source"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

var ErrInvalidPrice = errors.New("invalid_price")

// ParsePrice accepts a positive whole number of currency units.
func ParsePrice(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, ErrInvalidPrice
	}
	price, err := strconv.ParseInt(value, 10, 64)
	if err != nil || price <= 0 {
		return 0, ErrInvalidPrice
	}
	return price, nil
}
