package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/berair/internal/aggregation"
	billingdomain "github.com/smallbiznis/berair/internal/billing/domain"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
)

type Service interface {
	Report(ctx context.Context, req ReportRequest) (*ReportResponse, error)
	Dashboard(ctx context.Context) (*DashboardResponse, error)
	CheckByNIK(ctx context.Context, nik string) (*CheckResponse, error)
	Summaries(ctx context.Context, limit int) ([]MonthlySummary, error)
	// Summarize rolls up the calendar month containing at and stores it.
	Summarize(ctx context.Context, at time.Time) (*MonthlySummary, error)
}

type ReportRequest struct {
	Month  int    `form:"month"`
	Year   int    `form:"year"`
	Region string `form:"region"`
}

type Entry struct {
	User    userdomain.Response   `json:"user"`
	Reading *meterdomain.Response `json:"reading"`
	Usage   int64                 `json:"usage"`
	Status  string                `json:"status,omitempty"`
	Total   int64                 `json:"total"`
}

type ReportResponse struct {
	Entries        []Entry                   `json:"entries"`
	Facets         []aggregation.RegionFacet `json:"facets"`
	Rate           int64                     `json:"rate"`
	Currency       string                    `json:"currency"`
	TotalUsage     int64                     `json:"total_usage"`
	TotalUsagePaid int64                     `json:"total_usage_paid"`
	Revenue        int64                     `json:"revenue"`
	Pending        int64                     `json:"pending"`
}

type UserStats struct {
	User          userdomain.Response   `json:"user"`
	LatestReading *meterdomain.Response `json:"latest_reading"`
	MonthlyUsage  int64                 `json:"monthly_usage"`
	TotalUsage    int64                 `json:"total_usage"`
}

type DashboardResponse struct {
	TotalUsers             int64       `json:"total_users"`
	MonthlyReadings        int         `json:"monthly_readings"`
	MonthlyUsage           int64       `json:"monthly_usage"`
	AverageUsagePerReading float64     `json:"average_usage_per_reading"`
	RecentReadings         int         `json:"recent_readings"`
	RecentSince            time.Time   `json:"recent_since"`
	WaterPrice             int64       `json:"water_price"`
	Currency               string      `json:"currency"`
	TotalUsage             int64       `json:"total_usage"`
	TotalUsagePaid         int64       `json:"total_usage_paid"`
	Users                  []UserStats `json:"users"`
}

type CheckResponse struct {
	User     userdomain.Response       `json:"user"`
	Readings []billingdomain.Statement `json:"readings"`
}

var (
	ErrInvalidMonth = errors.New("invalid_month")
	ErrInvalidYear  = errors.New("invalid_year")
	ErrUserNotFound = errors.New("user_not_found")
)
