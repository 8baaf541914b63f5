package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/berair/internal/billing"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
)

type Service interface {
	// RecordPayment marks a reading paid up to its current meter value.
	// Repeating it re-stamps the payment time.
	RecordPayment(ctx context.Context, req PaymentRequest) (*Statement, error)
	Bill(ctx context.Context, readingID string) (*Statement, error)
	ListForUser(ctx context.Context, userID string) ([]Statement, error)
	Invoice(ctx context.Context, readingID string) (*Invoice, error)
}

type PaymentRequest struct {
	ReadingID string `json:"reading_id"`
}

// Statement is a reading together with its bill at the current price.
type Statement struct {
	Reading  meterdomain.Response `json:"reading"`
	Bill     billing.Record       `json:"bill"`
	Currency string               `json:"currency"`
}

type Invoice struct {
	Number   string               `json:"number"`
	IssuedAt time.Time            `json:"issued_at"`
	Currency string               `json:"currency"`
	User     userdomain.Response  `json:"user"`
	Reading  meterdomain.Response `json:"reading"`
	Bill     billing.Record       `json:"bill"`
}
