package pdf

import (
	"context"
	"errors"
	"io"

	billingdomain "github.com/smallbiznis/berair/internal/billing/domain"
)

var (
	ErrMissingInvoice = errors.New("missing_invoice")
	ErrNotPaid        = errors.New("receipt_requires_payment")
)

// Provider renders billing documents for a single reading.
type Provider interface {
	GenerateInvoice(ctx context.Context, inv *billingdomain.Invoice) (io.Reader, error)
	GenerateReceipt(ctx context.Context, inv *billingdomain.Invoice) (io.Reader, error)
}
