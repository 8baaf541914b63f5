// Package billing prices readings at an explicit rate and derives their
// payment status. The rate is always passed in by the caller.
package billing

import (
	"time"

	"github.com/bwmarrin/snowflake"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"github.com/smallbiznis/berair/internal/usage"
)

type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
)

// Record is the bill of a single reading.
type Record struct {
	ReadingID   snowflake.ID `json:"reading_id"`
	UserID      snowflake.ID `json:"user_id"`
	Usage       int64        `json:"usage"`
	Rate        int64        `json:"rate"`
	Total       int64        `json:"total"`
	Status      Status       `json:"status"`
	PaymentDate *time.Time   `json:"payment_date,omitempty"`
}

// StatusOf is paid only when the payment covers the current meter value and
// a payment timestamp exists.
func StatusOf(r meterdomain.Reading) Status {
	if r.MeterPaid != nil && *r.MeterPaid >= r.MeterNow && r.LastPayment != nil {
		return StatusPaid
	}
	return StatusPending
}

// BillFor prices the reading's usage at rate. PaymentDate is set only for
// paid readings.
func BillFor(r meterdomain.Reading, rate int64) Record {
	used := usage.ForReading(r)
	rec := Record{
		ReadingID: r.ID,
		UserID:    r.UserID,
		Usage:     used,
		Rate:      rate,
		Total:     used * rate,
		Status:    StatusOf(r),
	}
	if rec.Status == StatusPaid {
		rec.PaymentDate = r.LastPayment
	}
	return rec
}

// TotalBilled is the amount due over all readings, paid or not.
func TotalBilled(readings []meterdomain.Reading, rate int64) int64 {
	var total int64
	for _, r := range readings {
		total += usage.ForReading(r) * rate
	}
	return total
}

// TotalRevenue sums the amounts of paid readings.
func TotalRevenue(readings []meterdomain.Reading, rate int64) int64 {
	var total int64
	for _, r := range readings {
		if StatusOf(r) == StatusPaid {
			total += usage.ForReading(r) * rate
		}
	}
	return total
}

// TotalPending is TotalBilled minus TotalRevenue.
func TotalPending(readings []meterdomain.Reading, rate int64) int64 {
	return TotalBilled(readings, rate) - TotalRevenue(readings, rate)
}

// PaidUsage sums usage over paid readings.
func PaidUsage(readings []meterdomain.Reading) int64 {
	var total int64
	for _, r := range readings {
		if StatusOf(r) == StatusPaid {
			total += usage.ForReading(r)
		}
	}
	return total
}
