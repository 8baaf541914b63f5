package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PeriodLayout formats the calendar month a reading belongs to.
const PeriodLayout = "2006-01"

// Reading is one cumulative meter value recorded for a user.
type Reading struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID      snowflake.ID `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:ux_meter_readings_user_period,priority:1;index:idx_meter_readings_user_recorded,priority:1"`
	MeterNow    int64        `json:"meter_now" gorm:"column:meter_now;not null"`
	MeterBefore *int64       `json:"meter_before,omitempty" gorm:"column:meter_before"`
	RecordedAt  time.Time    `json:"recorded_at" gorm:"column:recorded_at;not null;index:idx_meter_readings_user_recorded,priority:2"`
	Period      string       `json:"period" gorm:"type:varchar(7);not null;uniqueIndex:ux_meter_readings_user_period,priority:2"`
	MeterPaid   *int64       `json:"meter_paid,omitempty" gorm:"column:meter_paid"`
	LastPayment *time.Time   `json:"last_payment,omitempty" gorm:"column:last_payment"`
	RecordedBy  snowflake.ID `json:"recorded_by" gorm:"column:recorded_by;not null;default:0"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Reading) TableName() string { return "meter_readings" }

func (r Reading) Current() int64 { return r.MeterNow }

func (r Reading) Previous() *int64 { return r.MeterBefore }

// PeriodOf returns the YYYY-MM key of t in loc.
func PeriodOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(PeriodLayout)
}

// MonthBounds returns the first and last instant of the calendar month
// containing t in loc. Both bounds are inclusive.
func MonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}
