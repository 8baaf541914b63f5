// Package usage turns pairs of cumulative meter values into consumption.
//
// Every aggregation and billing path goes through this package so the
// "no previous reading" and "no current reading" rules stay in one place.
package usage

import "github.com/bwmarrin/snowflake"

// Source is anything that carries a current and a previous meter value.
type Source interface {
	Current() int64
	Previous() *int64
}

// Record is the derived usage of a single reading.
type Record struct {
	ReadingID snowflake.ID `json:"reading_id"`
	UserID    snowflake.ID `json:"user_id"`
	Usage     int64        `json:"usage"`
}

// Compute returns meterNow - meterBefore. A nil or zero meterBefore marks a
// first reading, in which case the whole current value counts as usage.
// The result is not clamped: a corrected reading may yield negative usage.
func Compute(meterNow int64, meterBefore *int64) int64 {
	if meterBefore == nil || *meterBefore == 0 {
		return meterNow
	}
	return meterNow - *meterBefore
}

// ComputeGuarded is Compute for rows that may have no current reading at
// all, such as a user joined against a missing latest reading. A nil or
// zero meterNow yields 0.
func ComputeGuarded(meterNow, meterBefore *int64) int64 {
	if meterNow == nil || *meterNow == 0 {
		return 0
	}
	return Compute(*meterNow, meterBefore)
}

// ForReading is Compute over a reading's stored values.
func ForReading(s Source) int64 {
	return Compute(s.Current(), s.Previous())
}
