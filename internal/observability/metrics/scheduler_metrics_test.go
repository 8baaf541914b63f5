package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "berair",
		Environment: "test",
	})

	metrics.AddBatchProcessed(JobMonthlySnapshot, ResourceReadings, 3)
	metrics.AddBatchProcessed(JobMonthlySnapshot, ResourceReadings, 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues(JobMonthlySnapshot, ResourceReadings))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestSetPeriodTotals(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{Environment: "test"})

	metrics.SetPeriodTotals("Utara", 120, 50000)
	metrics.MarkSuccess(JobMonthlySnapshot, time.Unix(1700000000, 0))

	if got := testutil.ToFloat64(metrics.periodUsage.WithLabelValues("utara")); got != 120 {
		t.Fatalf("expected usage gauge 120, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.periodUnpaid.WithLabelValues("utara")); got != 50000 {
		t.Fatalf("expected unpaid gauge 50000, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.lastSuccess.WithLabelValues(JobMonthlySnapshot)); got != 1700000000 {
		t.Fatalf("unexpected last success %v", got)
	}
}

func TestIncLockOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{Environment: "test"})

	metrics.IncLockOutcome(JobMonthlySnapshot, LockOutcomeAcquired)
	metrics.IncLockOutcome(JobMonthlySnapshot, LockOutcomeHeldElsewhere)
	metrics.IncLockOutcome(JobMonthlySnapshot, LockOutcomeHeldElsewhere)

	if got := testutil.ToFloat64(metrics.lockOutcomes.WithLabelValues(JobMonthlySnapshot, LockOutcomeHeldElsewhere)); got != 2 {
		t.Fatalf("expected 2 contended attempts, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.lockOutcomes.WithLabelValues(JobMonthlySnapshot, LockOutcomeAcquired)); got != 1 {
		t.Fatalf("expected 1 acquired lock, got %v", got)
	}

	var nilMetrics *SchedulerMetrics
	nilMetrics.IncLockOutcome(JobMonthlySnapshot, LockOutcomeError)
}
