package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	reportdomain "github.com/smallbiznis/berair/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type stubReports struct {
	reportdomain.Service
	calls []time.Time
	err   error
}

func (s *stubReports) Summarize(_ context.Context, at time.Time) (*reportdomain.MonthlySummary, error) {
	s.calls = append(s.calls, at)
	if s.err != nil {
		return nil, s.err
	}
	return &reportdomain.MonthlySummary{
		Period:   at.Format("2006-01"),
		Readings: 3,
		Users:    2,
		Facets:   datatypes.JSON(`[{"region":"Region 1"}]`),
	}, nil
}

func newTestWorker(reports reportdomain.Service, now time.Time, tz string) *Worker {
	return NewWorker(Params{
		Log:     zap.NewNop(),
		Reports: reports,
		Clock:   clock.NewFakeClock(now),
		AppCfg:  config.Config{BillingTimezone: tz},
		Billing: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	})
}

func TestRunOnceSummarizesPreviousMonth(t *testing.T) {
	stub := &stubReports{}
	w := newTestWorker(stub, time.Date(2025, time.May, 1, 0, 0, 5, 0, time.UTC), "UTC")

	require.NoError(t, w.RunOnce(context.Background()))
	require.Len(t, stub.calls, 1)
	assert.Equal(t, "2025-04", stub.calls[0].Format("2006-01"))
}

func TestRunOnceUsesBillingLocation(t *testing.T) {
	stub := &stubReports{}
	// 2025-04-30 18:00 UTC is already May 1st in Jakarta.
	w := newTestWorker(stub, time.Date(2025, time.April, 30, 18, 0, 0, 0, time.UTC), "Asia/Jakarta")

	require.NoError(t, w.RunOnce(context.Background()))
	require.Len(t, stub.calls, 1)
	assert.Equal(t, "2025-04", stub.calls[0].In(w.loc).Format("2006-01"))
}

func TestRunOncePropagatesErrors(t *testing.T) {
	stub := &stubReports{err: errors.New("boom")}
	w := newTestWorker(stub, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), "UTC")

	assert.Error(t, w.RunOnce(context.Background()))
}

func TestScheduleComesFromBillingConfig(t *testing.T) {
	stub := &stubReports{}
	cfg := config.DefaultBillingConfig()
	cfg.SnapshotSchedule = "30 2 1 * *"

	w := NewWorker(Params{
		Log:     zap.NewNop(),
		Reports: stub,
		Clock:   clock.NewFakeClock(time.Now()),
		Billing: config.NewStaticBillingConfigHolder(cfg),
	})
	assert.Equal(t, "30 2 1 * *", w.cfg.Schedule)

	require.NoError(t, w.Start())
	require.NoError(t, w.Stop(context.Background()))
}
