package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/berair/internal/aggregation"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"github.com/smallbiznis/berair/internal/observability/metrics"
	"github.com/smallbiznis/berair/internal/ratelimit"
	reportdomain "github.com/smallbiznis/berair/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Reports reportdomain.Service
	Clock   clock.Clock
	AppCfg  config.Config
	Billing *config.BillingConfigHolder
	Locker  *ratelimit.Locker         `optional:"true"`
	Metrics *metrics.SchedulerMetrics `optional:"true"`
	Config  Config                    `optional:"true"`
}

// Worker rolls the previous calendar month into a stored summary.
type Worker struct {
	log     *zap.Logger
	reports reportdomain.Service
	clock   clock.Clock
	loc     *time.Location
	locker  *ratelimit.Locker
	metrics *metrics.SchedulerMetrics
	cfg     Config
	cron    *cron.Cron
}

func NewWorker(p Params) *Worker {
	cfg := p.Config
	if cfg.Schedule == "" {
		cfg.Schedule = p.Billing.Get().SnapshotSchedule
	}
	cfg = cfg.withDefaults()

	loc := p.AppCfg.Location()
	return &Worker{
		log:     p.Log.Named("report.snapshot"),
		reports: p.Reports,
		clock:   p.Clock,
		loc:     loc,
		locker:  p.Locker,
		metrics: p.Metrics,
		cfg:     cfg,
		cron:    cron.New(cron.WithLocation(loc)),
	}
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.cfg.Schedule, func() {
		if err := w.RunOnce(context.Background()); err != nil {
			w.log.Warn("monthly snapshot failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	w.log.Info("monthly snapshot scheduled", zap.String("schedule", w.cfg.Schedule))
	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	stopped := w.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce summarizes the month before the current one. When a Redis locker
// is configured only one replica runs at a time.
func (w *Worker) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.RunTimeout)
	defer cancel()

	job := metrics.JobMonthlySnapshot
	w.metrics.IncJobRun(job)
	started := time.Now()
	defer func() {
		w.metrics.ObserveJobDuration(job, time.Since(started))
	}()

	target := w.previousMonth()
	period := meterdomain.PeriodOf(target, w.loc)

	if w.locker != nil {
		lease, ok, err := w.locker.AcquirePeriod(ctx, job, period, w.cfg.LockTTL)
		if err != nil {
			w.metrics.IncJobError(job, err)
			return err
		}
		if !ok {
			w.metrics.IncJobSkipped(job)
			w.log.Info("monthly snapshot skipped, lock held elsewhere", zap.String("period", period))
			return nil
		}
		defer func() {
			if err := lease.Release(context.Background()); err != nil {
				w.log.Warn("failed to release snapshot lock", zap.String("key", lease.Key), zap.Error(err))
			}
		}()
	}

	summary, err := w.reports.Summarize(ctx, target)
	if err != nil {
		w.metrics.IncJobError(job, err)
		return err
	}

	w.metrics.AddBatchProcessed(job, metrics.ResourceReadings, summary.Readings)
	w.metrics.AddBatchProcessed(job, metrics.ResourceUsers, summary.Users)
	w.metrics.SetPeriodTotals("all", summary.TotalUsage, summary.Pending)

	var facets []aggregation.RegionFacet
	if err := json.Unmarshal(summary.Facets, &facets); err == nil {
		w.metrics.AddBatchProcessed(job, metrics.ResourceRegions, len(facets))
	}
	w.metrics.MarkSuccess(job, w.clock.Now())

	w.log.Info("monthly snapshot completed",
		zap.String("period", summary.Period),
		zap.Int("readings", summary.Readings),
	)
	return nil
}

func (w *Worker) previousMonth() time.Time {
	start, _ := meterdomain.MonthBounds(w.clock.Now(), w.loc)
	return start.Add(-time.Nanosecond)
}
