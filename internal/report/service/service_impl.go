package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/aggregation"
	"github.com/smallbiznis/berair/internal/billing"
	billingdomain "github.com/smallbiznis/berair/internal/billing/domain"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"github.com/smallbiznis/berair/internal/report"
	reportdomain "github.com/smallbiznis/berair/internal/report/domain"
	settingdomain "github.com/smallbiznis/berair/internal/setting/domain"
	"github.com/smallbiznis/berair/internal/usage"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	recentWindow        = 7 * 24 * time.Hour
	defaultSummaryLimit = 12
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      reportdomain.Repository
	MeterRepo meterdomain.Repository
	UserRepo  userdomain.Repository
	Settings  settingdomain.Service
	Bills     billingdomain.Service
	Billing   *config.BillingConfigHolder
	Clock     clock.Clock
	Config    config.Config
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      reportdomain.Repository
	meterRepo meterdomain.Repository
	userRepo  userdomain.Repository
	settings  settingdomain.Service
	bills     billingdomain.Service
	billing   *config.BillingConfigHolder
	clock     clock.Clock
	loc       *time.Location
}

func New(p Params) reportdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		meterRepo: p.MeterRepo,
		userRepo:  p.UserRepo,
		settings:  p.Settings,
		bills:     p.Bills,
		billing:   p.Billing,
		clock:     p.Clock,
		loc:       p.Config.Location(),
	}
}

func (s *Service) Report(ctx context.Context, req reportdomain.ReportRequest) (*reportdomain.ReportResponse, error) {
	if req.Month < 0 || req.Month > 12 {
		return nil, reportdomain.ErrInvalidMonth
	}
	if req.Year != 0 && (req.Year < 1970 || req.Year > 9999) {
		return nil, reportdomain.ErrInvalidYear
	}

	users, err := s.userRepo.ListByRole(ctx, s.db, userdomain.RoleUser)
	if err != nil {
		return nil, err
	}
	readings, err := s.meterRepo.List(ctx, s.db, meterdomain.ListFilter{})
	if err != nil {
		return nil, err
	}
	rate, err := s.settings.WaterPrice(ctx)
	if err != nil {
		return nil, err
	}

	res := report.Filter(readings, users, report.Criteria{
		Month:    req.Month,
		Year:     req.Year,
		Region:   strings.TrimSpace(req.Region),
		Location: s.loc,
	})

	// Money totals are priced from the guarded per-entry usage so a reading
	// corrected to zero counts as zero in both usage and amounts.
	resp := &reportdomain.ReportResponse{
		Entries:        make([]reportdomain.Entry, 0, len(res.Entries)),
		Facets:         aggregation.RegionFacets(res.Readings, regionUsers(users, req.Region)),
		Rate:           rate,
		Currency:       s.billing.Get().Currency,
		TotalUsage:     res.TotalUsage,
		TotalUsagePaid: res.TotalUsagePaid,
		Revenue:        res.TotalUsagePaid * rate,
		Pending:        (res.TotalUsage - res.TotalUsagePaid) * rate,
	}
	for i := range res.Entries {
		e := res.Entries[i]
		entry := reportdomain.Entry{
			User:  *userdomain.ToResponse(&e.User),
			Usage: e.Usage,
		}
		if e.Reading != nil {
			entry.Reading = meterdomain.ToResponse(e.Reading)
			entry.Status = string(billing.StatusOf(*e.Reading))
			entry.Total = e.Usage * rate
		}
		resp.Entries = append(resp.Entries, entry)
	}
	return resp, nil
}

func (s *Service) Dashboard(ctx context.Context) (*reportdomain.DashboardResponse, error) {
	now := s.clock.Now()
	monthStart, monthEnd := meterdomain.MonthBounds(now, s.loc)
	recentSince := now.Add(-recentWindow)

	totalUsers, err := s.userRepo.CountByRole(ctx, s.db, userdomain.RoleUser)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListByRole(ctx, s.db, userdomain.RoleUser)
	if err != nil {
		return nil, err
	}
	readings, err := s.meterRepo.List(ctx, s.db, meterdomain.ListFilter{})
	if err != nil {
		return nil, err
	}
	price, err := s.settings.WaterPrice(ctx)
	if err != nil {
		return nil, err
	}

	monthly := aggregation.InRange(readings, monthStart, monthEnd)
	recent := aggregation.InRange(readings, recentSince, now)
	latest := aggregation.LatestReadingPerUser(readings)

	resp := &reportdomain.DashboardResponse{
		TotalUsers:             totalUsers,
		MonthlyReadings:        len(monthly),
		MonthlyUsage:           aggregation.SumUsage(monthly),
		AverageUsagePerReading: aggregation.AverageUsagePerReading(monthly),
		RecentReadings:         len(recent),
		RecentSince:            recentSince,
		WaterPrice:             price,
		Currency:               s.billing.Get().Currency,
		Users:                  make([]reportdomain.UserStats, 0, len(users)),
	}

	for i := range users {
		u := users[i]
		stats := reportdomain.UserStats{
			User:         *userdomain.ToResponse(&u),
			MonthlyUsage: aggregation.MonthlyUsage(readings, u.ID, monthStart, monthEnd),
			TotalUsage:   aggregation.TotalUsage(readings, u.ID),
		}
		if r, ok := latest[u.ID]; ok {
			reading := r
			stats.LatestReading = meterdomain.ToResponse(&reading)
			used := usage.ComputeGuarded(&reading.MeterNow, reading.MeterBefore)
			resp.TotalUsage += used
			if billing.StatusOf(reading) == billing.StatusPaid {
				resp.TotalUsagePaid += used
			}
		}
		resp.Users = append(resp.Users, stats)
	}
	return resp, nil
}

// CheckByNIK lists a user's readings newest first with their bills.
func (s *Service) CheckByNIK(ctx context.Context, nik string) (*reportdomain.CheckResponse, error) {
	nik = strings.TrimSpace(nik)
	if nik == "" {
		return nil, userdomain.ErrInvalidNIK
	}

	user, err := s.userRepo.FindByNIK(ctx, s.db, nik)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, reportdomain.ErrUserNotFound
	}

	statements, err := s.bills.ListForUser(ctx, user.ID.String())
	if err != nil {
		return nil, err
	}
	return &reportdomain.CheckResponse{
		User:     *userdomain.ToResponse(user),
		Readings: statements,
	}, nil
}

func (s *Service) Summaries(ctx context.Context, limit int) ([]reportdomain.MonthlySummary, error) {
	if limit <= 0 || limit > 120 {
		limit = defaultSummaryLimit
	}
	return s.repo.ListSummaries(ctx, s.db, limit)
}

func (s *Service) Summarize(ctx context.Context, at time.Time) (*reportdomain.MonthlySummary, error) {
	start, end := meterdomain.MonthBounds(at, s.loc)
	period := meterdomain.PeriodOf(start, s.loc)

	users, err := s.userRepo.ListByRole(ctx, s.db, userdomain.RoleUser)
	if err != nil {
		return nil, err
	}
	readings, err := s.meterRepo.List(ctx, s.db, meterdomain.ListFilter{From: &start, To: &end})
	if err != nil {
		return nil, err
	}
	rate, err := s.settings.WaterPrice(ctx)
	if err != nil {
		return nil, err
	}

	facets, err := json.Marshal(aggregation.RegionFacets(readings, users))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	summary := &reportdomain.MonthlySummary{
		ID:             s.genID.Generate(),
		Period:         period,
		Users:          len(aggregation.LatestReadingPerUser(readings)),
		Readings:       len(readings),
		TotalUsage:     aggregation.SumUsage(readings),
		TotalUsagePaid: billing.PaidUsage(readings),
		Rate:           rate,
		Revenue:        billing.TotalRevenue(readings, rate),
		Pending:        billing.TotalPending(readings, rate),
		Facets:         datatypes.JSON(facets),
		GeneratedAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.UpsertSummary(ctx, s.db, summary); err != nil {
		return nil, err
	}

	stored, err := s.repo.FindSummary(ctx, s.db, period)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return summary, nil
	}

	s.log.Info("monthly summary stored",
		zap.String("period", period),
		zap.Int("readings", stored.Readings),
		zap.Int64("total_usage", stored.TotalUsage),
	)
	return stored, nil
}

func regionUsers(users []userdomain.User, region string) []userdomain.User {
	out := make([]userdomain.User, 0, len(users))
	for _, u := range users {
		if aggregation.MatchRegion(u.Region, region) {
			out = append(out, u)
		}
	}
	return out
}
