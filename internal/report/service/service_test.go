package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/aggregation"
	billingservice "github.com/smallbiznis/berair/internal/billing/service"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	meterrepository "github.com/smallbiznis/berair/internal/meter/repository"
	reportdomain "github.com/smallbiznis/berair/internal/report/domain"
	"github.com/smallbiznis/berair/internal/report/repository"
	settingdomain "github.com/smallbiznis/berair/internal/setting/domain"
	settingrepository "github.com/smallbiznis/berair/internal/setting/repository"
	settingservice "github.com/smallbiznis/berair/internal/setting/service"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	userrepository "github.com/smallbiznis/berair/internal/user/repository"
	"github.com/smallbiznis/berair/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db    *gorm.DB
	svc   reportdomain.Service
	clock *clock.FakeClock
	node  *snowflake.Node
	users []userdomain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	err = conn.AutoMigrate(
		&userdomain.User{},
		&meterdomain.Reading{},
		&settingdomain.Setting{},
		&reportdomain.MonthlySummary{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	users := []userdomain.User{
		{ID: node.Generate(), NIK: "3201000000000011", Name: "Ani", Region: "Region 1", Address: "Jl. Mawar 1", Role: userdomain.RoleUser},
		{ID: node.Generate(), NIK: "3201000000000012", Name: "Budi", Region: "Region 2", Address: "Jl. Mawar 2", Role: userdomain.RoleUser},
		{ID: node.Generate(), NIK: "3201000000000013", Name: "Petugas", Region: "Region 1", Address: "Kantor", Role: userdomain.RoleOfficer},
	}
	for i := range users {
		users[i].CreatedAt = created
		users[i].UpdatedAt = created
		require.NoError(t, conn.Create(&users[i]).Error)
	}

	holder := config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())
	fake := clock.NewFakeClock(time.Date(2025, time.April, 20, 12, 0, 0, 0, time.UTC))
	settings := settingservice.New(settingservice.Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    settingrepository.Provide(),
		Billing: holder,
		Clock:   fake,
	})
	bills := billingservice.New(billingservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		Repo:     meterrepository.Provide(),
		UserRepo: userrepository.Provide(),
		Settings: settings,
		Billing:  holder,
		Clock:    fake,
	})

	svc := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		MeterRepo: meterrepository.Provide(),
		UserRepo:  userrepository.Provide(),
		Settings:  settings,
		Bills:     bills,
		Billing:   holder,
		Clock:     fake,
		Config:    config.Config{BillingTimezone: "UTC"},
	})
	return &testEnv{db: conn, svc: svc, clock: fake, node: node, users: users}
}

func (e *testEnv) addReading(t *testing.T, user userdomain.User, now int64, before *int64, at time.Time, paid bool) meterdomain.Reading {
	t.Helper()
	r := meterdomain.Reading{
		ID:          e.node.Generate(),
		UserID:      user.ID,
		MeterNow:    now,
		MeterBefore: before,
		RecordedAt:  at,
		Period:      meterdomain.PeriodOf(at, time.UTC),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if paid {
		paidAt := at.Add(24 * time.Hour)
		r.MeterPaid = &now
		r.LastPayment = &paidAt
	}
	require.NoError(t, e.db.Create(&r).Error)
	return r
}

func ptr(v int64) *int64 { return &v }

func TestReportWindowAndTotals(t *testing.T) {
	env := newTestEnv(t)
	ani, budi := env.users[0], env.users[1]

	in := env.addReading(t, ani, 40, nil, time.Date(2025, time.April, 5, 0, 0, 0, 0, time.UTC), true)
	env.addReading(t, ani, 70, ptr(40), time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC), false)
	env.addReading(t, budi, 20, nil, time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC), false)

	resp, err := env.svc.Report(context.Background(), reportdomain.ReportRequest{Month: 4, Year: 2025})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, in.ID.String(), resp.Entries[0].Reading.ID)
	assert.Equal(t, "paid", resp.Entries[0].Status)
	assert.Equal(t, int64(60), resp.TotalUsage)
	assert.Equal(t, int64(40), resp.TotalUsagePaid)
	assert.Equal(t, int64(200000), resp.Revenue)
	assert.Equal(t, int64(100000), resp.Pending)
	assert.Equal(t, resp.Rate*resp.TotalUsage, resp.Revenue+resp.Pending)

	regional, err := env.svc.Report(context.Background(), reportdomain.ReportRequest{Region: "region 2"})
	require.NoError(t, err)
	require.Len(t, regional.Entries, 1)
	assert.Equal(t, "Budi", regional.Entries[0].User.Name)

	_, err = env.svc.Report(context.Background(), reportdomain.ReportRequest{Month: 13})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidMonth)
}

func TestReportPricesCorrectedZeroReadingAsZero(t *testing.T) {
	env := newTestEnv(t)
	ani, budi := env.users[0], env.users[1]

	env.addReading(t, ani, 0, ptr(40), time.Date(2025, time.April, 5, 0, 0, 0, 0, time.UTC), false)
	env.addReading(t, budi, 20, nil, time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC), true)

	resp, err := env.svc.Report(context.Background(), reportdomain.ReportRequest{Month: 4, Year: 2025})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, int64(20), resp.TotalUsage)
	assert.Equal(t, int64(100000), resp.Revenue)
	assert.Zero(t, resp.Pending)
	assert.Equal(t, resp.Rate*resp.TotalUsage, resp.Revenue+resp.Pending)

	var sum int64
	for _, e := range resp.Entries {
		assert.Equal(t, e.Usage*resp.Rate, e.Total)
		sum += e.Total
	}
	assert.Equal(t, resp.Revenue+resp.Pending, sum)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ani, budi := env.users[0], env.users[1]

	env.addReading(t, ani, 40, nil, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), true)
	env.addReading(t, ani, 70, ptr(40), time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC), false)
	env.addReading(t, budi, 20, nil, time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC), false)

	resp, err := env.svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.TotalUsers)
	assert.Equal(t, 2, resp.MonthlyReadings)
	assert.Equal(t, int64(50), resp.MonthlyUsage)
	assert.Equal(t, 25.0, resp.AverageUsagePerReading)
	assert.Equal(t, 1, resp.RecentReadings)
	assert.Equal(t, int64(5000), resp.WaterPrice)
	assert.Equal(t, int64(50), resp.TotalUsage)
	require.Len(t, resp.Users, 2)

	for _, stats := range resp.Users {
		if stats.User.ID == ani.ID.String() {
			assert.Equal(t, int64(30), stats.MonthlyUsage)
			assert.Equal(t, int64(70), stats.TotalUsage)
			require.NotNil(t, stats.LatestReading)
			assert.Equal(t, int64(70), stats.LatestReading.MeterNow)
		}
	}
}

func TestDashboardWithoutReadings(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resp.MonthlyReadings)
	assert.Zero(t, resp.AverageUsagePerReading)
	for _, stats := range resp.Users {
		assert.Nil(t, stats.LatestReading)
	}
}

func TestCheckByNIK(t *testing.T) {
	env := newTestEnv(t)
	ani := env.users[0]

	env.addReading(t, ani, 40, nil, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), true)
	env.addReading(t, ani, 70, ptr(40), time.Date(2025, time.April, 5, 0, 0, 0, 0, time.UTC), false)

	resp, err := env.svc.CheckByNIK(context.Background(), ani.NIK)
	require.NoError(t, err)
	require.Len(t, resp.Readings, 2)
	assert.Equal(t, int64(70), resp.Readings[0].Reading.MeterNow)
	assert.Equal(t, "pending", string(resp.Readings[0].Bill.Status))
	assert.Equal(t, "paid", string(resp.Readings[1].Bill.Status))

	_, err = env.svc.CheckByNIK(context.Background(), "9999999999999999")
	assert.ErrorIs(t, err, reportdomain.ErrUserNotFound)
}

func TestSummarizeIsIdempotentPerPeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ani, budi := env.users[0], env.users[1]

	env.addReading(t, ani, 40, nil, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), true)
	env.addReading(t, budi, 25, nil, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC), false)

	march := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	first, err := env.svc.Summarize(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, "2025-03", first.Period)
	assert.Equal(t, 2, first.Readings)
	assert.Equal(t, int64(65), first.TotalUsage)
	assert.Equal(t, int64(200000), first.Revenue)
	assert.Equal(t, int64(125000), first.Pending)

	var facets []aggregation.RegionFacet
	require.NoError(t, json.Unmarshal(first.Facets, &facets))
	assert.Len(t, facets, 2)

	citra := userdomain.User{
		ID:        env.node.Generate(),
		NIK:       "3201000000000014",
		Name:      "Citra",
		Region:    "Region 1",
		Address:   "Jl. Mawar 3",
		Role:      userdomain.RoleUser,
		CreatedAt: march,
		UpdatedAt: march,
	}
	require.NoError(t, env.db.Create(&citra).Error)
	env.addReading(t, citra, 10, nil, time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC), false)
	second, err := env.svc.Summarize(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Readings)

	list, err := env.svc.Summaries(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
