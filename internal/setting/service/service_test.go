package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	settingdomain "github.com/smallbiznis/berair/internal/setting/domain"
	"github.com/smallbiznis/berair/internal/setting/repository"
	"github.com/smallbiznis/berair/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, time.April, 15, 9, 0, 0, 0, time.UTC)

func setupService(t *testing.T, cfg config.BillingConfig) (settingdomain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&settingdomain.Setting{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    repository.Provide(),
		Billing: config.NewStaticBillingConfigHolder(cfg),
		Clock:   clock.NewFakeClock(testNow),
	})
	return svc, conn
}

func TestWaterPriceDefaultsWhenUnset(t *testing.T) {
	svc, _ := setupService(t, config.DefaultBillingConfig())

	resp, err := svc.GetWaterPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), resp.Value)
	assert.Equal(t, settingdomain.PriceSourceDefault, resp.Source)
	assert.Nil(t, resp.UpdatedAt)
}

func TestWaterPriceUsesConfiguredDefault(t *testing.T) {
	cfg := config.DefaultBillingConfig()
	cfg.DefaultWaterPrice = 6500
	svc, _ := setupService(t, cfg)

	price, err := svc.WaterPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6500), price)
}

func TestUpdateWaterPriceIsVisibleImmediately(t *testing.T) {
	svc, _ := setupService(t, config.DefaultBillingConfig())
	ctx := context.Background()

	updated, err := svc.UpdateWaterPrice(ctx, settingdomain.UpdatePriceRequest{Value: "7000"})
	require.NoError(t, err)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, testNow, *updated.UpdatedAt)

	price, err := svc.WaterPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), price)

	_, err = svc.UpdateWaterPrice(ctx, settingdomain.UpdatePriceRequest{Value: " 8000 "})
	require.NoError(t, err)

	resp, err := svc.GetWaterPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), resp.Value)
	assert.Equal(t, settingdomain.PriceSourceSetting, resp.Source)
}

func TestUpdateWaterPriceRejectsInvalidValues(t *testing.T) {
	svc, _ := setupService(t, config.DefaultBillingConfig())

	for _, value := range []string{"", "abc", "0", "-10", "12.5"} {
		_, err := svc.UpdateWaterPrice(context.Background(), settingdomain.UpdatePriceRequest{Value: value})
		assert.ErrorIs(t, err, settingdomain.ErrInvalidPrice, "value %q", value)
	}
}

func TestMalformedStoredPriceFallsBack(t *testing.T) {
	svc, conn := setupService(t, config.DefaultBillingConfig())

	now := time.Now().UTC()
	require.NoError(t, conn.Create(&settingdomain.Setting{
		ID:        1,
		Key:       settingdomain.KeyWaterPrice,
		Value:     "lima ribu",
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	resp, err := svc.GetWaterPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.FallbackWaterPrice, resp.Value)
	assert.Equal(t, settingdomain.PriceSourceDefault, resp.Source)
}
