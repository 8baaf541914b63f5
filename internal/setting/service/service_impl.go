package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	"github.com/smallbiznis/berair/internal/observability/metrics"
	settingdomain "github.com/smallbiznis/berair/internal/setting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    settingdomain.Repository
	Billing *config.BillingConfigHolder
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    settingdomain.Repository
	billing *config.BillingConfigHolder
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) settingdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("setting.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		billing: p.Billing,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) WaterPrice(ctx context.Context) (int64, error) {
	resp, err := s.GetWaterPrice(ctx)
	if err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// GetWaterPrice never fails on a missing or malformed row; it falls back to
// the configured default price instead.
func (s *Service) GetWaterPrice(ctx context.Context) (*settingdomain.PriceResponse, error) {
	cfg := s.billing.Get()

	row, err := s.repo.Get(ctx, s.db, settingdomain.KeyWaterPrice)
	if err != nil {
		return nil, err
	}
	if row != nil {
		price, err := settingdomain.ParsePrice(row.Value)
		if err == nil {
			updatedAt := row.UpdatedAt
			return &settingdomain.PriceResponse{
				Value:     price,
				Currency:  cfg.Currency,
				Source:    settingdomain.PriceSourceSetting,
				UpdatedAt: &updatedAt,
			}, nil
		}
		s.log.Warn("stored water price is malformed, using default",
			zap.String("value", row.Value),
		)
	}

	price := cfg.DefaultWaterPrice
	if price <= 0 {
		price = config.FallbackWaterPrice
	}
	return &settingdomain.PriceResponse{
		Value:    price,
		Currency: cfg.Currency,
		Source:   settingdomain.PriceSourceDefault,
	}, nil
}

func (s *Service) UpdateWaterPrice(ctx context.Context, req settingdomain.UpdatePriceRequest) (*settingdomain.PriceResponse, error) {
	price, err := settingdomain.ParsePrice(req.Value)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	row := &settingdomain.Setting{
		ID:        s.genID.Generate(),
		Key:       settingdomain.KeyWaterPrice,
		Value:     strconv.FormatInt(price, 10),
		Desc:      "Harga air per m3",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, s.db, row); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPriceUpdate(ctx)
	}
	s.log.Info("water price updated", zap.Int64("price", price))

	return &settingdomain.PriceResponse{
		Value:     price,
		Currency:  s.billing.Get().Currency,
		Source:    settingdomain.PriceSourceSetting,
		UpdatedAt: &now,
	}, nil
}
