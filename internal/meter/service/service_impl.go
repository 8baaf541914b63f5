package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"github.com/smallbiznis/berair/internal/observability/metrics"
	"github.com/smallbiznis/berair/internal/usage"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"github.com/smallbiznis/berair/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      meterdomain.Repository
	UserRepo  userdomain.Repository
	Validator meterdomain.Validator
	Clock     clock.Clock
	Config    config.Config
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      meterdomain.Repository
	userRepo  userdomain.Repository
	validator meterdomain.Validator
	clock     clock.Clock
	cfg       config.Config
	metrics   *metrics.Metrics
}

func New(p Params) meterdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("meter.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		userRepo:  p.UserRepo,
		validator: p.Validator,
		clock:     p.Clock,
		cfg:       p.Config,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req meterdomain.CreateRequest) (*meterdomain.Response, error) {
	userID, err := userdomain.ParseID(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return nil, meterdomain.ErrInvalidUser
	}

	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, meterdomain.ErrInvalidUser
	}

	// An omitted meter_before resolves to the user's latest reading so the
	// strict increase is checked against stored history.
	meterBefore := req.MeterBefore
	if meterBefore == nil {
		latest, err := s.repo.LatestByUser(ctx, s.db, userID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			value := latest.MeterNow
			meterBefore = &value
		}
	}

	if err := s.validator.Validate(ctx, userID, req.MeterNow, meterBefore); err != nil {
		s.rejected(ctx, err)
		return nil, err
	}

	now := s.clock.Now()
	reading := &meterdomain.Reading{
		ID:          s.genID.Generate(),
		UserID:      userID,
		MeterNow:    req.MeterNow,
		MeterBefore: meterBefore,
		RecordedAt:  now,
		Period:      meterdomain.PeriodOf(now, s.cfg.Location()),
		RecordedBy:  req.RecordedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, reading); err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.rejected(ctx, meterdomain.ErrDuplicateMonthlyReading)
			return nil, meterdomain.ErrDuplicateMonthlyReading
		}
		return nil, err
	}

	used := usage.ForReading(reading)
	if s.metrics != nil {
		s.metrics.RecordReading(ctx, user.Region, used)
	}
	s.log.Info("meter reading recorded",
		zap.String("reading_id", reading.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("period", reading.Period),
		zap.Int64("usage", used),
	)
	return meterdomain.ToResponse(reading), nil
}

// Correct overwrites meter_now without the month or monotonic checks.
func (s *Service) Correct(ctx context.Context, req meterdomain.CorrectRequest) (*meterdomain.Response, error) {
	readingID, err := meterdomain.ParseID(strings.TrimSpace(req.ID))
	if err != nil || readingID == 0 {
		return nil, meterdomain.ErrInvalidID
	}
	if req.MeterNow < 0 {
		return nil, meterdomain.ErrInvalidReading
	}

	affected, err := s.repo.UpdateMeterNow(ctx, s.db, readingID, req.MeterNow, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, meterdomain.ErrReadingNotFound
	}

	reading, err := s.repo.FindByID(ctx, s.db, readingID)
	if err != nil {
		return nil, err
	}
	if reading == nil {
		return nil, meterdomain.ErrReadingNotFound
	}

	s.log.Info("meter reading corrected",
		zap.String("reading_id", readingID.String()),
		zap.Int64("meter_now", req.MeterNow),
	)
	return meterdomain.ToResponse(reading), nil
}

func (s *Service) Get(ctx context.Context, id string) (*meterdomain.Response, error) {
	readingID, err := meterdomain.ParseID(strings.TrimSpace(id))
	if err != nil || readingID == 0 {
		return nil, meterdomain.ErrInvalidID
	}

	reading, err := s.repo.FindByID(ctx, s.db, readingID)
	if err != nil {
		return nil, err
	}
	if reading == nil {
		return nil, meterdomain.ErrReadingNotFound
	}
	return meterdomain.ToResponse(reading), nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]meterdomain.Response, error) {
	id, err := userdomain.ParseID(strings.TrimSpace(userID))
	if err != nil || id == 0 {
		return nil, meterdomain.ErrInvalidUser
	}

	items, err := s.repo.List(ctx, s.db, meterdomain.ListFilter{UserID: id})
	if err != nil {
		return nil, err
	}

	resp := make([]meterdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *meterdomain.ToResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) rejected(ctx context.Context, err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, meterdomain.ErrInvalidReading):
		s.metrics.RecordReadingRejected(ctx, "invalid_reading")
	case errors.Is(err, meterdomain.ErrDuplicateMonthlyReading):
		s.metrics.RecordReadingRejected(ctx, "duplicate_monthly_reading")
	}
}
