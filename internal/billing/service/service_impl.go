package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/berair/internal/billing"
	billingdomain "github.com/smallbiznis/berair/internal/billing/domain"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"github.com/smallbiznis/berair/internal/observability/metrics"
	settingdomain "github.com/smallbiznis/berair/internal/setting/domain"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     meterdomain.Repository
	UserRepo userdomain.Repository
	Settings settingdomain.Service
	Billing  *config.BillingConfigHolder
	Clock    clock.Clock
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     meterdomain.Repository
	userRepo userdomain.Repository
	settings settingdomain.Service
	billing  *config.BillingConfigHolder
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func New(p Params) billingdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("billing.service"),
		repo:     p.Repo,
		userRepo: p.UserRepo,
		settings: p.Settings,
		billing:  p.Billing,
		clock:    p.Clock,
		metrics:  p.Metrics,
	}
}

func (s *Service) RecordPayment(ctx context.Context, req billingdomain.PaymentRequest) (*billingdomain.Statement, error) {
	readingID, err := parseReadingID(req.ReadingID)
	if err != nil {
		return nil, err
	}

	affected, err := s.repo.RecordPayment(ctx, s.db, readingID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, meterdomain.ErrReadingNotFound
	}

	reading, err := s.findReading(ctx, readingID)
	if err != nil {
		return nil, err
	}
	stmt, err := s.statement(ctx, reading)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		region := ""
		if user, err := s.userRepo.FindByID(ctx, s.db, reading.UserID); err == nil && user != nil {
			region = user.Region
		}
		s.metrics.RecordPayment(ctx, region, stmt.Bill.Total)
	}
	s.log.Info("payment recorded",
		zap.String("reading_id", readingID.String()),
		zap.Int64("meter_paid", reading.MeterNow),
		zap.Int64("amount", stmt.Bill.Total),
	)
	return stmt, nil
}

func (s *Service) Bill(ctx context.Context, readingID string) (*billingdomain.Statement, error) {
	id, err := parseReadingID(readingID)
	if err != nil {
		return nil, err
	}
	reading, err := s.findReading(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.statement(ctx, reading)
}

// ListForUser returns the user's readings newest first, each billed at the
// current price.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]billingdomain.Statement, error) {
	id, err := userdomain.ParseID(strings.TrimSpace(userID))
	if err != nil || id == 0 {
		return nil, meterdomain.ErrInvalidUser
	}

	rate, err := s.settings.WaterPrice(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, s.db, meterdomain.ListFilter{UserID: id})
	if err != nil {
		return nil, err
	}

	currency := s.billing.Get().Currency
	resp := make([]billingdomain.Statement, 0, len(items))
	for i := range items {
		resp = append(resp, billingdomain.Statement{
			Reading:  *meterdomain.ToResponse(&items[i]),
			Bill:     billing.BillFor(items[i], rate),
			Currency: currency,
		})
	}
	return resp, nil
}

func (s *Service) Invoice(ctx context.Context, readingID string) (*billingdomain.Invoice, error) {
	id, err := parseReadingID(readingID)
	if err != nil {
		return nil, err
	}
	reading, err := s.findReading(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, s.db, reading.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}
	stmt, err := s.statement(ctx, reading)
	if err != nil {
		return nil, err
	}
	number, err := InvoiceNumber(s.billing.Get().InvoicePrefix, reading)
	if err != nil {
		return nil, err
	}

	return &billingdomain.Invoice{
		Number:   number,
		IssuedAt: s.clock.Now(),
		Currency: stmt.Currency,
		User:     *userdomain.ToResponse(user),
		Reading:  stmt.Reading,
		Bill:     stmt.Bill,
	}, nil
}

// InvoiceNumber is stable per reading: the ULID time part is the reading
// time and its entropy is the reading id.
func InvoiceNumber(prefix string, r *meterdomain.Reading) (string, error) {
	var entropy [10]byte
	binary.BigEndian.PutUint64(entropy[:8], uint64(r.ID))
	id, err := ulid.New(ulid.Timestamp(r.RecordedAt), bytes.NewReader(entropy[:]))
	if err != nil {
		return "", fmt.Errorf("invoice number for reading %s: %w", r.ID, err)
	}
	if prefix == "" {
		return id.String(), nil
	}
	return prefix + "-" + id.String(), nil
}

func (s *Service) findReading(ctx context.Context, id snowflake.ID) (*meterdomain.Reading, error) {
	reading, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if reading == nil {
		return nil, meterdomain.ErrReadingNotFound
	}
	return reading, nil
}

func (s *Service) statement(ctx context.Context, reading *meterdomain.Reading) (*billingdomain.Statement, error) {
	rate, err := s.settings.WaterPrice(ctx)
	if err != nil {
		return nil, err
	}
	return &billingdomain.Statement{
		Reading:  *meterdomain.ToResponse(reading),
		Bill:     billing.BillFor(*reading, rate),
		Currency: s.billing.Get().Currency,
	}, nil
}

func parseReadingID(value string) (snowflake.ID, error) {
	id, err := meterdomain.ParseID(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, meterdomain.ErrInvalidID
	}
	return id, nil
}
