package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectReading    = "reading"
	ObjectPayment    = "payment"
	ObjectWaterPrice = "water_price"
	ObjectUser       = "user"
	ObjectReport     = "report"
	ObjectInvoice    = "invoice"
)

const (
	ActionReadingView    = "reading.view"
	ActionReadingCreate  = "reading.create"
	ActionReadingCorrect = "reading.correct"

	ActionPaymentRecord  = "payment.record"
	ActionPaymentReceipt = "payment.receipt"

	ActionWaterPriceView   = "water_price.view"
	ActionWaterPriceUpdate = "water_price.update"

	ActionUserView   = "user.view"
	ActionUserCreate = "user.create"
	ActionUserSearch = "user.search"

	ActionReportView    = "report.view"
	ActionReportSummary = "report.summary"

	ActionInvoiceView = "invoice.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object string, action string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := actor.subject()
	if err := s.ensureGrouping(subject, actor.roleName()); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("actor_id", actor.UserID.String()),
			zap.String("role", actor.Role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per user so that a role change
// carried by a fresh token takes effect immediately.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Household permissions
		{"role:user", ObjectReading, ActionReadingView},

		// Officer permissions
		{"role:officer", ObjectReading, ActionReadingView},
		{"role:officer", ObjectReading, ActionReadingCreate},
		{"role:officer", ObjectWaterPrice, ActionWaterPriceView},
		{"role:officer", ObjectUser, ActionUserSearch},
		{"role:officer", ObjectReport, ActionReportView},
		{"role:officer", ObjectInvoice, ActionInvoiceView},

		// Admin permissions
		{"role:admin", ObjectReading, ActionReadingView},
		{"role:admin", ObjectReading, ActionReadingCreate},
		{"role:admin", ObjectReading, ActionReadingCorrect},
		{"role:admin", ObjectPayment, ActionPaymentRecord},
		{"role:admin", ObjectPayment, ActionPaymentReceipt},
		{"role:admin", ObjectWaterPrice, ActionWaterPriceView},
		{"role:admin", ObjectWaterPrice, ActionWaterPriceUpdate},
		{"role:admin", ObjectUser, ActionUserView},
		{"role:admin", ObjectUser, ActionUserCreate},
		{"role:admin", ObjectUser, ActionUserSearch},
		{"role:admin", ObjectReport, ActionReportView},
		{"role:admin", ObjectReport, ActionReportSummary},
		{"role:admin", ObjectInvoice, ActionInvoiceView},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
