package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	accesskeydomain "github.com/smallbiznis/milkseller/internal/accesskey/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectRates     = "rates"
	ObjectBilling   = "billing"
	ObjectSnapshot  = "snapshot"
	ObjectStatement = "statement"
	ObjectPrice     = "price"
	ObjectAccessKey = "access_key"
)

const (
	ActionRatesResolve = "rates.resolve"

	ActionBillingCompute  = "billing.compute"
	ActionBillingCustomer = "billing.customer"

	ActionSnapshotView = "snapshot.view"

	ActionStatementRender = "statement.render"

	ActionPriceView   = "price.view"
	ActionPriceCreate = "price.create"

	ActionAccessKeyView   = "access_key.view"
	ActionAccessKeyCreate = "access_key.create"
	ActionAccessKeyRevoke = "access_key.revoke"
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

// NewEnforcer stores policies in casbin_rule through the gorm adapter and
// seeds the built-in role grants.
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

func (s *ServiceImpl) Authorize(ctx context.Context, keyID string, role string, object string, action string) error {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !accesskeydomain.ValidRole(role) {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := "access_key:" + keyID
	roleName := fmt.Sprintf("role:%s", role)
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per key, replacing a stale one
// when the key's role changed.
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
		// Customer apps compute over their own records only.
		{"role:customer", ObjectRates, ActionRatesResolve},
		{"role:customer", ObjectBilling, ActionBillingCompute},

		{"role:admin", ObjectRates, ActionRatesResolve},
		{"role:admin", ObjectBilling, ActionBillingCompute},
		{"role:admin", ObjectBilling, ActionBillingCustomer},
		{"role:admin", ObjectSnapshot, ActionSnapshotView},
		{"role:admin", ObjectStatement, ActionStatementRender},
		{"role:admin", ObjectPrice, ActionPriceView},
		{"role:admin", ObjectPrice, ActionPriceCreate},
		{"role:admin", ObjectAccessKey, ActionAccessKeyView},
		{"role:admin", ObjectAccessKey, ActionAccessKeyCreate},
		{"role:admin", ObjectAccessKey, ActionAccessKeyRevoke},
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
