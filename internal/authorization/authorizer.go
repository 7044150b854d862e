// Package authorization enforces role based access with casbin. Roles are
// organization scoped; resources are the API surface (clients, quotes,
// invoices, payments, ...) and actions are read or write.
package authorization

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/smallbiznis/billable/internal/auth/domain"
)

//go:embed model.conf
var modelConf string

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

type Authorizer struct {
	enforcer *casbin.Enforcer
	log      *zap.Logger
}

func New(gdb *gorm.DB, log *zap.Logger) (*Authorizer, error) {
	adapter, err := gormadapter.NewAdapterByDBUseTableName(gdb, "", "casbin_rule")
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, err
	}

	a := &Authorizer{enforcer: e, log: log.Named("authorization")}
	if err := a.seedPolicies(); err != nil {
		return nil, err
	}
	return a, nil
}

// seedPolicies installs the default role grants. AddPolicy is a no-op for
// rules that already exist, so restarts are safe.
func (a *Authorizer) seedPolicies() error {
	policies := [][]string{
		{authdomain.RoleOwner, "*", "*"},
		{authdomain.RoleAdmin, "clients", "*"},
		{authdomain.RoleAdmin, "quotes", "*"},
		{authdomain.RoleAdmin, "invoices", "*"},
		{authdomain.RoleAdmin, "payments", "*"},
		{authdomain.RoleAdmin, "tax", "*"},
		{authdomain.RoleAdmin, "ledger", ActionRead},
		{authdomain.RoleAdmin, "dashboard", ActionRead},
		{authdomain.RoleAdmin, "audit", ActionRead},
		{authdomain.RoleAdmin, "organization", ActionRead},
		{authdomain.RoleMember, "clients", "*"},
		{authdomain.RoleMember, "quotes", "*"},
		{authdomain.RoleMember, "invoices", ActionRead},
		{authdomain.RoleMember, "payments", ActionRead},
		{authdomain.RoleMember, "tax", ActionRead},
		{authdomain.RoleMember, "dashboard", ActionRead},
		{authdomain.RoleMember, "organization", ActionRead},
	}
	for _, p := range policies {
		if _, err := a.enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}
	return a.enforcer.SavePolicy()
}

func (a *Authorizer) Can(role, resource, action string) bool {
	ok, err := a.enforcer.Enforce(role, resource, action)
	if err != nil {
		a.log.Warn("enforce failed",
			zap.String("role", role),
			zap.String("resource", resource),
			zap.Error(err),
		)
		return false
	}
	return ok
}
