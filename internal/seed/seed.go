// Package seed bootstraps a first owner account for fresh deployments.
package seed

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/smallbiznis/billable/internal/auth/domain"
	"github.com/smallbiznis/billable/internal/config"
	"github.com/smallbiznis/billable/internal/ratelimit"
	taxdomain "github.com/smallbiznis/billable/internal/tax/domain"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Cfg    config.Config
	Log    *zap.Logger
	Auth   authdomain.Service
	Tax    taxdomain.Service
	Locker *ratelimit.Locker `optional:"true"`
}

// Run creates the configured owner account when the user table is empty.
// With multiple replicas the redis lock keeps it to one writer; without
// redis the unique email constraint still makes a race harmless.
func Run(p Params) error {
	if p.Cfg.SeedOwnerEmail == "" || p.Cfg.SeedOwnerPassword == "" {
		return nil
	}
	log := p.Log.Named("seed")
	ctx := context.Background()

	if p.Locker != nil {
		token, err := p.Locker.Acquire(ctx, "seed", 30*time.Second)
		if err != nil {
			log.Warn("seed lock unavailable", zap.Error(err))
		} else if token == "" {
			log.Info("seed running on another replica")
			return nil
		} else {
			defer func() { _ = p.Locker.Release(ctx, "seed", token) }()
		}
	}

	var users int64
	if err := p.DB.WithContext(ctx).Raw(`SELECT COUNT(*) FROM users`).Scan(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	id, err := p.Auth.Signup(ctx, authdomain.SignupInput{
		Email:            p.Cfg.SeedOwnerEmail,
		Password:         p.Cfg.SeedOwnerPassword,
		OrganizationName: p.Cfg.AppName,
	})
	if err != nil {
		return err
	}

	if _, err := p.Tax.SetDefault(ctx, id.OrgID, taxdomain.UpsertInput{
		Name: "Standard",
		Rate: p.Cfg.TaxDefaultRate,
	}); err != nil {
		return err
	}

	log.Info("seeded owner account",
		zap.String("email", p.Cfg.SeedOwnerEmail),
		zap.Int64("org_id", id.OrgID),
	)
	return nil
}

var Module = fx.Module("seed",
	fx.Invoke(Run),
)
