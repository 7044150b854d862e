package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/billable/internal/clock"
	"github.com/smallbiznis/billable/internal/config"
	"github.com/smallbiznis/billable/internal/tax/domain"
)

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type service struct {
	fallbackRate float64
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
}

func New(p Params) domain.Service {
	return &service{
		fallbackRate: p.Cfg.TaxDefaultRate,
		log:          p.Log.Named("tax.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
	}
}

func (s *service) DefaultRate(ctx context.Context, orgID int64) (float64, error) {
	def, err := s.repo.FindDefault(ctx, orgID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.fallbackRate, nil
	}
	if err != nil {
		return 0, err
	}
	return def.Rate, nil
}

func (s *service) SetDefault(ctx context.Context, orgID int64, in domain.UpsertInput) (*domain.TaxDefinition, error) {
	if in.Rate < 0 || in.Rate >= 1 {
		return nil, domain.ErrInvalidRate
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Default"
	}

	now := s.clock.Now()
	def := &domain.TaxDefinition{
		ID:        s.genID.Generate().Int64(),
		OrgID:     orgID,
		Name:      name,
		Rate:      in.Rate,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, def); err != nil {
		return nil, err
	}

	s.log.Info("default tax rate updated",
		zap.Int64("org_id", orgID),
		zap.Float64("rate", in.Rate),
	)
	return def, nil
}

func (s *service) List(ctx context.Context, orgID int64) ([]domain.TaxDefinition, error) {
	return s.repo.ListByOrg(ctx, orgID)
}
