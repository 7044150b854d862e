package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	auditdomain "github.com/smallbiznis/billable/internal/audit/domain"
	"github.com/smallbiznis/billable/internal/client/domain"
	"github.com/smallbiznis/billable/internal/clock"
	"github.com/smallbiznis/billable/internal/orgcontext"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Audit auditdomain.Recorder
}

type service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &service{
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *service) Create(ctx context.Context, orgID int64, in domain.UpsertInput) (*domain.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	c := &domain.Client{
		ID:        s.genID.Generate().Int64(),
		OrgID:     orgID,
		Name:      name,
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Company:   strings.TrimSpace(in.Company),
		Address:   in.Address,
		Notes:     in.Notes,
		Metadata:  datatypes.JSONMap(in.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "client.created",
		ResourceType: "client",
		ResourceID:   c.ID,
	})
	return c, nil
}

func (s *service) Get(ctx context.Context, orgID, id int64) (*domain.Client, error) {
	return s.repo.FindByID(ctx, orgID, id)
}

func (s *service) List(ctx context.Context, orgID int64, f domain.ListFilter) ([]domain.Client, int64, error) {
	return s.repo.FindByOrg(ctx, orgID, f)
}

func (s *service) Update(ctx context.Context, orgID, id int64, in domain.UpsertInput) (*domain.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}

	c, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	c.Name = name
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Company = strings.TrimSpace(in.Company)
	c.Address = in.Address
	c.Notes = in.Notes
	c.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "client.updated",
		ResourceType: "client",
		ResourceID:   c.ID,
	})
	return c, nil
}

// validateEmail accepts empty addresses; clients are not required to
// have one.
func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}

func (s *service) Delete(ctx context.Context, orgID, id int64) error {
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "client.deleted",
		ResourceType: "client",
		ResourceID:   id,
	})
	return nil
}
