package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/billable/internal/auth/domain"
	"github.com/smallbiznis/billable/internal/auth/password"
	"github.com/smallbiznis/billable/internal/clock"
	orgdomain "github.com/smallbiznis/billable/internal/organization/domain"
)

const (
	sessionTTL  = 7 * 24 * time.Hour
	minPassword = 8
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Orgs  orgdomain.Service
}

type service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	orgs  orgdomain.Service
}

func New(p Params) domain.Service {
	return &service{
		log:   p.Log.Named("auth.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		orgs:  p.Orgs,
	}
}

func (s *service) Signup(ctx context.Context, in domain.SignupInput) (*domain.Identity, error) {
	if len(in.Password) < minPassword {
		return nil, domain.ErrWeakPassword
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	u := &domain.User{
		ID:           s.genID.Generate().Int64(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertUser(ctx, u); err != nil {
		return nil, err
	}

	org, err := s.orgs.Create(ctx, orgdomain.CreateInput{Name: in.OrganizationName})
	if err != nil {
		return nil, err
	}
	if err := s.repo.InsertMember(ctx, &domain.Member{
		OrgID:     org.ID,
		UserID:    u.ID,
		Role:      domain.RoleOwner,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	s.log.Info("user signed up",
		zap.Int64("user_id", u.ID),
		zap.Int64("org_id", org.ID),
	)
	return s.openSession(ctx, u, org.ID, domain.RoleOwner)
}

func (s *service) Signin(ctx context.Context, in domain.SigninInput) (*domain.Identity, error) {
	u, err := s.repo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}

	ok, err := password.Verify(in.Password, u.PasswordHash)
	if err != nil || !ok {
		return nil, domain.ErrInvalidCredentials
	}

	// The session binds to the user's earliest membership.
	m, err := s.repo.FindPrimaryMember(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, u, m.OrgID, m.Role)
}

func (s *service) Signout(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}

func (s *service) Resolve(ctx context.Context, sessionID string) (*domain.Identity, error) {
	sess, err := s.repo.FindSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.clock.Now().After(sess.ExpiresAt) {
		_ = s.repo.DeleteSession(ctx, sessionID)
		return nil, domain.ErrSessionExpired
	}

	u, err := s.repo.FindUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.FindMember(ctx, sess.OrgID, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.Identity{
		SessionID: sess.ID,
		UserID:    u.ID,
		OrgID:     sess.OrgID,
		Role:      m.Role,
		Email:     u.Email,
	}, nil
}

func (s *service) openSession(ctx context.Context, u *domain.User, orgID int64, role string) (*domain.Identity, error) {
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		OrgID:     orgID,
		ExpiresAt: s.clock.Now().Add(sessionTTL),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertSession(ctx, sess); err != nil {
		return nil, err
	}
	return &domain.Identity{
		SessionID: sess.ID,
		UserID:    u.ID,
		OrgID:     orgID,
		Role:      role,
		Email:     u.Email,
	}, nil
}
