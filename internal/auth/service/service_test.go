package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/auth/domain"
	"github.com/smallbiznis/billable/internal/auth/repository"
	"github.com/smallbiznis/billable/internal/clock"
	orgdomain "github.com/smallbiznis/billable/internal/organization/domain"
	orgrepo "github.com/smallbiznis/billable/internal/organization/repository"
	orgservice "github.com/smallbiznis/billable/internal/organization/service"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&domain.User{}, &domain.Member{}, &domain.Session{},
		&orgdomain.Organization{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	orgs := orgservice.New(orgservice.Params{
		Log: log, GenID: node, Clock: fc, Repo: orgrepo.Provide(gdb),
	})
	svc := New(Params{
		Log: log, GenID: node, Clock: fc,
		Repo: repository.Provide(gdb),
		Orgs: orgs,
	})
	return svc, fc
}

func signup(t *testing.T, svc domain.Service) *domain.Identity {
	t.Helper()
	id, err := svc.Signup(context.Background(), domain.SignupInput{
		Email:            "owner@acme.test",
		Password:         "s3cret-passphrase",
		OrganizationName: "Acme Corp",
	})
	require.NoError(t, err)
	return id
}

func TestSignupCreatesOwnerSession(t *testing.T) {
	svc, _ := newTestService(t)

	id := signup(t, svc)
	assert.NotEmpty(t, id.SessionID)
	assert.Equal(t, domain.RoleOwner, id.Role)
	assert.NotZero(t, id.OrgID)

	resolved, err := svc.Resolve(context.Background(), id.SessionID)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, resolved.UserID)
	assert.Equal(t, id.OrgID, resolved.OrgID)
	assert.Equal(t, "owner@acme.test", resolved.Email)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	signup(t, svc)

	_, err := svc.Signup(context.Background(), domain.SignupInput{
		Email:            "owner@acme.test",
		Password:         "another-passphrase",
		OrganizationName: "Other Org",
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), domain.SignupInput{
		Email:            "x@acme.test",
		Password:         "short",
		OrganizationName: "Acme",
	})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
}

func TestSigninVerifiesPassword(t *testing.T) {
	svc, _ := newTestService(t)
	signup(t, svc)
	ctx := context.Background()

	id, err := svc.Signin(ctx, domain.SigninInput{
		Email: "Owner@Acme.Test", Password: "s3cret-passphrase",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, id.Role)

	_, err = svc.Signin(ctx, domain.SigninInput{
		Email: "owner@acme.test", Password: "wrong",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Signin(ctx, domain.SigninInput{
		Email: "nobody@acme.test", Password: "whatever1",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSessionExpiry(t *testing.T) {
	svc, fc := newTestService(t)
	id := signup(t, svc)
	ctx := context.Background()

	fc.Advance(8 * 24 * time.Hour)
	_, err := svc.Resolve(ctx, id.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	// Expired sessions are gone after the first resolve.
	_, err = svc.Resolve(ctx, id.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSignout(t *testing.T) {
	svc, _ := newTestService(t)
	id := signup(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Signout(ctx, id.SessionID))
	_, err := svc.Resolve(ctx, id.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
