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

	auditdomain "github.com/smallbiznis/billable/internal/audit/domain"
	auditservice "github.com/smallbiznis/billable/internal/audit/service"
	"github.com/smallbiznis/billable/internal/client/domain"
	"github.com/smallbiznis/billable/internal/client/repository"
	"github.com/smallbiznis/billable/internal/clock"
)

const testOrg int64 = 100

func newService(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.Client{}, &auditdomain.Log{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	audit := auditservice.New(auditservice.Params{DB: gdb, Log: log, GenID: node, Clock: fc})
	return New(Params{
		Log: log, GenID: node, Clock: fc,
		Repo: repository.Provide(gdb), Audit: audit,
	})
}

func TestCreateAndGet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, testOrg, domain.UpsertInput{
		Name:    "  Acme Corp  ",
		Email:   "billing@acme.test",
		Company: "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", c.Name)

	got, err := svc.Get(ctx, testOrg, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "billing@acme.test", got.Email)
}

func TestCreateValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testOrg, domain.UpsertInput{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, testOrg, domain.UpsertInput{
		Name: "Acme", Email: "not-an-address",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	// Clients without an email are fine.
	_, err = svc.Create(ctx, testOrg, domain.UpsertInput{Name: "Acme"})
	assert.NoError(t, err)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, testOrg, domain.UpsertInput{Name: "Acme"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, testOrg, c.ID, domain.UpsertInput{
		Name: "Acme Holdings", Phone: "+1 555 0100",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", updated.Name)
	assert.Equal(t, "+1 555 0100", updated.Phone)

	require.NoError(t, svc.Delete(ctx, testOrg, c.ID))
	_, err = svc.Get(ctx, testOrg, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, testOrg, c.ID), domain.ErrNotFound)
}

func TestListSearchAndOrgScope(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, name := range []string{"Acme Corp", "Globex", "Initech"} {
		_, err := svc.Create(ctx, testOrg, domain.UpsertInput{Name: name})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, testOrg+1, domain.UpsertInput{Name: "Acme Offshore"})
	require.NoError(t, err)

	all, total, err := svc.List(ctx, testOrg, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	hits, total, err := svc.List(ctx, testOrg, domain.ListFilter{Search: "acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, hits, 1)
	assert.Equal(t, "Acme Corp", hits[0].Name)
}
