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

	"github.com/smallbiznis/billable/internal/clock"
	"github.com/smallbiznis/billable/internal/config"
	"github.com/smallbiznis/billable/internal/money"
	"github.com/smallbiznis/billable/internal/tax/domain"
	"github.com/smallbiznis/billable/internal/tax/repository"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.TaxDefinition{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := New(Params{
		Cfg:   config.Config{TaxDefaultRate: 0.10},
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Repo:  repository.Provide(gdb),
	})
	return svc, fc
}

func TestDefaultRateFallsBackToConfig(t *testing.T) {
	svc, _ := newTestService(t)

	rate, err := svc.DefaultRate(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 0.10, rate)
}

func TestSetDefaultReplacesPrevious(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetDefault(ctx, 42, domain.UpsertInput{Name: "GST", Rate: 0.07})
	require.NoError(t, err)
	_, err = svc.SetDefault(ctx, 42, domain.UpsertInput{Name: "VAT", Rate: 0.20})
	require.NoError(t, err)

	rate, err := svc.DefaultRate(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 0.20, rate)

	defs, err := svc.List(ctx, 42)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	defaults := 0
	for _, d := range defs {
		if d.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestSetDefaultRejectsBadRate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SetDefault(context.Background(), 42, domain.UpsertInput{Name: "x", Rate: 1.5})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)
	_, err = svc.SetDefault(context.Background(), 42, domain.UpsertInput{Name: "x", Rate: -0.1})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)
}

func TestComputeExclusive(t *testing.T) {
	assert.Equal(t, money.Amount(20000), domain.ComputeExclusive(200000, 0.10))
	assert.Equal(t, money.Amount(1), domain.ComputeExclusive(5, 0.10))
	assert.Equal(t, money.Zero, domain.ComputeExclusive(200000, 0))
}
