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
	clientdomain "github.com/smallbiznis/billable/internal/client/domain"
	clientrepo "github.com/smallbiznis/billable/internal/client/repository"
	"github.com/smallbiznis/billable/internal/clock"
	"github.com/smallbiznis/billable/internal/config"
	"github.com/smallbiznis/billable/internal/money"
	"github.com/smallbiznis/billable/internal/quote/domain"
	"github.com/smallbiznis/billable/internal/quote/repository"
	taxdomain "github.com/smallbiznis/billable/internal/tax/domain"
	taxrepo "github.com/smallbiznis/billable/internal/tax/repository"
	taxservice "github.com/smallbiznis/billable/internal/tax/service"
)

const testOrg int64 = 100

type fixture struct {
	svc      domain.Service
	clock    *clock.FakeClock
	clientID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&domain.Quote{}, &domain.LineItem{},
		&clientdomain.Client{}, &taxdomain.TaxDefinition{}, &auditdomain.Log{},
	))
	require.NoError(t, gdb.Exec(`
		CREATE TABLE number_sequences (
			org_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			period TEXT NOT NULL,
			value INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (org_id, kind, period)
		)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	clients := clientrepo.Provide(gdb)
	taxSvc := taxservice.New(taxservice.Params{
		Cfg:   config.Config{TaxDefaultRate: 0.10},
		Log:   log,
		GenID: node,
		Clock: fc,
		Repo:  taxrepo.Provide(gdb),
	})
	audit := auditservice.New(auditservice.Params{
		DB: gdb, Log: log, GenID: node, Clock: fc,
	})

	c := &clientdomain.Client{
		ID: node.Generate().Int64(), OrgID: testOrg, Name: "Acme Corp",
		CreatedAt: fc.Now(), UpdatedAt: fc.Now(),
	}
	require.NoError(t, clients.Insert(context.Background(), c))

	svc := New(Params{
		DB:      gdb,
		Log:     log,
		GenID:   node,
		Clock:   fc,
		Repo:    repository.Provide(gdb),
		Clients: clients,
		Tax:     taxSvc,
		Audit:   audit,
	})
	return &fixture{svc: svc, clock: fc, clientID: c.ID}
}

func (f *fixture) createQuote(t *testing.T, items ...domain.LineItemInput) *domain.Quote {
	t.Helper()
	q, err := f.svc.Create(context.Background(), testOrg, domain.CreateInput{
		ClientID: f.clientID,
		Items:    items,
	})
	require.NoError(t, err)
	return q
}

func consultingItems() []domain.LineItemInput {
	return []domain.LineItemInput{
		{Description: "Consulting", Quantity: 10, UnitAmount: "150.00"},
		{Description: "Setup fee", Quantity: 1, UnitAmount: "500.00"},
	}
}

func TestCreateComputesTotals(t *testing.T) {
	f := newFixture(t)

	q := f.createQuote(t, consultingItems()...)

	assert.Equal(t, domain.StatusDraft, q.Status)
	assert.Equal(t, money.MustParse("2000.00"), q.SubtotalAmount)
	assert.Equal(t, 0.10, q.TaxRate)
	assert.Equal(t, money.MustParse("200.00"), q.TaxAmount)
	assert.Equal(t, money.MustParse("2200.00"), q.TotalAmount)
	assert.Equal(t, "QUO-20240301-000001", q.QuoteNumber)
	require.Len(t, q.LineItems, 2)
	assert.Equal(t, money.MustParse("1500.00"), q.LineItems[0].TotalAmount)
}

func TestQuoteNumbersAreSequential(t *testing.T) {
	f := newFixture(t)

	q1 := f.createQuote(t, consultingItems()...)
	q2 := f.createQuote(t, consultingItems()...)
	assert.Equal(t, "QUO-20240301-000001", q1.QuoteNumber)
	assert.Equal(t, "QUO-20240301-000002", q2.QuoteNumber)
}

func TestFractionalQuantityRoundsPerLine(t *testing.T) {
	f := newFixture(t)

	// 3.33 * 1.5 = 4.995, rounds to 5.00 on the line before summing.
	q := f.createQuote(t, domain.LineItemInput{
		Description: "Half hours", Quantity: 1.5, UnitAmount: "3.33",
	})
	assert.Equal(t, money.MustParse("5.00"), q.SubtotalAmount)
	assert.Equal(t, money.MustParse("0.50"), q.TaxAmount)
	assert.Equal(t, money.MustParse("5.50"), q.TotalAmount)
}

func TestCreateRejectsInvalidItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []domain.LineItemInput{
		{Description: "", Quantity: 1, UnitAmount: "1.00"},
		{Description: "x", Quantity: 0, UnitAmount: "1.00"},
		{Description: "x", Quantity: -1, UnitAmount: "1.00"},
		{Description: "x", Quantity: 1, UnitAmount: "-1.00"},
		{Description: "x", Quantity: 1, UnitAmount: "abc"},
		{Description: "x", Quantity: 1, UnitAmount: "--5"},
		// A quantity large enough to wrap the line total must fail
		// validation instead of persisting a negative quote.
		{Description: "x", Quantity: 1e15, UnitAmount: "100.00"},
	}
	for _, item := range cases {
		_, err := f.svc.Create(ctx, testOrg, domain.CreateInput{
			ClientID: f.clientID,
			Items:    []domain.LineItemInput{item},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidLineItem)
	}
}

func TestCreateUnknownClient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), testOrg, domain.CreateInput{ClientID: 999})
	assert.ErrorIs(t, err, clientdomain.ErrNotFound)
}

func TestSendRequiresLineItems(t *testing.T) {
	f := newFixture(t)

	q := f.createQuote(t)
	_, err := f.svc.Send(context.Background(), testOrg, q.ID)
	assert.ErrorIs(t, err, domain.ErrEmptyQuote)

	// Still a draft after the failed send.
	got, err := f.svc.Get(context.Background(), testOrg, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, got.Status)
}

func TestSendAcceptFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := f.createQuote(t, consultingItems()...)

	sent, err := f.svc.Send(ctx, testOrg, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	require.NotNil(t, sent.ValidUntil)
	assert.Equal(t, f.clock.Now().Add(defaultValidity), *sent.ValidUntil)

	accepted, err := f.svc.Accept(ctx, testOrg, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.DecidedAt)
}

func TestInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := f.createQuote(t, consultingItems()...)

	// Draft cannot be accepted or rejected.
	_, err := f.svc.Accept(ctx, testOrg, q.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Reject(ctx, testOrg, q.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Send(ctx, testOrg, q.ID)
	require.NoError(t, err)

	// Sent cannot be sent again.
	_, err = f.svc.Send(ctx, testOrg, q.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Accept(ctx, testOrg, q.ID)
	require.NoError(t, err)

	// Terminal states are terminal.
	_, err = f.svc.Reject(ctx, testOrg, q.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Accept(ctx, testOrg, q.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestExpiryIsPassive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := f.createQuote(t, consultingItems()...)
	_, err := f.svc.Send(ctx, testOrg, q.ID)
	require.NoError(t, err)

	// One day before the deadline the quote still reads as sent.
	f.clock.Advance(29 * 24 * time.Hour)
	got, err := f.svc.Get(ctx, testOrg, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, got.Status)

	f.clock.Advance(2 * 24 * time.Hour)
	got, err = f.svc.Get(ctx, testOrg, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	// Deciding an expired quote fails and persists the expiry.
	_, err = f.svc.Accept(ctx, testOrg, q.ID)
	assert.ErrorIs(t, err, domain.ErrQuoteExpired)

	got, err = f.svc.Get(ctx, testOrg, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
}

func TestUpdateOnlyDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := f.createQuote(t, consultingItems()...)

	updated, err := f.svc.Update(ctx, testOrg, q.ID, domain.UpdateInput{
		Notes: "revised",
		Items: []domain.LineItemInput{
			{Description: "Consulting", Quantity: 5, UnitAmount: "150.00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("750.00"), updated.SubtotalAmount)
	assert.Equal(t, money.MustParse("825.00"), updated.TotalAmount)
	require.Len(t, updated.LineItems, 1)

	_, err = f.svc.Send(ctx, testOrg, q.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, testOrg, q.ID, domain.UpdateInput{Notes: "too late"})
	assert.ErrorIs(t, err, domain.ErrQuoteLocked)
}

func TestDeleteOnlyDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := f.createQuote(t, consultingItems()...)
	_, err := f.svc.Send(ctx, testOrg, q.ID)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, testOrg, q.ID)
	assert.ErrorIs(t, err, domain.ErrQuoteLocked)

	draft := f.createQuote(t, consultingItems()...)
	require.NoError(t, f.svc.Delete(ctx, testOrg, draft.ID))
	_, err = f.svc.Get(ctx, testOrg, draft.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersByEffectiveStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q1 := f.createQuote(t, consultingItems()...)
	f.createQuote(t, consultingItems()...)
	_, err := f.svc.Send(ctx, testOrg, q1.ID)
	require.NoError(t, err)
	f.clock.Advance(31 * 24 * time.Hour)

	expired, total, err := f.svc.List(ctx, testOrg, domain.ListFilter{Status: domain.StatusExpired})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, expired, 1)
	assert.Equal(t, q1.ID, expired[0].ID)

	drafts, _, err := f.svc.List(ctx, testOrg, domain.ListFilter{Status: domain.StatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
}

func TestQuoteScopedToOrg(t *testing.T) {
	f := newFixture(t)

	q := f.createQuote(t, consultingItems()...)
	_, err := f.svc.Get(context.Background(), testOrg+1, q.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
