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
	"github.com/smallbiznis/billable/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/billable/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/billable/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/billable/internal/invoice/service"
	ledgerdomain "github.com/smallbiznis/billable/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/billable/internal/ledger/service"
	"github.com/smallbiznis/billable/internal/money"
	quotedomain "github.com/smallbiznis/billable/internal/quote/domain"
	quoterepo "github.com/smallbiznis/billable/internal/quote/repository"
	quoteservice "github.com/smallbiznis/billable/internal/quote/service"
	taxdomain "github.com/smallbiznis/billable/internal/tax/domain"
	taxrepo "github.com/smallbiznis/billable/internal/tax/repository"
	taxservice "github.com/smallbiznis/billable/internal/tax/service"
)

const testOrg int64 = 100

type fixture struct {
	svc      domain.Service
	quotes   quotedomain.Service
	invoices invoicedomain.Service
	clock    *clock.FakeClock
	clientID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&invoicedomain.Invoice{}, &invoicedomain.LineItem{}, &invoicedomain.Payment{},
		&quotedomain.Quote{}, &quotedomain.LineItem{},
		&clientdomain.Client{}, &taxdomain.TaxDefinition{},
		&ledgerdomain.Entry{}, &auditdomain.Log{},
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
		Cfg: config.Config{TaxDefaultRate: 0.10}, Log: log,
		GenID: node, Clock: fc, Repo: taxrepo.Provide(gdb),
	})
	audit := auditservice.New(auditservice.Params{DB: gdb, Log: log, GenID: node, Clock: fc})
	ledgerSvc := ledgerservice.New(ledgerservice.Params{DB: gdb, Log: log, GenID: node, Clock: fc})
	quoteRepo := quoterepo.Provide(gdb)
	quoteSvc := quoteservice.New(quoteservice.Params{
		DB: gdb, Log: log, GenID: node, Clock: fc,
		Repo: quoteRepo, Clients: clients, Tax: taxSvc, Audit: audit,
	})
	invoiceSvc := invoiceservice.New(invoiceservice.Params{
		DB: gdb, Log: log, GenID: node, Clock: fc,
		Repo: invoicerepo.Provide(gdb), Quotes: quoteRepo,
		Clients: clients, Tax: taxSvc, Ledger: ledgerSvc, Audit: audit,
	})

	c := &clientdomain.Client{
		ID: node.Generate().Int64(), OrgID: testOrg, Name: "Acme Corp",
		CreatedAt: fc.Now(), UpdatedAt: fc.Now(),
	}
	require.NoError(t, clients.Insert(context.Background(), c))

	svc := New(Params{DB: gdb, Log: log, Clock: fc})
	return &fixture{
		svc: svc, quotes: quoteSvc, invoices: invoiceSvc,
		clock: fc, clientID: c.ID,
	}
}

func (f *fixture) quoteIn(t *testing.T, status quotedomain.Status) *quotedomain.Quote {
	t.Helper()
	ctx := context.Background()
	q, err := f.quotes.Create(ctx, testOrg, quotedomain.CreateInput{
		ClientID: f.clientID,
		Items: []quotedomain.LineItemInput{
			{Description: "Consulting", Quantity: 10, UnitAmount: "150.00"},
			{Description: "Setup fee", Quantity: 1, UnitAmount: "500.00"},
		},
	})
	require.NoError(t, err)
	if status == quotedomain.StatusDraft {
		return q
	}
	_, err = f.quotes.Send(ctx, testOrg, q.ID)
	require.NoError(t, err)
	switch status {
	case quotedomain.StatusAccepted:
		_, err = f.quotes.Accept(ctx, testOrg, q.ID)
		require.NoError(t, err)
	case quotedomain.StatusRejected:
		_, err = f.quotes.Reject(ctx, testOrg, q.ID)
		require.NoError(t, err)
	}
	return q
}

func TestSummaryRollup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// One invoiced quote with a partial payment, plus quotes in every
	// pipeline stage.
	accepted := f.quoteIn(t, quotedomain.StatusAccepted)
	inv, err := f.invoices.CreateFromQuote(ctx, testOrg, invoicedomain.FromQuoteInput{QuoteID: accepted.ID})
	require.NoError(t, err)
	_, err = f.invoices.RecordPayment(ctx, testOrg, inv.ID, invoicedomain.PaymentInput{
		Amount: "1000.00", Method: invoicedomain.MethodBankTransfer,
	})
	require.NoError(t, err)

	f.quoteIn(t, quotedomain.StatusDraft)
	f.quoteIn(t, quotedomain.StatusSent)
	f.quoteIn(t, quotedomain.StatusRejected)

	sum, err := f.svc.Summary(ctx, testOrg)
	require.NoError(t, err)

	assert.Equal(t, int64(1), sum.ClientCount)
	assert.Equal(t, money.MustParse("1200.00"), sum.OutstandingAmount)
	assert.Equal(t, int64(0), sum.OverdueCount)
	assert.Equal(t, money.MustParse("1000.00"), sum.PaidLast30Days)
	assert.Equal(t, int64(1), sum.InvoiceCount)
	assert.Equal(t, int64(1), sum.OpenInvoiceCount)
	assert.Equal(t, int64(1), sum.QuoteDraftCount)
	assert.Equal(t, int64(1), sum.QuoteSentCount)
	assert.Equal(t, int64(1), sum.QuoteAcceptedCount)
	assert.Equal(t, int64(1), sum.QuoteRejectedCount)
	assert.Equal(t, int64(0), sum.QuoteExpiredCount)
	assert.Equal(t, 0.5, sum.QuoteAcceptRate)
}

func TestSummaryOverdueAndExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	accepted := f.quoteIn(t, quotedomain.StatusAccepted)
	_, err := f.invoices.CreateFromQuote(ctx, testOrg, invoicedomain.FromQuoteInput{QuoteID: accepted.ID})
	require.NoError(t, err)
	f.quoteIn(t, quotedomain.StatusSent)

	// Past every due date and quote validity window.
	f.clock.Advance(40 * 24 * time.Hour)

	sum, err := f.svc.Summary(ctx, testOrg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.OverdueCount)
	assert.Equal(t, money.MustParse("2200.00"), sum.OverdueAmount)
	assert.Equal(t, int64(0), sum.QuoteSentCount)
	assert.Equal(t, int64(1), sum.QuoteExpiredCount)
	assert.Equal(t, money.Zero, sum.PaidLast30Days)
}

func TestRevenueByMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	accepted := f.quoteIn(t, quotedomain.StatusAccepted)
	inv, err := f.invoices.CreateFromQuote(ctx, testOrg, invoicedomain.FromQuoteInput{QuoteID: accepted.ID})
	require.NoError(t, err)

	_, err = f.invoices.RecordPayment(ctx, testOrg, inv.ID, invoicedomain.PaymentInput{
		Amount: "1000.00", Method: invoicedomain.MethodCash,
	})
	require.NoError(t, err)

	f.clock.Advance(32 * 24 * time.Hour)
	_, err = f.invoices.RecordPayment(ctx, testOrg, inv.ID, invoicedomain.PaymentInput{
		Amount: "1200.00", Method: invoicedomain.MethodCash,
	})
	require.NoError(t, err)

	points, err := f.svc.Revenue(ctx, testOrg, 6)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-03", points[0].Month)
	assert.Equal(t, money.MustParse("1000.00"), points[0].Amount)
	assert.Equal(t, "2024-04", points[1].Month)
	assert.Equal(t, money.MustParse("1200.00"), points[1].Amount)
}
