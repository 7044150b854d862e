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
	"github.com/smallbiznis/billable/internal/ledger/domain"
	"github.com/smallbiznis/billable/internal/money"
)

func newTestLedger(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.Entry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	return svc, gdb
}

func issuancePosting(orgID, invoiceID int64) domain.Posting {
	return domain.Posting{
		OrgID:      orgID,
		SourceType: "invoice_issued",
		SourceID:   invoiceID,
		Lines: []domain.Line{
			{Account: domain.AccountReceivable, Direction: domain.Debit, Amount: money.MustParse("2200.00")},
			{Account: domain.AccountRevenue, Direction: domain.Credit, Amount: money.MustParse("2000.00")},
			{Account: domain.AccountTaxPayable, Direction: domain.Credit, Amount: money.MustParse("200.00")},
		},
	}
}

func TestPostBalancedTransaction(t *testing.T) {
	svc, gdb := newTestLedger(t)

	require.NoError(t, svc.Post(gdb, issuancePosting(1, 10)))

	entries, err := svc.Entries(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// All lines of one posting share a transaction id.
	txn := entries[0].TransactionID
	for _, e := range entries {
		assert.Equal(t, txn, e.TransactionID)
	}
}

func TestPostRejectsUnbalanced(t *testing.T) {
	svc, gdb := newTestLedger(t)

	err := svc.Post(gdb, domain.Posting{
		OrgID: 1, SourceType: "invoice_issued", SourceID: 10,
		Lines: []domain.Line{
			{Account: domain.AccountReceivable, Direction: domain.Debit, Amount: 100},
			{Account: domain.AccountRevenue, Direction: domain.Credit, Amount: 99},
		},
	})
	assert.ErrorIs(t, err, domain.ErrUnbalanced)
}

func TestPostRejectsNonPositiveAmounts(t *testing.T) {
	svc, gdb := newTestLedger(t)

	err := svc.Post(gdb, domain.Posting{
		OrgID: 1, SourceType: "x", SourceID: 1,
		Lines: []domain.Line{
			{Account: domain.AccountCash, Direction: domain.Debit, Amount: 0},
			{Account: domain.AccountReceivable, Direction: domain.Credit, Amount: 0},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	err = svc.Post(gdb, domain.Posting{OrgID: 1, SourceType: "x", SourceID: 1})
	assert.ErrorIs(t, err, domain.ErrEmptyPosting)
}

func TestRepostingSameSourceIsNoOp(t *testing.T) {
	svc, gdb := newTestLedger(t)

	require.NoError(t, svc.Post(gdb, issuancePosting(1, 10)))
	require.NoError(t, svc.Post(gdb, issuancePosting(1, 10)))

	entries, err := svc.Entries(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestTrialBalance(t *testing.T) {
	svc, gdb := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, svc.Post(gdb, issuancePosting(1, 10)))
	require.NoError(t, svc.Post(gdb, domain.Posting{
		OrgID: 1, SourceType: "payment_recorded", SourceID: 20,
		Lines: []domain.Line{
			{Account: domain.AccountCash, Direction: domain.Debit, Amount: money.MustParse("1000.00")},
			{Account: domain.AccountReceivable, Direction: domain.Credit, Amount: money.MustParse("1000.00")},
		},
	}))

	balances, err := svc.TrialBalance(ctx, 1)
	require.NoError(t, err)

	byAccount := map[string]domain.Balance{}
	totalDebits, totalCredits := money.Zero, money.Zero
	for _, b := range balances {
		byAccount[b.Account] = b
		totalDebits = totalDebits.Add(b.Debits)
		totalCredits = totalCredits.Add(b.Credits)
	}

	assert.Equal(t, totalDebits, totalCredits)
	assert.Equal(t, money.MustParse("1200.00"), byAccount[domain.AccountReceivable].Net)
	assert.Equal(t, money.MustParse("1000.00"), byAccount[domain.AccountCash].Net)
	assert.Equal(t, money.MustParse("-2000.00"), byAccount[domain.AccountRevenue].Net)
}
