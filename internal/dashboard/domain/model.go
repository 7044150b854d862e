package domain

import (
	"context"

	"github.com/smallbiznis/billable/internal/money"
)

// Summary is the landing-page rollup. Everything here is derived from the
// invoice, payment and quote tables at read time.
type Summary struct {
	ClientCount       int64        `json:"client_count"`
	OutstandingAmount money.Amount `json:"outstanding_amount"`
	OverdueAmount     money.Amount `json:"overdue_amount"`
	OverdueCount      int64        `json:"overdue_count"`
	PaidLast30Days    money.Amount `json:"paid_last_30_days"`
	InvoiceCount      int64        `json:"invoice_count"`
	OpenInvoiceCount  int64        `json:"open_invoice_count"`

	QuoteDraftCount    int64   `json:"quote_draft_count"`
	QuoteSentCount     int64   `json:"quote_sent_count"`
	QuoteAcceptedCount int64   `json:"quote_accepted_count"`
	QuoteRejectedCount int64   `json:"quote_rejected_count"`
	QuoteExpiredCount  int64   `json:"quote_expired_count"`
	QuoteAcceptRate    float64 `json:"quote_accept_rate"`
}

// RevenuePoint is one month of collected payments.
type RevenuePoint struct {
	Month  string       `json:"month"`
	Amount money.Amount `json:"amount"`
}

type Service interface {
	Summary(ctx context.Context, orgID int64) (*Summary, error)
	Revenue(ctx context.Context, orgID int64, months int) ([]RevenuePoint, error)
}
