package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/money"
)

type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Account names used by the posting rules. Issuing an invoice debits
// receivables and credits revenue plus tax payable; recording a payment
// moves the amount from receivables into cash.
const (
	AccountReceivable = "accounts_receivable"
	AccountRevenue    = "revenue"
	AccountTaxPayable = "tax_payable"
	AccountCash       = "cash"
)

type Entry struct {
	ID            int64        `gorm:"primaryKey" json:"id,string"`
	OrgID         int64        `gorm:"uniqueIndex:ux_ledger_source;not null" json:"org_id,string"`
	TransactionID int64        `gorm:"index;not null" json:"transaction_id,string"`
	Account       string       `gorm:"uniqueIndex:ux_ledger_source;not null" json:"account"`
	Direction     Direction    `gorm:"uniqueIndex:ux_ledger_source;not null" json:"direction"`
	Amount        money.Amount `gorm:"not null" json:"amount"`
	SourceType    string       `gorm:"uniqueIndex:ux_ledger_source;not null" json:"source_type"`
	SourceID      int64        `gorm:"uniqueIndex:ux_ledger_source;not null" json:"source_id,string"`
	OccurredAt    time.Time    `gorm:"not null" json:"occurred_at"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (Entry) TableName() string { return "ledger_entries" }

var (
	ErrUnbalanced    = errors.New("ledger_posting_unbalanced")
	ErrInvalidAmount = errors.New("ledger_amount_not_positive")
	ErrEmptyPosting  = errors.New("ledger_posting_empty")
)

type Line struct {
	Account   string
	Direction Direction
	Amount    money.Amount
}

// Posting is one balanced transaction. SourceType and SourceID identify
// the business event; reposting the same event is a no-op.
type Posting struct {
	OrgID      int64
	SourceType string
	SourceID   int64
	OccurredAt time.Time
	Lines      []Line
}

// Poster writes postings inside the caller's transaction so ledger rows
// commit or roll back together with the business rows they describe.
type Poster interface {
	Post(tx *gorm.DB, p Posting) error
}

type Balance struct {
	Account string       `json:"account"`
	Debits  money.Amount `json:"debits"`
	Credits money.Amount `json:"credits"`
	Net     money.Amount `json:"net"`
}

type Service interface {
	Poster
	Entries(ctx context.Context, orgID int64, limit int) ([]Entry, error)
	TrialBalance(ctx context.Context, orgID int64) ([]Balance, error)
}
