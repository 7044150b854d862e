package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"

	"github.com/smallbiznis/billable/internal/money"
	"github.com/smallbiznis/billable/pkg/db"
)

type Status string

const (
	StatusSent Status = "sent"
	StatusPaid Status = "paid"
	// StatusOverdue is derived. A sent invoice past due_at with a
	// positive balance reads back as overdue; nothing rewrites it at the
	// deadline.
	StatusOverdue Status = "overdue"
)

type PaymentStatus string

const (
	PaymentRecorded PaymentStatus = "recorded"
	PaymentCanceled PaymentStatus = "canceled"
)

type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodCash         PaymentMethod = "cash"
	MethodCheck        PaymentMethod = "check"
	MethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodBankTransfer, MethodCreditCard, MethodCash, MethodCheck, MethodOther:
		return true
	}
	return false
}

// Invoice totals are a snapshot taken at issuance. Later quote edits or
// tax changes never alter an issued invoice.
type Invoice struct {
	ID             int64             `gorm:"primaryKey" json:"id,string"`
	OrgID          int64             `gorm:"index;not null" json:"org_id,string"`
	ClientID       int64             `gorm:"index;not null" json:"client_id,string"`
	QuoteID        *int64            `gorm:"index" json:"quote_id,string,omitempty"`
	InvoiceNumber  string            `gorm:"not null" json:"invoice_number"`
	Status         Status            `gorm:"not null;default:sent" json:"status"`
	Currency       string            `gorm:"not null;default:USD" json:"currency"`
	SubtotalAmount money.Amount      `gorm:"not null" json:"subtotal_amount"`
	TaxRate        float64           `gorm:"not null" json:"tax_rate"`
	TaxAmount      money.Amount      `gorm:"not null" json:"tax_amount"`
	TotalAmount    money.Amount      `gorm:"not null" json:"total_amount"`
	AmountPaid     money.Amount      `gorm:"not null;default:0" json:"amount_paid"`
	IssuedAt       time.Time         `gorm:"not null" json:"issued_at"`
	DueAt          *time.Time        `json:"due_at,omitempty"`
	Notes          string            `json:"notes"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`

	LineItems []LineItem `gorm:"-" json:"line_items,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// BalanceDue is always derived from the snapshot total and the payment
// ledger, never stored.
func (i *Invoice) BalanceDue() money.Amount {
	return i.TotalAmount.Sub(i.AmountPaid)
}

type LineItem struct {
	ID          int64        `gorm:"primaryKey" json:"id,string"`
	InvoiceID   int64        `gorm:"index;not null" json:"invoice_id,string"`
	OrgID       int64        `gorm:"not null" json:"org_id,string"`
	Description string       `gorm:"not null" json:"description"`
	Quantity    float64      `gorm:"not null" json:"quantity"`
	UnitAmount  money.Amount `gorm:"not null" json:"unit_amount"`
	TotalAmount money.Amount `gorm:"not null" json:"total_amount"`
	Position    int          `json:"position"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (LineItem) TableName() string { return "invoice_line_items" }

type Payment struct {
	ID         int64         `gorm:"primaryKey" json:"id,string"`
	OrgID      int64         `gorm:"index;not null" json:"org_id,string"`
	InvoiceID  int64         `gorm:"index;not null" json:"invoice_id,string"`
	Amount     money.Amount  `gorm:"not null" json:"amount"`
	Method     PaymentMethod `gorm:"not null" json:"method"`
	Reference  string        `json:"reference"`
	Note       string        `json:"note"`
	Status     PaymentStatus `gorm:"not null;default:recorded" json:"status"`
	PaidAt     time.Time     `gorm:"not null" json:"paid_at"`
	CanceledAt *time.Time    `json:"canceled_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

var (
	ErrNotFound             = errors.New("invoice_not_found")
	ErrPaymentNotFound      = errors.New("payment_not_found")
	ErrQuoteNotAccepted     = errors.New("quote_not_accepted")
	ErrQuoteAlreadyInvoiced = errors.New("quote_already_invoiced")
	ErrInvalidLineItem      = errors.New("invalid_line_item")
	ErrInvalidTaxRate       = errors.New("tax_rate_out_of_range")
	ErrInvalidPayment       = errors.New("invalid_payment")
	ErrOverpayment          = errors.New("payment_exceeds_balance_due")
	ErrPaymentCanceled      = errors.New("payment_already_canceled")
	ErrConservation         = errors.New("payment_conservation_violated")
)

type LineItemInput struct {
	Description string  `json:"description" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required"`
	UnitAmount  string  `json:"unit_amount" binding:"required"`
}

type CreateInput struct {
	ClientID int64           `json:"client_id,string" binding:"required"`
	Currency string          `json:"currency"`
	TaxRate  *float64        `json:"tax_rate"`
	DueAt    *time.Time      `json:"due_at"`
	Notes    string          `json:"notes"`
	Items    []LineItemInput `json:"line_items"`
}

type FromQuoteInput struct {
	QuoteID int64      `json:"quote_id,string" binding:"required"`
	DueAt   *time.Time `json:"due_at"`
	Notes   string     `json:"notes"`
}

type PaymentInput struct {
	Amount    string        `json:"amount" binding:"required"`
	Method    PaymentMethod `json:"method" binding:"required"`
	Reference string        `json:"reference"`
	Note      string        `json:"note"`
	PaidAt    *time.Time    `json:"paid_at"`
}

type ListFilter struct {
	db.Pagination
	Status   Status `form:"status"`
	ClientID int64  `form:"client_id"`
}

type Service interface {
	Create(ctx context.Context, orgID int64, in CreateInput) (*Invoice, error)
	CreateFromQuote(ctx context.Context, orgID int64, in FromQuoteInput) (*Invoice, error)
	Get(ctx context.Context, orgID, id int64) (*Invoice, error)
	List(ctx context.Context, orgID int64, f ListFilter) ([]Invoice, int64, error)

	RecordPayment(ctx context.Context, orgID, invoiceID int64, in PaymentInput) (*Payment, error)
	EditPayment(ctx context.Context, orgID, paymentID int64, in PaymentInput) (*Payment, error)
	CancelPayment(ctx context.Context, orgID, paymentID int64) (*Payment, error)
	ListPayments(ctx context.Context, orgID, invoiceID int64) ([]Payment, error)
}

type Repository interface {
	FindByID(ctx context.Context, orgID, id int64) (*Invoice, error)
	FindByOrg(ctx context.Context, orgID int64, f ListFilter) ([]Invoice, int64, error)
	FindItems(ctx context.Context, invoiceID int64) ([]LineItem, error)
	FindPayments(ctx context.Context, orgID, invoiceID int64) ([]Payment, error)
	FindPayment(ctx context.Context, orgID, paymentID int64) (*Payment, error)
}

// EffectiveStatus derives the read-side status from the snapshot and the
// payment state.
func EffectiveStatus(i *Invoice, now time.Time) Status {
	if i.BalanceDue() <= 0 {
		return StatusPaid
	}
	if i.DueAt != nil && now.After(*i.DueAt) {
		return StatusOverdue
	}
	return StatusSent
}
