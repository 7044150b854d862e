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
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	// StatusExpired is derived, never written by a user action. A sent
	// quote past its valid_until reads back as expired.
	StatusExpired Status = "expired"
)

type Quote struct {
	ID             int64             `gorm:"primaryKey" json:"id,string"`
	OrgID          int64             `gorm:"index;not null" json:"org_id,string"`
	ClientID       int64             `gorm:"index;not null" json:"client_id,string"`
	QuoteNumber    string            `gorm:"not null" json:"quote_number"`
	Status         Status            `gorm:"not null;default:draft" json:"status"`
	Currency       string            `gorm:"not null;default:USD" json:"currency"`
	SubtotalAmount money.Amount      `gorm:"not null" json:"subtotal_amount"`
	TaxRate        float64           `gorm:"not null" json:"tax_rate"`
	TaxAmount      money.Amount      `gorm:"not null" json:"tax_amount"`
	TotalAmount    money.Amount      `gorm:"not null" json:"total_amount"`
	ValidUntil     *time.Time        `json:"valid_until,omitempty"`
	SentAt         *time.Time        `json:"sent_at,omitempty"`
	DecidedAt      *time.Time        `json:"decided_at,omitempty"`
	Notes          string            `json:"notes"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`

	LineItems []LineItem `gorm:"-" json:"line_items,omitempty"`
}

func (Quote) TableName() string { return "quotes" }

type LineItem struct {
	ID          int64        `gorm:"primaryKey" json:"id,string"`
	QuoteID     int64        `gorm:"index;not null" json:"quote_id,string"`
	OrgID       int64        `gorm:"not null" json:"org_id,string"`
	Description string       `gorm:"not null" json:"description"`
	Quantity    float64      `gorm:"not null" json:"quantity"`
	UnitAmount  money.Amount `gorm:"not null" json:"unit_amount"`
	TotalAmount money.Amount `gorm:"not null" json:"total_amount"`
	Position    int          `json:"position"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (LineItem) TableName() string { return "quote_line_items" }

var (
	ErrNotFound          = errors.New("quote_not_found")
	ErrEmptyQuote        = errors.New("quote_has_no_line_items")
	ErrInvalidTransition = errors.New("invalid_quote_transition")
	ErrQuoteExpired      = errors.New("quote_expired")
	ErrQuoteLocked       = errors.New("quote_not_editable")
	ErrInvalidLineItem   = errors.New("invalid_line_item")
	ErrInvalidTaxRate    = errors.New("tax_rate_out_of_range")
)

type LineItemInput struct {
	Description string  `json:"description" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required"`
	UnitAmount  string  `json:"unit_amount" binding:"required"`
}

type CreateInput struct {
	ClientID   int64           `json:"client_id,string" binding:"required"`
	Currency   string          `json:"currency"`
	TaxRate    *float64        `json:"tax_rate"`
	ValidUntil *time.Time      `json:"valid_until"`
	Notes      string          `json:"notes"`
	Items      []LineItemInput `json:"line_items"`
}

type UpdateInput struct {
	Currency   string          `json:"currency"`
	TaxRate    *float64        `json:"tax_rate"`
	ValidUntil *time.Time      `json:"valid_until"`
	Notes      string          `json:"notes"`
	Items      []LineItemInput `json:"line_items"`
}

type ListFilter struct {
	db.Pagination
	Status   Status `form:"status"`
	ClientID int64  `form:"client_id"`
}

type Service interface {
	Create(ctx context.Context, orgID int64, in CreateInput) (*Quote, error)
	Get(ctx context.Context, orgID, id int64) (*Quote, error)
	List(ctx context.Context, orgID int64, f ListFilter) ([]Quote, int64, error)
	Update(ctx context.Context, orgID, id int64, in UpdateInput) (*Quote, error)
	Delete(ctx context.Context, orgID, id int64) error

	Send(ctx context.Context, orgID, id int64) (*Quote, error)
	Accept(ctx context.Context, orgID, id int64) (*Quote, error)
	Reject(ctx context.Context, orgID, id int64) (*Quote, error)
}

type Repository interface {
	FindByID(ctx context.Context, orgID, id int64) (*Quote, error)
	FindByOrg(ctx context.Context, orgID int64, f ListFilter) ([]Quote, int64, error)
	FindItems(ctx context.Context, quoteID int64) ([]LineItem, error)
}

// EffectiveStatus derives the read-side status. Expiry is passive: nothing
// rewrites a sent quote at the deadline, readers derive it from valid_until.
func EffectiveStatus(q *Quote, now time.Time) Status {
	if q.Status == StatusSent && q.ValidUntil != nil && now.After(*q.ValidUntil) {
		return StatusExpired
	}
	return q.Status
}
