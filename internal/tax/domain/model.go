package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/billable/internal/money"
)

type TaxDefinition struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	OrgID     int64     `gorm:"index;not null" json:"org_id,string"`
	Name      string    `gorm:"not null" json:"name"`
	Rate      float64   `gorm:"not null" json:"rate"`
	IsDefault bool      `gorm:"column:is_default" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TaxDefinition) TableName() string { return "tax_definitions" }

var (
	ErrInvalidRate = errors.New("tax_rate_out_of_range")
	ErrNotFound    = errors.New("tax_definition_not_found")
)

type UpsertInput struct {
	Name string  `json:"name" binding:"required"`
	Rate float64 `json:"rate"`
}

type Service interface {
	// DefaultRate returns the org default rate, falling back to the
	// configured application default when the org defines none.
	DefaultRate(ctx context.Context, orgID int64) (float64, error)
	SetDefault(ctx context.Context, orgID int64, in UpsertInput) (*TaxDefinition, error)
	List(ctx context.Context, orgID int64) ([]TaxDefinition, error)
}

type Repository interface {
	FindDefault(ctx context.Context, orgID int64) (*TaxDefinition, error)
	Upsert(ctx context.Context, def *TaxDefinition) error
	ListByOrg(ctx context.Context, orgID int64) ([]TaxDefinition, error)
}

// ComputeExclusive returns the tax charged on top of an exclusive subtotal.
func ComputeExclusive(subtotal money.Amount, rate float64) money.Amount {
	if rate <= 0 {
		return money.Zero
	}
	return subtotal.ApplyRate(rate)
}
