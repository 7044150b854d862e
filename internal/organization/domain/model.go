package domain

import (
	"context"
	"errors"
	"time"
)

type Organization struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Currency  string    `gorm:"not null;default:USD" json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }

var (
	ErrNotFound    = errors.New("organization_not_found")
	ErrInvalidName = errors.New("organization_name_required")
)

type CreateInput struct {
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency"`
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*Organization, error)
	Get(ctx context.Context, id int64) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
}

type Repository interface {
	Insert(ctx context.Context, org *Organization) error
	FindByID(ctx context.Context, id int64) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
}
