package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/organization/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

type repository struct {
	db *gorm.DB
}

func Provide(gdb *gorm.DB) domain.Repository {
	return &repository{db: gdb}
}

func (r *repository) Insert(ctx context.Context, org *domain.Organization) error {
	err := r.db.WithContext(ctx).Exec(`
		INSERT INTO organizations (id, name, slug, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Slug, org.Currency, org.CreatedAt, org.UpdatedAt,
	).Error
	return db.Translate(err)
}

func (r *repository) FindByID(ctx context.Context, id int64) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM organizations WHERE id = ?`, id).
		First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &org, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM organizations WHERE slug = ?`, slug).
		First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &org, nil
}
