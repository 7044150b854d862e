package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/tax/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

type repository struct {
	db *gorm.DB
}

func Provide(gdb *gorm.DB) domain.Repository {
	return &repository{db: gdb}
}

func (r *repository) FindDefault(ctx context.Context, orgID int64) (*domain.TaxDefinition, error) {
	var def domain.TaxDefinition
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM tax_definitions WHERE org_id = ? AND is_default`, orgID).
		First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &def, nil
}

func (r *repository) Upsert(ctx context.Context, def *domain.TaxDefinition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if def.IsDefault {
			if err := tx.Exec(
				`UPDATE tax_definitions SET is_default = ? WHERE org_id = ?`,
				false, def.OrgID,
			).Error; err != nil {
				return db.Translate(err)
			}
		}
		return db.Translate(tx.Create(def).Error)
	})
}

func (r *repository) ListByOrg(ctx context.Context, orgID int64) ([]domain.TaxDefinition, error) {
	var defs []domain.TaxDefinition
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM tax_definitions WHERE org_id = ? ORDER BY created_at`, orgID).
		Scan(&defs).Error
	return defs, db.Translate(err)
}
