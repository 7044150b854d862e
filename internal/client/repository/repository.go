package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/client/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

type repository struct {
	db *gorm.DB
}

func Provide(gdb *gorm.DB) domain.Repository {
	return &repository{db: gdb}
}

func (r *repository) Insert(ctx context.Context, c *domain.Client) error {
	return db.Translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *repository) FindByID(ctx context.Context, orgID, id int64) (*domain.Client, error) {
	var c domain.Client
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM clients WHERE org_id = ? AND id = ?`, orgID, id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &c, nil
}

func (r *repository) FindByOrg(ctx context.Context, orgID int64, f domain.ListFilter) ([]domain.Client, int64, error) {
	where := `WHERE org_id = ?`
	args := []any{orgID}
	if f.Search != "" {
		where += ` AND (name LIKE ? OR email LIKE ? OR company LIKE ?)`
		like := "%" + f.Search + "%"
		args = append(args, like, like, like)
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM clients `+where, args...).
		Scan(&total).Error; err != nil {
		return nil, 0, db.Translate(err)
	}

	var clients []domain.Client
	listArgs := append(args, f.Limit(), f.Offset())
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM clients `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, listArgs...).
		Scan(&clients).Error
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return clients, total, nil
}

func (r *repository) Update(ctx context.Context, c *domain.Client) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE clients
		SET name = ?, email = ?, phone = ?, company = ?, address = ?, notes = ?, updated_at = ?
		WHERE org_id = ? AND id = ?`,
		c.Name, c.Email, c.Phone, c.Company, c.Address, c.Notes, c.UpdatedAt,
		c.OrgID, c.ID,
	)
	if res.Error != nil {
		return db.Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, orgID, id int64) error {
	res := r.db.WithContext(ctx).
		Exec(`DELETE FROM clients WHERE org_id = ? AND id = ?`, orgID, id)
	if res.Error != nil {
		return db.Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
