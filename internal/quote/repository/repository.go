package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/quote/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

type repository struct {
	db *gorm.DB
}

func Provide(gdb *gorm.DB) domain.Repository {
	return &repository{db: gdb}
}

func (r *repository) FindByID(ctx context.Context, orgID, id int64) (*domain.Quote, error) {
	var q domain.Quote
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM quotes WHERE org_id = ? AND id = ?`, orgID, id).
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}

	items, err := r.FindItems(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	q.LineItems = items
	return &q, nil
}

func (r *repository) FindByOrg(ctx context.Context, orgID int64, f domain.ListFilter) ([]domain.Quote, int64, error) {
	where := `WHERE org_id = ?`
	args := []any{orgID}
	if f.Status != "" && f.Status != domain.StatusExpired {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.ClientID != 0 {
		where += ` AND client_id = ?`
		args = append(args, f.ClientID)
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM quotes `+where, args...).
		Scan(&total).Error; err != nil {
		return nil, 0, db.Translate(err)
	}

	var quotes []domain.Quote
	listArgs := append(args, f.Limit(), f.Offset())
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM quotes `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, listArgs...).
		Scan(&quotes).Error
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return quotes, total, nil
}

func (r *repository) FindItems(ctx context.Context, quoteID int64) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM quote_line_items WHERE quote_id = ? ORDER BY position, id`, quoteID).
		Scan(&items).Error
	return items, db.Translate(err)
}
