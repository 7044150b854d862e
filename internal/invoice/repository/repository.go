package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/invoice/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

type repository struct {
	db *gorm.DB
}

func Provide(gdb *gorm.DB) domain.Repository {
	return &repository{db: gdb}
}

func (r *repository) FindByID(ctx context.Context, orgID, id int64) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM invoices WHERE org_id = ? AND id = ?`, orgID, id).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}

	items, err := r.FindItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items
	return &inv, nil
}

func (r *repository) FindByOrg(ctx context.Context, orgID int64, f domain.ListFilter) ([]domain.Invoice, int64, error) {
	where := `WHERE org_id = ?`
	args := []any{orgID}
	if f.Status == domain.StatusPaid || f.Status == domain.StatusSent {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.ClientID != 0 {
		where += ` AND client_id = ?`
		args = append(args, f.ClientID)
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM invoices `+where, args...).
		Scan(&total).Error; err != nil {
		return nil, 0, db.Translate(err)
	}

	var invoices []domain.Invoice
	listArgs := append(args, f.Limit(), f.Offset())
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM invoices `+where+` ORDER BY issued_at DESC, id DESC LIMIT ? OFFSET ?`, listArgs...).
		Scan(&invoices).Error
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return invoices, total, nil
}

func (r *repository) FindItems(ctx context.Context, invoiceID int64) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM invoice_line_items WHERE invoice_id = ? ORDER BY position, id`, invoiceID).
		Scan(&items).Error
	return items, db.Translate(err)
}

func (r *repository) FindPayments(ctx context.Context, orgID, invoiceID int64) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM payments WHERE org_id = ? AND invoice_id = ? ORDER BY paid_at, id`,
			orgID, invoiceID).
		Scan(&payments).Error
	return payments, db.Translate(err)
}

func (r *repository) FindPayment(ctx context.Context, orgID, paymentID int64) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM payments WHERE org_id = ? AND id = ?`, orgID, paymentID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}
