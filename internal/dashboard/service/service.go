package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/clock"
	"github.com/smallbiznis/billable/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/billable/internal/invoice/domain"
	"github.com/smallbiznis/billable/internal/money"
	quotedomain "github.com/smallbiznis/billable/internal/quote/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

const summaryCacheTTL = time.Minute

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Cache *redis.Client `optional:"true"`
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	cache *redis.Client
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		clock: p.Clock,
		cache: p.Cache,
	}
}

func (s *service) Summary(ctx context.Context, orgID int64) (*domain.Summary, error) {
	cacheKey := fmt.Sprintf("dashboard:summary:%d", orgID)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached domain.Summary
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	now := s.clock.Now()
	sum := &domain.Summary{}

	var clients int64
	err := s.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM clients WHERE org_id = ?`, orgID).
		Scan(&clients).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	sum.ClientCount = clients

	type invoiceRoll struct {
		Outstanding   int64
		OverdueAmount int64
		OverdueCount  int64
		Total         int64
		Open          int64
	}
	var ir invoiceRoll
	err = s.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN amount_paid < total_amount THEN total_amount - amount_paid ELSE 0 END), 0) AS outstanding,
			COALESCE(SUM(CASE WHEN amount_paid < total_amount AND due_at IS NOT NULL AND due_at < ? THEN total_amount - amount_paid ELSE 0 END), 0) AS overdue_amount,
			COALESCE(SUM(CASE WHEN amount_paid < total_amount AND due_at IS NOT NULL AND due_at < ? THEN 1 ELSE 0 END), 0) AS overdue_count,
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN amount_paid < total_amount THEN 1 ELSE 0 END), 0) AS open
		FROM invoices WHERE org_id = ?`,
		now, now, orgID,
	).Scan(&ir).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	sum.OutstandingAmount = money.Amount(ir.Outstanding)
	sum.OverdueAmount = money.Amount(ir.OverdueAmount)
	sum.OverdueCount = ir.OverdueCount
	sum.InvoiceCount = ir.Total
	sum.OpenInvoiceCount = ir.Open

	var paid int64
	err = s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE org_id = ? AND status = ? AND paid_at >= ?`,
		orgID, invoicedomain.PaymentRecorded, now.Add(-30*24*time.Hour),
	).Scan(&paid).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	sum.PaidLast30Days = money.Amount(paid)

	type quoteRoll struct {
		Draft    int64
		Sent     int64
		Accepted int64
		Rejected int64
		Expired  int64
	}
	var qr quoteRoll
	err = s.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS draft,
			COALESCE(SUM(CASE WHEN status = ? AND (valid_until IS NULL OR valid_until >= ?) THEN 1 ELSE 0 END), 0) AS sent,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS accepted,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS rejected,
			COALESCE(SUM(CASE WHEN (status = ? AND valid_until IS NOT NULL AND valid_until < ?) OR status = ? THEN 1 ELSE 0 END), 0) AS expired
		FROM quotes WHERE org_id = ?`,
		quotedomain.StatusDraft,
		quotedomain.StatusSent, now,
		quotedomain.StatusAccepted,
		quotedomain.StatusRejected,
		quotedomain.StatusSent, now, quotedomain.StatusExpired,
		orgID,
	).Scan(&qr).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	sum.QuoteDraftCount = qr.Draft
	sum.QuoteSentCount = qr.Sent
	sum.QuoteAcceptedCount = qr.Accepted
	sum.QuoteRejectedCount = qr.Rejected
	sum.QuoteExpiredCount = qr.Expired
	if decided := qr.Accepted + qr.Rejected; decided > 0 {
		sum.QuoteAcceptRate = float64(qr.Accepted) / float64(decided)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(sum); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, summaryCacheTTL).Err(); err != nil {
				s.log.Debug("summary cache write failed", zap.Error(err))
			}
		}
	}
	return sum, nil
}

// Revenue groups collected payments by calendar month. Grouping happens in
// Go so the query stays portable across dialects.
func (s *service) Revenue(ctx context.Context, orgID int64, months int) ([]domain.RevenuePoint, error) {
	if months <= 0 || months > 36 {
		months = 6
	}
	since := s.clock.Now().AddDate(0, -months, 0)

	type row struct {
		PaidAt time.Time
		Amount int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Raw(`
		SELECT paid_at, amount FROM payments
		WHERE org_id = ? AND status = ? AND paid_at >= ?`,
		orgID, invoicedomain.PaymentRecorded, since,
	).Scan(&rows).Error
	if err != nil {
		return nil, db.Translate(err)
	}

	byMonth := map[string]money.Amount{}
	for _, r := range rows {
		key := r.PaidAt.UTC().Format("2006-01")
		byMonth[key] = byMonth[key].Add(money.Amount(r.Amount))
	}

	points := make([]domain.RevenuePoint, 0, len(byMonth))
	for month, amount := range byMonth {
		points = append(points, domain.RevenuePoint{Month: month, Amount: amount})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	return points, nil
}
