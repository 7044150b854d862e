package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/smallbiznis/billable/internal/audit/domain"
	clientdomain "github.com/smallbiznis/billable/internal/client/domain"
	"github.com/smallbiznis/billable/internal/clock"
	"github.com/smallbiznis/billable/internal/money"
	"github.com/smallbiznis/billable/internal/numbering"
	"github.com/smallbiznis/billable/internal/orgcontext"
	"github.com/smallbiznis/billable/internal/quote/domain"
	taxdomain "github.com/smallbiznis/billable/internal/tax/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

// defaultValidity is applied at send time when the quote has no explicit
// valid_until.
const defaultValidity = 30 * 24 * time.Hour

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Clients clientdomain.Repository
	Tax     taxdomain.Service
	Audit   auditdomain.Recorder
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	clients clientdomain.Repository
	tax     taxdomain.Service
	audit   auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("quote.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		clients: p.Clients,
		tax:     p.Tax,
		audit:   p.Audit,
	}
}

func (s *service) Create(ctx context.Context, orgID int64, in domain.CreateInput) (*domain.Quote, error) {
	if _, err := s.clients.FindByID(ctx, orgID, in.ClientID); err != nil {
		return nil, err
	}

	rate, err := s.resolveRate(ctx, orgID, in.TaxRate)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	q := &domain.Quote{
		ID:         s.genID.Generate().Int64(),
		OrgID:      orgID,
		ClientID:   in.ClientID,
		Status:     domain.StatusDraft,
		Currency:   normalizeCurrency(in.Currency),
		TaxRate:    rate,
		ValidUntil: in.ValidUntil,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	items, err := s.buildItems(q, in.Items, now)
	if err != nil {
		return nil, err
	}
	q.LineItems = items
	s.recompute(q)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := numbering.Next(tx, orgID, numbering.KindQuote, now)
		if err != nil {
			return err
		}
		q.QuoteNumber = numbering.Format(numbering.QuoteTemplate, now, seq)

		if err := tx.Create(q).Error; err != nil {
			return db.Translate(err)
		}
		if len(q.LineItems) > 0 {
			if err := tx.Create(&q.LineItems).Error; err != nil {
				return db.Translate(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "quote.created",
		ResourceType: "quote",
		ResourceID:   q.ID,
		Detail:       map[string]any{"quote_number": q.QuoteNumber},
	})
	return q, nil
}

func (s *service) Get(ctx context.Context, orgID, id int64) (*domain.Quote, error) {
	q, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	q.Status = domain.EffectiveStatus(q, s.clock.Now())
	return q, nil
}

func (s *service) List(ctx context.Context, orgID int64, f domain.ListFilter) ([]domain.Quote, int64, error) {
	quotes, total, err := s.repo.FindByOrg(ctx, orgID, f)
	if err != nil {
		return nil, 0, err
	}

	now := s.clock.Now()
	for i := range quotes {
		quotes[i].Status = domain.EffectiveStatus(&quotes[i], now)
	}
	if f.Status == domain.StatusExpired {
		filtered := quotes[:0]
		for _, q := range quotes {
			if q.Status == domain.StatusExpired {
				filtered = append(filtered, q)
			}
		}
		quotes = filtered
		total = int64(len(quotes))
	}
	return quotes, total, nil
}

// Update replaces the editable fields and the full line item set. Only
// drafts are editable; everything after send is frozen.
func (s *service) Update(ctx context.Context, orgID, id int64, in domain.UpdateInput) (*domain.Quote, error) {
	rate, err := s.resolveRate(ctx, orgID, in.TaxRate)
	if err != nil {
		return nil, err
	}

	var updated *domain.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := lockQuote(tx, orgID, id)
		if err != nil {
			return err
		}
		if q.Status != domain.StatusDraft {
			return domain.ErrQuoteLocked
		}

		now := s.clock.Now()
		if in.Currency != "" {
			q.Currency = normalizeCurrency(in.Currency)
		}
		if in.TaxRate != nil {
			q.TaxRate = rate
		}
		q.ValidUntil = in.ValidUntil
		q.Notes = in.Notes
		q.UpdatedAt = now

		items, err := s.buildItems(q, in.Items, now)
		if err != nil {
			return err
		}
		q.LineItems = items
		s.recompute(q)

		if err := tx.Exec(`DELETE FROM quote_line_items WHERE quote_id = ?`, q.ID).Error; err != nil {
			return db.Translate(err)
		}
		if len(q.LineItems) > 0 {
			if err := tx.Create(&q.LineItems).Error; err != nil {
				return db.Translate(err)
			}
		}

		err = tx.Exec(`
			UPDATE quotes
			SET currency = ?, tax_rate = ?, subtotal_amount = ?, tax_amount = ?,
			    total_amount = ?, valid_until = ?, notes = ?, updated_at = ?
			WHERE org_id = ? AND id = ?`,
			q.Currency, q.TaxRate, q.SubtotalAmount, q.TaxAmount,
			q.TotalAmount, q.ValidUntil, q.Notes, q.UpdatedAt,
			orgID, q.ID,
		).Error
		if err != nil {
			return db.Translate(err)
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "quote.updated",
		ResourceType: "quote",
		ResourceID:   id,
	})
	return updated, nil
}

func (s *service) Delete(ctx context.Context, orgID, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := lockQuote(tx, orgID, id)
		if err != nil {
			return err
		}
		if q.Status != domain.StatusDraft {
			return domain.ErrQuoteLocked
		}
		if err := tx.Exec(`DELETE FROM quote_line_items WHERE quote_id = ?`, id).Error; err != nil {
			return db.Translate(err)
		}
		return db.Translate(tx.Exec(`DELETE FROM quotes WHERE org_id = ? AND id = ?`, orgID, id).Error)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "quote.deleted",
		ResourceType: "quote",
		ResourceID:   id,
	})
	return nil
}

func (s *service) Send(ctx context.Context, orgID, id int64) (*domain.Quote, error) {
	var sent *domain.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := lockQuote(tx, orgID, id)
		if err != nil {
			return err
		}
		if q.Status != domain.StatusDraft {
			return domain.ErrInvalidTransition
		}

		var count int64
		if err := tx.Raw(`SELECT COUNT(*) FROM quote_line_items WHERE quote_id = ?`, q.ID).
			Scan(&count).Error; err != nil {
			return db.Translate(err)
		}
		if count == 0 {
			return domain.ErrEmptyQuote
		}

		now := s.clock.Now()
		q.Status = domain.StatusSent
		q.SentAt = &now
		if q.ValidUntil == nil {
			until := now.Add(defaultValidity)
			q.ValidUntil = &until
		}
		q.UpdatedAt = now

		err = tx.Exec(`
			UPDATE quotes
			SET status = ?, sent_at = ?, valid_until = ?, updated_at = ?
			WHERE org_id = ? AND id = ?`,
			q.Status, q.SentAt, q.ValidUntil, q.UpdatedAt, orgID, q.ID,
		).Error
		if err != nil {
			return db.Translate(err)
		}
		sent = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quote sent",
		zap.Int64("org_id", orgID),
		zap.Int64("quote_id", id),
		zap.String("quote_number", sent.QuoteNumber),
	)
	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "quote.sent",
		ResourceType: "quote",
		ResourceID:   id,
	})
	return sent, nil
}

func (s *service) Accept(ctx context.Context, orgID, id int64) (*domain.Quote, error) {
	return s.decide(ctx, orgID, id, domain.StatusAccepted, "quote.accepted")
}

func (s *service) Reject(ctx context.Context, orgID, id int64) (*domain.Quote, error) {
	return s.decide(ctx, orgID, id, domain.StatusRejected, "quote.rejected")
}

func (s *service) decide(ctx context.Context, orgID, id int64, to domain.Status, action string) (*domain.Quote, error) {
	var decided *domain.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := lockQuote(tx, orgID, id)
		if err != nil {
			return err
		}
		if q.Status != domain.StatusSent {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		if domain.EffectiveStatus(q, now) == domain.StatusExpired {
			// Persist the derived status so the attempt leaves a trace.
			_ = tx.Exec(`UPDATE quotes SET status = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
				domain.StatusExpired, now, orgID, q.ID).Error
			return domain.ErrQuoteExpired
		}

		q.Status = to
		q.DecidedAt = &now
		q.UpdatedAt = now
		err = tx.Exec(`
			UPDATE quotes SET status = ?, decided_at = ?, updated_at = ?
			WHERE org_id = ? AND id = ?`,
			q.Status, q.DecidedAt, q.UpdatedAt, orgID, q.ID,
		).Error
		if err != nil {
			return db.Translate(err)
		}
		decided = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       action,
		ResourceType: "quote",
		ResourceID:   id,
	})
	return decided, nil
}

func (s *service) resolveRate(ctx context.Context, orgID int64, override *float64) (float64, error) {
	if override != nil {
		if *override < 0 || *override >= 1 {
			return 0, domain.ErrInvalidTaxRate
		}
		return *override, nil
	}
	return s.tax.DefaultRate(ctx, orgID)
}

// buildItems validates inputs and materializes line items with per-line
// totals rounded once each.
func (s *service) buildItems(q *domain.Quote, inputs []domain.LineItemInput, now time.Time) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(inputs))
	for i, in := range inputs {
		desc := strings.TrimSpace(in.Description)
		if desc == "" || in.Quantity <= 0 {
			return nil, domain.ErrInvalidLineItem
		}
		unit, err := money.Parse(in.UnitAmount)
		if err != nil || unit.IsNegative() {
			return nil, domain.ErrInvalidLineItem
		}
		total, err := unit.MulQuantity(in.Quantity)
		if err != nil {
			return nil, domain.ErrInvalidLineItem
		}
		items = append(items, domain.LineItem{
			ID:          s.genID.Generate().Int64(),
			QuoteID:     q.ID,
			OrgID:       q.OrgID,
			Description: desc,
			Quantity:    in.Quantity,
			UnitAmount:  unit,
			TotalAmount: total,
			Position:    i,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return items, nil
}

// recompute derives subtotal, tax and total from the line items. Line
// totals are already rounded, so the subtotal is an exact sum.
func (s *service) recompute(q *domain.Quote) {
	subtotal := money.Zero
	for _, it := range q.LineItems {
		subtotal = subtotal.Add(it.TotalAmount)
	}
	q.SubtotalAmount = subtotal
	q.TaxAmount = taxdomain.ComputeExclusive(subtotal, q.TaxRate)
	q.TotalAmount = subtotal.Add(q.TaxAmount)
}

func lockQuote(tx *gorm.DB, orgID, id int64) (*domain.Quote, error) {
	var q domain.Quote
	err := tx.Raw(`SELECT * FROM quotes WHERE org_id = ? AND id = ?`+db.RowLock(tx), orgID, id).
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &q, nil
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return "USD"
	}
	return c
}
