package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/smallbiznis/billable/internal/audit/domain"
	clientdomain "github.com/smallbiznis/billable/internal/client/domain"
	"github.com/smallbiznis/billable/internal/clock"
	"github.com/smallbiznis/billable/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/billable/internal/ledger/domain"
	"github.com/smallbiznis/billable/internal/money"
	"github.com/smallbiznis/billable/internal/numbering"
	"github.com/smallbiznis/billable/internal/orgcontext"
	quotedomain "github.com/smallbiznis/billable/internal/quote/domain"
	taxdomain "github.com/smallbiznis/billable/internal/tax/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

// defaultTerm is applied when an invoice is issued without an explicit
// due date.
const defaultTerm = 30 * 24 * time.Hour

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Quotes  quotedomain.Repository
	Clients clientdomain.Repository
	Tax     taxdomain.Service
	Ledger  ledgerdomain.Service
	Audit   auditdomain.Recorder
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	quotes  quotedomain.Repository
	clients clientdomain.Repository
	tax     taxdomain.Service
	ledger  ledgerdomain.Service
	audit   auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("invoice.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		quotes:  p.Quotes,
		clients: p.Clients,
		tax:     p.Tax,
		ledger:  p.Ledger,
		audit:   p.Audit,
	}
}

func (s *service) Create(ctx context.Context, orgID int64, in domain.CreateInput) (*domain.Invoice, error) {
	if _, err := s.clients.FindByID(ctx, orgID, in.ClientID); err != nil {
		return nil, err
	}

	rate, err := s.resolveRate(ctx, orgID, in.TaxRate)
	if err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, domain.ErrInvalidLineItem
	}

	now := s.clock.Now()
	inv := &domain.Invoice{
		ID:        s.genID.Generate().Int64(),
		OrgID:     orgID,
		ClientID:  in.ClientID,
		Status:    domain.StatusSent,
		Currency:  normalizeCurrency(in.Currency),
		TaxRate:   rate,
		IssuedAt:  now,
		DueAt:     in.DueAt,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if inv.DueAt == nil {
		due := now.Add(defaultTerm)
		inv.DueAt = &due
	}

	items := make([]domain.LineItem, 0, len(in.Items))
	subtotal := money.Zero
	for i, li := range in.Items {
		desc := strings.TrimSpace(li.Description)
		if desc == "" || li.Quantity <= 0 {
			return nil, domain.ErrInvalidLineItem
		}
		unit, err := money.Parse(li.UnitAmount)
		if err != nil || unit.IsNegative() {
			return nil, domain.ErrInvalidLineItem
		}
		total, err := unit.MulQuantity(li.Quantity)
		if err != nil {
			return nil, domain.ErrInvalidLineItem
		}
		subtotal = subtotal.Add(total)
		items = append(items, domain.LineItem{
			ID:          s.genID.Generate().Int64(),
			InvoiceID:   inv.ID,
			OrgID:       orgID,
			Description: desc,
			Quantity:    li.Quantity,
			UnitAmount:  unit,
			TotalAmount: total,
			Position:    i,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	inv.SubtotalAmount = subtotal
	inv.TaxAmount = taxdomain.ComputeExclusive(subtotal, rate)
	inv.TotalAmount = subtotal.Add(inv.TaxAmount)
	inv.LineItems = items

	if err := s.issue(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateFromQuote snapshots an accepted quote into an invoice. Totals are
// copied, not recomputed, so the invoice matches what the client accepted
// even if rates change later.
func (s *service) CreateFromQuote(ctx context.Context, orgID int64, in domain.FromQuoteInput) (*domain.Invoice, error) {
	q, err := s.quotes.FindByID(ctx, orgID, in.QuoteID)
	if err != nil {
		if errors.Is(err, quotedomain.ErrNotFound) {
			return nil, quotedomain.ErrNotFound
		}
		return nil, err
	}
	if q.Status != quotedomain.StatusAccepted {
		return nil, domain.ErrQuoteNotAccepted
	}

	var existing int64
	if err := s.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM invoices WHERE org_id = ? AND quote_id = ?`, orgID, q.ID).
		Scan(&existing).Error; err != nil {
		return nil, db.Translate(err)
	}
	if existing > 0 {
		return nil, domain.ErrQuoteAlreadyInvoiced
	}

	now := s.clock.Now()
	quoteID := q.ID
	inv := &domain.Invoice{
		ID:             s.genID.Generate().Int64(),
		OrgID:          orgID,
		ClientID:       q.ClientID,
		QuoteID:        &quoteID,
		Status:         domain.StatusSent,
		Currency:       q.Currency,
		SubtotalAmount: q.SubtotalAmount,
		TaxRate:        q.TaxRate,
		TaxAmount:      q.TaxAmount,
		TotalAmount:    q.TotalAmount,
		IssuedAt:       now,
		DueAt:          in.DueAt,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if inv.DueAt == nil {
		due := now.Add(defaultTerm)
		inv.DueAt = &due
	}

	items := make([]domain.LineItem, 0, len(q.LineItems))
	for _, qi := range q.LineItems {
		items = append(items, domain.LineItem{
			ID:          s.genID.Generate().Int64(),
			InvoiceID:   inv.ID,
			OrgID:       orgID,
			Description: qi.Description,
			Quantity:    qi.Quantity,
			UnitAmount:  qi.UnitAmount,
			TotalAmount: qi.TotalAmount,
			Position:    qi.Position,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	inv.LineItems = items

	if err := s.issue(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// issue persists the invoice, assigns its number and posts the issuance
// to the ledger in one transaction.
func (s *service) issue(ctx context.Context, inv *domain.Invoice) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := numbering.Next(tx, inv.OrgID, numbering.KindInvoice, inv.IssuedAt)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = numbering.Format(numbering.InvoiceTemplate, inv.IssuedAt, seq)

		if err := tx.Create(inv).Error; err != nil {
			return db.Translate(err)
		}
		if len(inv.LineItems) > 0 {
			if err := tx.Create(&inv.LineItems).Error; err != nil {
				return db.Translate(err)
			}
		}

		lines := []ledgerdomain.Line{
			{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Debit, Amount: inv.TotalAmount},
		}
		if inv.SubtotalAmount > 0 {
			lines = append(lines, ledgerdomain.Line{
				Account: ledgerdomain.AccountRevenue, Direction: ledgerdomain.Credit, Amount: inv.SubtotalAmount,
			})
		}
		if inv.TaxAmount > 0 {
			lines = append(lines, ledgerdomain.Line{
				Account: ledgerdomain.AccountTaxPayable, Direction: ledgerdomain.Credit, Amount: inv.TaxAmount,
			})
		}
		if inv.TotalAmount > 0 {
			if err := s.ledger.Post(tx, ledgerdomain.Posting{
				OrgID:      inv.OrgID,
				SourceType: "invoice_issued",
				SourceID:   inv.ID,
				OccurredAt: inv.IssuedAt,
				Lines:      lines,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("invoice issued",
		zap.Int64("org_id", inv.OrgID),
		zap.Int64("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total", inv.TotalAmount.String()),
	)
	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        inv.OrgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "invoice.issued",
		ResourceType: "invoice",
		ResourceID:   inv.ID,
		Detail:       map[string]any{"invoice_number": inv.InvoiceNumber},
	})
	return nil
}

func (s *service) Get(ctx context.Context, orgID, id int64) (*domain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	inv.Status = domain.EffectiveStatus(inv, s.clock.Now())
	return inv, nil
}

func (s *service) List(ctx context.Context, orgID int64, f domain.ListFilter) ([]domain.Invoice, int64, error) {
	invoices, total, err := s.repo.FindByOrg(ctx, orgID, f)
	if err != nil {
		return nil, 0, err
	}

	now := s.clock.Now()
	for i := range invoices {
		invoices[i].Status = domain.EffectiveStatus(&invoices[i], now)
	}
	if f.Status == domain.StatusOverdue {
		filtered := invoices[:0]
		for _, inv := range invoices {
			if inv.Status == domain.StatusOverdue {
				filtered = append(filtered, inv)
			}
		}
		invoices = filtered
		total = int64(len(invoices))
	}
	return invoices, total, nil
}

func (s *service) RecordPayment(ctx context.Context, orgID, invoiceID int64, in domain.PaymentInput) (*domain.Payment, error) {
	amount, err := parsePaymentAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if !in.Method.Valid() {
		return nil, domain.ErrInvalidPayment
	}

	var payment *domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if amount.Compare(inv.BalanceDue()) > 0 {
			return domain.ErrOverpayment
		}

		now := s.clock.Now()
		paidAt := now
		if in.PaidAt != nil {
			paidAt = *in.PaidAt
		}
		reference := strings.TrimSpace(in.Reference)
		if reference == "" {
			// Every recorded payment carries a receipt reference.
			reference = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
		}
		p := &domain.Payment{
			ID:        s.genID.Generate().Int64(),
			OrgID:     orgID,
			InvoiceID: invoiceID,
			Amount:    amount,
			Method:    in.Method,
			Reference: reference,
			Note:      in.Note,
			Status:    domain.PaymentRecorded,
			PaidAt:    paidAt,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(p).Error; err != nil {
			return db.Translate(err)
		}

		if err := s.applyPaid(tx, inv, inv.AmountPaid.Add(amount), now); err != nil {
			return err
		}
		if err := s.ledger.Post(tx, ledgerdomain.Posting{
			OrgID:      orgID,
			SourceType: "payment_recorded",
			SourceID:   p.ID,
			OccurredAt: paidAt,
			Lines: []ledgerdomain.Line{
				{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Debit, Amount: amount},
				{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Credit, Amount: amount},
			},
		}); err != nil {
			return err
		}
		if err := verifyConservation(tx, inv); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "payment.recorded",
		ResourceType: "payment",
		ResourceID:   payment.ID,
		Detail:       map[string]any{"invoice_id": invoiceID, "amount": payment.Amount.String()},
	})
	return payment, nil
}

func (s *service) EditPayment(ctx context.Context, orgID, paymentID int64, in domain.PaymentInput) (*domain.Payment, error) {
	amount, err := parsePaymentAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if !in.Method.Valid() {
		return nil, domain.ErrInvalidPayment
	}

	existing, err := s.repo.FindPayment(ctx, orgID, paymentID)
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, orgID, existing.InvoiceID)
		if err != nil {
			return err
		}

		// Re-read under the lock; the pre-check above only resolved the
		// invoice id.
		p, err := lockPayment(tx, orgID, paymentID)
		if err != nil {
			return err
		}
		if p.Status == domain.PaymentCanceled {
			return domain.ErrPaymentCanceled
		}

		// The edited amount may consume the balance freed by the old one.
		ceiling := inv.BalanceDue().Add(p.Amount)
		if amount.Compare(ceiling) > 0 {
			return domain.ErrOverpayment
		}

		now := s.clock.Now()
		oldAmount := p.Amount
		p.Amount = amount
		p.Method = in.Method
		if ref := strings.TrimSpace(in.Reference); ref != "" {
			p.Reference = ref
		}
		p.Note = in.Note
		if in.PaidAt != nil {
			p.PaidAt = *in.PaidAt
		}
		p.UpdatedAt = now

		err = tx.Exec(`
			UPDATE payments
			SET amount = ?, method = ?, reference = ?, note = ?, paid_at = ?, updated_at = ?
			WHERE org_id = ? AND id = ?`,
			p.Amount, p.Method, p.Reference, p.Note, p.PaidAt, p.UpdatedAt,
			orgID, p.ID,
		).Error
		if err != nil {
			return db.Translate(err)
		}

		if err := s.applyPaid(tx, inv, inv.AmountPaid.Sub(oldAmount).Add(amount), now); err != nil {
			return err
		}
		if err := s.postAdjustment(tx, orgID, p.ID, amount.Sub(oldAmount), now); err != nil {
			return err
		}
		if err := verifyConservation(tx, inv); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "payment.edited",
		ResourceType: "payment",
		ResourceID:   paymentID,
	})
	return payment, nil
}

func (s *service) CancelPayment(ctx context.Context, orgID, paymentID int64) (*domain.Payment, error) {
	existing, err := s.repo.FindPayment(ctx, orgID, paymentID)
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, orgID, existing.InvoiceID)
		if err != nil {
			return err
		}
		p, err := lockPayment(tx, orgID, paymentID)
		if err != nil {
			return err
		}
		if p.Status == domain.PaymentCanceled {
			return domain.ErrPaymentCanceled
		}

		now := s.clock.Now()
		p.Status = domain.PaymentCanceled
		p.CanceledAt = &now
		p.UpdatedAt = now

		err = tx.Exec(`
			UPDATE payments SET status = ?, canceled_at = ?, updated_at = ?
			WHERE org_id = ? AND id = ?`,
			p.Status, p.CanceledAt, p.UpdatedAt, orgID, p.ID,
		).Error
		if err != nil {
			return db.Translate(err)
		}

		if err := s.applyPaid(tx, inv, inv.AmountPaid.Sub(p.Amount), now); err != nil {
			return err
		}
		if err := s.ledger.Post(tx, ledgerdomain.Posting{
			OrgID:      orgID,
			SourceType: "payment_canceled",
			SourceID:   p.ID,
			OccurredAt: now,
			Lines: []ledgerdomain.Line{
				{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Debit, Amount: p.Amount},
				{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Credit, Amount: p.Amount},
			},
		}); err != nil {
			return err
		}
		if err := verifyConservation(tx, inv); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		OrgID:        orgID,
		ActorID:      orgcontext.UserID(ctx),
		Action:       "payment.canceled",
		ResourceType: "payment",
		ResourceID:   paymentID,
	})
	return payment, nil
}

func (s *service) ListPayments(ctx context.Context, orgID, invoiceID int64) ([]domain.Payment, error) {
	if _, err := s.repo.FindByID(ctx, orgID, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.FindPayments(ctx, orgID, invoiceID)
}

// applyPaid writes the new paid total and the stored status. Overdue is
// never stored, it is derived on read.
func (s *service) applyPaid(tx *gorm.DB, inv *domain.Invoice, paid money.Amount, now time.Time) error {
	inv.AmountPaid = paid
	inv.Status = domain.StatusSent
	if inv.BalanceDue() <= 0 {
		inv.Status = domain.StatusPaid
	}
	inv.UpdatedAt = now
	err := tx.Exec(`
		UPDATE invoices SET amount_paid = ?, status = ?, updated_at = ?
		WHERE org_id = ? AND id = ?`,
		inv.AmountPaid, inv.Status, inv.UpdatedAt, inv.OrgID, inv.ID,
	).Error
	return db.Translate(err)
}

// postAdjustment records the ledger delta of an edited payment. Each edit
// is its own event, so the source id is a fresh id rather than the
// payment id.
func (s *service) postAdjustment(tx *gorm.DB, orgID, paymentID int64, delta money.Amount, now time.Time) error {
	if delta == 0 {
		return nil
	}
	lines := []ledgerdomain.Line{
		{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Debit, Amount: delta},
		{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Credit, Amount: delta},
	}
	if delta < 0 {
		lines = []ledgerdomain.Line{
			{Account: ledgerdomain.AccountReceivable, Direction: ledgerdomain.Debit, Amount: -delta},
			{Account: ledgerdomain.AccountCash, Direction: ledgerdomain.Credit, Amount: -delta},
		}
	}
	return s.ledger.Post(tx, ledgerdomain.Posting{
		OrgID:      orgID,
		SourceType: "payment_adjusted",
		SourceID:   s.genID.Generate().Int64(),
		OccurredAt: now,
		Lines:      lines,
	})
}

// verifyConservation re-derives the paid total from the payment rows and
// fails the transaction when it disagrees with the invoice, or when the
// invoice would be over or under collected.
func verifyConservation(tx *gorm.DB, inv *domain.Invoice) error {
	var sum int64
	err := tx.Raw(`
		SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE invoice_id = ? AND status = ?`,
		inv.ID, domain.PaymentRecorded,
	).Scan(&sum).Error
	if err != nil {
		return db.Translate(err)
	}
	if money.Amount(sum) != inv.AmountPaid || inv.AmountPaid < 0 || inv.AmountPaid > inv.TotalAmount {
		return domain.ErrConservation
	}
	return nil
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

func parsePaymentAmount(raw string) (money.Amount, error) {
	amount, err := money.Parse(raw)
	if err != nil || amount <= 0 {
		return 0, domain.ErrInvalidPayment
	}
	return amount, nil
}

func lockInvoice(tx *gorm.DB, orgID, id int64) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := tx.Raw(`SELECT * FROM invoices WHERE org_id = ? AND id = ?`+db.RowLock(tx), orgID, id).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &inv, nil
}

func lockPayment(tx *gorm.DB, orgID, id int64) (*domain.Payment, error) {
	var p domain.Payment
	err := tx.Raw(`SELECT * FROM payments WHERE org_id = ? AND id = ?`+db.RowLock(tx), orgID, id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return "USD"
	}
	return c
}
