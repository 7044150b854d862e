package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smallbiznis/billable/internal/clock"
	"github.com/smallbiznis/billable/internal/ledger/domain"
	"github.com/smallbiznis/billable/internal/money"
	"github.com/smallbiznis/billable/pkg/db"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *service) Post(tx *gorm.DB, p domain.Posting) error {
	if len(p.Lines) == 0 {
		return domain.ErrEmptyPosting
	}

	debits, credits := money.Zero, money.Zero
	for _, l := range p.Lines {
		if l.Amount <= 0 {
			return domain.ErrInvalidAmount
		}
		switch l.Direction {
		case domain.Debit:
			debits = debits.Add(l.Amount)
		case domain.Credit:
			credits = credits.Add(l.Amount)
		}
	}
	if debits != credits {
		return domain.ErrUnbalanced
	}

	occurredAt := p.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.clock.Now()
	}

	txnID := s.genID.Generate().Int64()
	now := s.clock.Now()
	entries := make([]domain.Entry, 0, len(p.Lines))
	for _, l := range p.Lines {
		entries = append(entries, domain.Entry{
			ID:            s.genID.Generate().Int64(),
			OrgID:         p.OrgID,
			TransactionID: txnID,
			Account:       l.Account,
			Direction:     l.Direction,
			Amount:        l.Amount,
			SourceType:    p.SourceType,
			SourceID:      p.SourceID,
			OccurredAt:    occurredAt,
			CreatedAt:     now,
		})
	}

	// The unique key on (org, source, account, direction) makes reposting
	// the same business event a no-op.
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
	return db.Translate(err)
}

func (s *service) Entries(ctx context.Context, orgID int64, limit int) ([]domain.Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	var entries []domain.Entry
	err := s.db.WithContext(ctx).
		Raw(`SELECT * FROM ledger_entries WHERE org_id = ? ORDER BY occurred_at DESC, id DESC LIMIT ?`,
			orgID, limit).
		Scan(&entries).Error
	return entries, db.Translate(err)
}

func (s *service) TrialBalance(ctx context.Context, orgID int64) ([]domain.Balance, error) {
	type row struct {
		Account   string
		Direction string
		Total     int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Raw(`SELECT account, direction, SUM(amount) AS total
		     FROM ledger_entries WHERE org_id = ?
		     GROUP BY account, direction`, orgID).
		Scan(&rows).Error
	if err != nil {
		return nil, db.Translate(err)
	}

	byAccount := map[string]*domain.Balance{}
	order := []string{}
	for _, r := range rows {
		b, ok := byAccount[r.Account]
		if !ok {
			b = &domain.Balance{Account: r.Account}
			byAccount[r.Account] = b
			order = append(order, r.Account)
		}
		if r.Direction == string(domain.Debit) {
			b.Debits = money.Amount(r.Total)
		} else {
			b.Credits = money.Amount(r.Total)
		}
	}

	balances := make([]domain.Balance, 0, len(order))
	for _, account := range order {
		b := byAccount[account]
		b.Net = b.Debits.Sub(b.Credits)
		balances = append(balances, *b)
	}
	return balances, nil
}
