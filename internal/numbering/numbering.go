// Package numbering issues human-readable document numbers such as
// INV-20240301-000042 from per-organization daily sequences.
package numbering

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/smallbiznis/billable/pkg/db"
)

const (
	KindInvoice = "invoice"
	KindQuote   = "quote"

	InvoiceTemplate = "INV-{YYYY}{MM}{DD}-{SEQ6}"
	QuoteTemplate   = "QUO-{YYYY}{MM}{DD}-{SEQ6}"
)

// Next increments and returns the sequence for (org, kind, period). It must
// run inside the caller's transaction so a failed document creation does
// not burn a number that another request already observed.
func Next(tx *gorm.DB, orgID int64, kind string, t time.Time) (int64, error) {
	period := t.Format("20060102")
	err := tx.Exec(`
		INSERT INTO number_sequences (org_id, kind, period, value)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (org_id, kind, period)
		DO UPDATE SET value = number_sequences.value + 1`,
		orgID, kind, period,
	).Error
	if err != nil {
		return 0, db.Translate(err)
	}

	var value int64
	err = tx.Raw(`
		SELECT value FROM number_sequences
		WHERE org_id = ? AND kind = ? AND period = ?`,
		orgID, kind, period,
	).Scan(&value).Error
	if err != nil {
		return 0, db.Translate(err)
	}
	return value, nil
}

// Format renders a document number template. Supported tokens are {YYYY},
// {MM}, {DD} and {SEQn} for an n-digit zero padded sequence.
func Format(template string, t time.Time, seq int64) string {
	out := template
	out = strings.ReplaceAll(out, "{YYYY}", t.Format("2006"))
	out = strings.ReplaceAll(out, "{MM}", t.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", t.Format("02"))
	for width := 1; width <= 9; width++ {
		token := fmt.Sprintf("{SEQ%d}", width)
		if strings.Contains(out, token) {
			out = strings.ReplaceAll(out, token, fmt.Sprintf("%0*d", width, seq))
		}
	}
	return out
}
