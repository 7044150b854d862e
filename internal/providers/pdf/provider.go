// Package pdf renders printable quote and invoice documents.
package pdf

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/fx"
	"go.uber.org/zap"

	clientdomain "github.com/smallbiznis/billable/internal/client/domain"
	invoicedomain "github.com/smallbiznis/billable/internal/invoice/domain"
	"github.com/smallbiznis/billable/internal/money"
	orgdomain "github.com/smallbiznis/billable/internal/organization/domain"
	quotedomain "github.com/smallbiznis/billable/internal/quote/domain"
)

type Renderer interface {
	RenderQuote(org *orgdomain.Organization, client *clientdomain.Client, q *quotedomain.Quote) ([]byte, error)
	RenderInvoice(org *orgdomain.Organization, client *clientdomain.Client, inv *invoicedomain.Invoice) ([]byte, error)
}

type Params struct {
	fx.In

	Log *zap.Logger
}

type renderer struct {
	log *zap.Logger
}

func New(p Params) Renderer {
	return &renderer{log: p.Log.Named("providers.pdf")}
}

var Module = fx.Module("pdf",
	fx.Provide(New),
)

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()
	return maroto.New(cfg)
}

type docLine struct {
	Description string
	Quantity    float64
	UnitAmount  money.Amount
	TotalAmount money.Amount
}

func (r *renderer) RenderQuote(org *orgdomain.Organization, client *clientdomain.Client, q *quotedomain.Quote) ([]byte, error) {
	lines := make([]docLine, 0, len(q.LineItems))
	for _, it := range q.LineItems {
		lines = append(lines, docLine{it.Description, it.Quantity, it.UnitAmount, it.TotalAmount})
	}

	m := newDocument()
	addHeader(m, "QUOTE", q.QuoteNumber, org, client)
	addMetaRow(m, "Date", q.CreatedAt)
	if q.ValidUntil != nil {
		addMetaRow(m, "Valid until", *q.ValidUntil)
	}
	addLineTable(m, q.Currency, lines)
	addTotals(m, q.Currency, q.SubtotalAmount, q.TaxRate, q.TaxAmount, q.TotalAmount, nil)
	addNotes(m, q.Notes)

	return generate(m)
}

func (r *renderer) RenderInvoice(org *orgdomain.Organization, client *clientdomain.Client, inv *invoicedomain.Invoice) ([]byte, error) {
	lines := make([]docLine, 0, len(inv.LineItems))
	for _, it := range inv.LineItems {
		lines = append(lines, docLine{it.Description, it.Quantity, it.UnitAmount, it.TotalAmount})
	}

	m := newDocument()
	addHeader(m, "INVOICE", inv.InvoiceNumber, org, client)
	addMetaRow(m, "Issued", inv.IssuedAt)
	if inv.DueAt != nil {
		addMetaRow(m, "Due", *inv.DueAt)
	}
	addLineTable(m, inv.Currency, lines)
	balance := inv.BalanceDue()
	addTotals(m, inv.Currency, inv.SubtotalAmount, inv.TaxRate, inv.TaxAmount, inv.TotalAmount, &balance)
	addNotes(m, inv.Notes)

	return generate(m)
}

func addHeader(m core.Maroto, kind, number string, org *orgdomain.Organization, client *clientdomain.Client) {
	m.AddRow(12,
		text.NewCol(8, org.Name, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, kind, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(8,
		text.NewCol(8, "Bill to: "+client.Name, props.Text{Size: 10}),
		text.NewCol(4, number, props.Text{Size: 10, Align: align.Right}),
	)
	if client.Address != "" {
		m.AddRow(6, text.NewCol(12, client.Address, props.Text{Size: 9}))
	}
}

func addMetaRow(m core.Maroto, label string, t time.Time) {
	m.AddRow(6,
		text.NewCol(12, fmt.Sprintf("%s: %s", label, t.Format("Jan 2, 2006")),
			props.Text{Size: 9, Align: align.Right}),
	)
}

func addLineTable(m core.Maroto, currency string, lines []docLine) {
	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(2, "Qty", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Unit", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, l := range lines {
		m.AddRow(8,
			text.NewCol(6, l.Description, props.Text{Size: 9}),
			text.NewCol(2, formatQty(l.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, l.UnitAmount.String(), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, l.TotalAmount.String(), props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func addTotals(m core.Maroto, currency string, subtotal money.Amount, taxRate float64, tax, total money.Amount, balance *money.Amount) {
	m.AddRow(8,
		text.NewCol(10, "Subtotal", props.Text{Size: 10, Align: align.Right}),
		text.NewCol(2, subtotal.String(), props.Text{Size: 10, Align: align.Right}),
	)
	m.AddRow(8,
		text.NewCol(10, fmt.Sprintf("Tax (%.2f%%)", taxRate*100), props.Text{Size: 10, Align: align.Right}),
		text.NewCol(2, tax.String(), props.Text{Size: 10, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(10, "Total "+currency, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, total.String(), props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)
	if balance != nil {
		m.AddRow(8,
			text.NewCol(10, "Balance due", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
			text.NewCol(2, balance.String(), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
		)
	}
}

func addNotes(m core.Maroto, notes string) {
	if notes == "" {
		return
	}
	m.AddRow(10, text.NewCol(12, "Notes: "+notes, props.Text{Size: 8}))
}

func formatQty(q float64) string {
	if q == float64(int64(q)) {
		return fmt.Sprintf("%d", int64(q))
	}
	return fmt.Sprintf("%.2f", q)
}

func generate(m core.Maroto) ([]byte, error) {
	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
