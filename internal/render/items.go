// =============================================================================
// NF-e to DANFE Converter - Item and Installment Tables
// =============================================================================
//
// This package turns extracted items and installments into the inline HTML
// rows that the DANFE template expects at its [items] and [duplicates]
// tokens.
//
// PAGINATION:
//   Items are split into pages of PageCapacity rows. The first page's rows
//   fill the main template; every further page becomes a standalone
//   continuation page (see ContinuationPage).
//
// COLUMN LAYOUT:
//   The column order and alignment below must match the legacy template
//   header. Do not reorder.
//
//   Código | Descrição | NCM | CFOP | Un | Qtd | V.Unit | V.Total |
//   BC ICMS | V.ICMS | V.IPI | Alíq. ICMS | Alíq. IPI
//
// =============================================================================

package render

import (
	"html"
	"strings"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/danfe"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/format"
)

// DefaultPageCapacity is the number of item rows on one DANFE page.
const DefaultPageCapacity = 15

// =============================================================================
// COLUMNS
// =============================================================================

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

func (a align) style() string {
	switch a {
	case alignCenter:
		return "text-align: center; padding: 2px;"
	case alignRight:
		return "text-align: right; padding: 2px;"
	default:
		return "padding: 2px;"
	}
}

type column struct {
	header string
	align  align
	value  func(danfe.LineItem) string
}

var itemColumns = []column{
	{"CÓDIGO", alignCenter, func(it danfe.LineItem) string { return html.EscapeString(it.Code) }},
	{"DESCRIÇÃO", alignLeft, func(it danfe.LineItem) string { return html.EscapeString(it.Description) }},
	{"NCM/SH", alignCenter, func(it danfe.LineItem) string { return html.EscapeString(it.NCM) }},
	{"CFOP", alignCenter, func(it danfe.LineItem) string { return html.EscapeString(it.CFOP) }},
	{"UN", alignCenter, func(it danfe.LineItem) string { return html.EscapeString(it.Unit) }},
	{"QTD", alignRight, func(it danfe.LineItem) string { return format.Quantity(it.Quantity.Raw) }},
	{"V.UNIT", alignRight, func(it danfe.LineItem) string { return it.UnitPrice.Currency() }},
	{"V.TOTAL", alignRight, func(it danfe.LineItem) string { return it.Total.Currency() }},
	{"BC ICMS", alignRight, func(it danfe.LineItem) string { return it.ICMS.Base.Currency() }},
	{"V.ICMS", alignRight, func(it danfe.LineItem) string { return it.ICMS.Amount.Currency() }},
	{"V.IPI", alignRight, func(it danfe.LineItem) string { return it.IPI.Amount.Currency() }},
	{"ALÍQ. ICMS", alignRight, func(it danfe.LineItem) string { return format.Percent(it.ICMS.Rate.Raw) }},
	{"ALÍQ. IPI", alignRight, func(it danfe.LineItem) string { return format.Percent(it.IPI.Rate.Raw) }},
}

// =============================================================================
// ITEMS
// =============================================================================

// PageCount returns ceil(n / capacity), and at least 1 so an invoice
// without items still declares its single page.
func PageCount(n, capacity int) int {
	if capacity <= 0 {
		capacity = DefaultPageCapacity
	}
	pages := (n + capacity - 1) / capacity
	if pages < 1 {
		return 1
	}
	return pages
}

// RenderItems renders item rows split into pages.
//
// PARAMETERS:
//   - items: Items in document order.
//   - capacity: Rows per page. Values <= 0 use DefaultPageCapacity.
//
// RETURNS:
//   - One fragment of <tr> rows per page. There is always at least one
//     fragment; it is empty when there are no items.
func RenderItems(items []danfe.LineItem, capacity int) []string {
	if capacity <= 0 {
		capacity = DefaultPageCapacity
	}

	pages := make([]string, 0, PageCount(len(items), capacity))
	for start := 0; start < len(items); start += capacity {
		end := start + capacity
		if end > len(items) {
			end = len(items)
		}

		var b strings.Builder
		for _, it := range items[start:end] {
			writeItemRow(&b, it)
		}
		pages = append(pages, b.String())
	}

	if len(pages) == 0 {
		pages = append(pages, "")
	}
	return pages
}

func writeItemRow(b *strings.Builder, it danfe.LineItem) {
	b.WriteString("<tr>")
	for _, col := range itemColumns {
		b.WriteString(`<td style="`)
		b.WriteString(col.align.style())
		b.WriteString(`">`)
		b.WriteString(col.value(it))
		b.WriteString("</td>")
	}
	b.WriteString("</tr>\n")
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

const (
	tableOpen  = `<table cellpadding="0" cellspacing="0" border="1" style="width:100%;"><tbody>`
	tableClose = `</tbody></table>`

	installmentHeader = `<tr>` +
		`<th style="text-align:center; width: 33%;">Número</th>` +
		`<th style="text-align:center; width: 33%;">Vencimento</th>` +
		`<th style="text-align:right; width: 34%;">Valor</th>` +
		`</tr>`

	blankInstallmentRow = `<tr>` +
		`<td style="text-align:center;">&nbsp;</td>` +
		`<td style="text-align:center;">&nbsp;</td>` +
		`<td style="text-align:right;">&nbsp;</td>` +
		`</tr>`
)

// RenderInstallments renders the installment table. It always has the
// header row; with no installments it carries a single blank row.
func RenderInstallments(installments []danfe.Installment) string {
	var b strings.Builder
	b.WriteString(tableOpen)
	b.WriteString(installmentHeader)

	if len(installments) == 0 {
		b.WriteString(blankInstallmentRow)
	}

	for _, in := range installments {
		due := "-"
		if in.DueDate != "" {
			due = format.Date(in.DueDate)
		}

		b.WriteString(`<tr>`)
		b.WriteString(`<td style="text-align:center; width: 33%;">` + html.EscapeString(in.Number) + `</td>`)
		b.WriteString(`<td style="text-align:center; width: 33%;">` + due + `</td>`)
		b.WriteString(`<td style="text-align:right; width: 34%;">` + in.Amount.Currency() + `</td>`)
		b.WriteString(`</tr>`)
	}

	b.WriteString(tableClose)
	return b.String()
}
