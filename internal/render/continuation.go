package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/danfe"
)

// PageBreak separates pages of the composed document.
const PageBreak = `<div style="page-break-before: always;"></div>`

// PageHeader identifies the invoice on continuation pages.
type PageHeader struct {
	IssuerName string
	Number     string
	Series     string
	AccessKey  string
}

// HeaderFor builds the continuation header of inv.
func HeaderFor(inv *danfe.Invoice) PageHeader {
	return PageHeader{
		IssuerName: inv.Issuer.Name,
		Number:     inv.Number,
		Series:     inv.Series,
		AccessKey:  inv.AccessKey,
	}
}

const continuationHTML = `<div class="danfe-page danfe-continuation">
<table cellpadding="0" cellspacing="0" border="1" style="width:100%;"><tbody>
<tr><td style="padding: 2px;"><strong>{{.Header.IssuerName}}</strong></td><td style="text-align: center; padding: 2px;">NF-e Nº {{.Header.Number}} Série {{.Header.Series}}</td><td style="text-align: center; padding: 2px;">Folha {{.Page}}/{{.Total}}</td></tr>
<tr><td colspan="3" style="text-align: center; padding: 2px;">Chave de acesso: {{.Header.AccessKey}}</td></tr>
</tbody></table>
<table class="items" cellpadding="0" cellspacing="0" border="1" style="width:100%;">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{.Rows}}</tbody></table>
</div>`

var continuationTmpl = template.Must(template.New("continuation").Parse(continuationHTML))

// ContinuationPage renders a standalone page carrying rows, which must be a
// fragment produced by RenderItems.
func ContinuationPage(h PageHeader, rows string, page, total int) (string, error) {
	headers := make([]string, len(itemColumns))
	for i, c := range itemColumns {
		headers[i] = c.header
	}

	var buf bytes.Buffer
	err := continuationTmpl.Execute(&buf, struct {
		Header  PageHeader
		Page    int
		Total   int
		Columns []string
		Rows    template.HTML
	}{h, page, total, headers, template.HTML(rows)})
	if err != nil {
		return "", fmt.Errorf("failed to render continuation page %d: %w", page, err)
	}
	return buf.String(), nil
}
