package compose

import (
	"errors"
	"sort"
	"strings"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/danfe"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/htmltree"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/render"
)

// Compose substitutes every placeholder of templateText in a single pass.
//
// PARAMETERS:
//   - templateText: Pruned template HTML.
//   - placeholders: Token -> value. Values are inserted verbatim.
//   - itemPages: itemPages[0] replaces [items]; every further entry is a
//     complete continuation page appended after the main page.
//   - installments: Replaces [duplicates].
//
// RETURNS:
//   - The composed HTML. Substituted values are never rescanned, so a value
//     that happens to contain a token is left as is, and composing the same
//     inputs twice yields identical output.
func Compose(templateText string, placeholders map[string]string, itemPages []string, installments string) string {
	firstPage := ""
	if len(itemPages) > 0 {
		firstPage = itemPages[0]
	}

	tokens := make([]string, 0, len(placeholders)+2)
	for k := range placeholders {
		if k != ItemsToken && k != InstallmentsToken {
			tokens = append(tokens, k)
		}
	}
	sort.Strings(tokens)

	pairs := make([]string, 0, 2*len(tokens)+4)
	for _, k := range tokens {
		pairs = append(pairs, k, placeholders[k])
	}
	pairs = append(pairs, ItemsToken, firstPage, InstallmentsToken, installments)

	out := strings.NewReplacer(pairs...).Replace(templateText)

	if len(itemPages) > 1 {
		out = appendPages(out, itemPages[1:])
	}
	return out
}

// appendPages inserts each page, preceded by a page break, before </body>
// or at the end of the document when there is no body end tag.
func appendPages(doc string, pages []string) string {
	var extra strings.Builder
	for _, p := range pages {
		extra.WriteString(render.PageBreak)
		extra.WriteString("\n")
		extra.WriteString(p)
		extra.WriteString("\n")
	}

	idx := htmltree.LastEndTag(doc, "body")
	if idx < 0 {
		return doc + extra.String()
	}
	return doc[:idx] + extra.String() + doc[idx:]
}

// =============================================================================
// DOCUMENT BUILDER
// =============================================================================

// ErrEmptyDocument reports a template that composed to nothing.
var ErrEmptyDocument = errors.New("composed document is empty")

// BarcodeEncoder renders the access key barcode. Implementations return nil
// on failure.
type BarcodeEncoder interface {
	Encode(data string) []byte
}

// Options configures Build.
type Options struct {
	// PageCapacity is the number of item rows per page.
	// Default: render.DefaultPageCapacity
	PageCapacity int

	// Barcode encodes the access key. Nil leaves [barcode_image] empty.
	Barcode BarcodeEncoder

	// LogoURL is printed at [url_logo].
	LogoURL string
}

// Build composes the complete DANFE HTML of inv with t.
func Build(t *Template, inv *danfe.Invoice, opts Options) (string, error) {
	capacity := opts.PageCapacity
	if capacity <= 0 {
		capacity = render.DefaultPageCapacity
	}

	rows := render.RenderItems(inv.Items, capacity)
	total := render.PageCount(len(inv.Items), capacity)

	pages := make([]string, 0, len(rows))
	pages = append(pages, rows[0])

	header := render.HeaderFor(inv)
	for i, r := range rows[1:] {
		page, err := render.ContinuationPage(header, r, i+2, total)
		if err != nil {
			return "", err
		}
		pages = append(pages, page)
	}

	extra := Extras{TotalPages: total, LogoURL: opts.LogoURL}
	if opts.Barcode != nil && inv.AccessKey != "" {
		extra.Barcode = opts.Barcode.Encode(inv.AccessKey)
	}

	html := Compose(t.Text(), Placeholders(inv, extra), pages, render.RenderInstallments(inv.Installments))
	if html == "" {
		return "", ErrEmptyDocument
	}
	return html, nil
}
