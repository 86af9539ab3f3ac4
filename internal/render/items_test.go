package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/danfe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(n int) []danfe.LineItem {
	items := make([]danfe.LineItem, n)
	for i := range items {
		items[i] = danfe.LineItem{
			Code:      fmt.Sprintf("P%03d", i+1),
			Quantity:  danfe.ParseAmount("1"),
			UnitPrice: danfe.ParseAmount("2.5"),
			Total:     danfe.ParseAmount("2.5"),
		}
	}
	return items
}

func TestPaginationBoundary(t *testing.T) {
	const capacity = 15

	pages := RenderItems(makeItems(capacity), capacity)
	require.Len(t, pages, 1)
	assert.Equal(t, capacity, strings.Count(pages[0], "<tr>"))
	assert.Equal(t, 1, PageCount(capacity, capacity))

	pages = RenderItems(makeItems(capacity+1), capacity)
	require.Len(t, pages, 2)
	assert.Equal(t, capacity, strings.Count(pages[0], "<tr>"))
	assert.Equal(t, 1, strings.Count(pages[1], "<tr>"))
	assert.Contains(t, pages[1], "P016")
	assert.Equal(t, 2, PageCount(capacity+1, capacity))

	assert.Equal(t, 3, PageCount(31, capacity))
	assert.Equal(t, 1, PageCount(0, capacity))
}

func TestRenderItemsEmpty(t *testing.T) {
	assert.Equal(t, []string{""}, RenderItems(nil, 15))
}

func TestRenderItemsDefaultCapacity(t *testing.T) {
	assert.Len(t, RenderItems(makeItems(DefaultPageCapacity+1), 0), 2)
}

func TestItemRowColumnsAndAlignment(t *testing.T) {
	item := danfe.LineItem{
		Code:        "P001",
		Description: "PARAFUSO & PORCA",
		NCM:         "73181500",
		CFOP:        "5102",
		Unit:        "UN",
		Quantity:    danfe.ParseAmount("10"),
		UnitPrice:   danfe.ParseAmount("5.00"),
		Total:       danfe.ParseAmount("50.00"),
		ICMS: danfe.ICMS{
			Base:   danfe.ParseAmount("50.00"),
			Amount: danfe.ParseAmount("9.00"),
			Rate:   danfe.ParseAmount("18.00"),
		},
		IPI: danfe.IPI{Amount: danfe.ParseAmount("0.00")},
	}

	row := RenderItems([]danfe.LineItem{item}, 15)[0]

	want := `<tr>` +
		`<td style="text-align: center; padding: 2px;">P001</td>` +
		`<td style="padding: 2px;">PARAFUSO &amp; PORCA</td>` +
		`<td style="text-align: center; padding: 2px;">73181500</td>` +
		`<td style="text-align: center; padding: 2px;">5102</td>` +
		`<td style="text-align: center; padding: 2px;">UN</td>` +
		`<td style="text-align: right; padding: 2px;">10,0000</td>` +
		`<td style="text-align: right; padding: 2px;">R$ 5,00</td>` +
		`<td style="text-align: right; padding: 2px;">R$ 50,00</td>` +
		`<td style="text-align: right; padding: 2px;">R$ 50,00</td>` +
		`<td style="text-align: right; padding: 2px;">R$ 9,00</td>` +
		`<td style="text-align: right; padding: 2px;">R$ 0,00</td>` +
		`<td style="text-align: right; padding: 2px;">18,0%</td>` +
		`<td style="text-align: right; padding: 2px;">0%</td>` +
		"</tr>\n"
	assert.Equal(t, want, row)
}

func TestRenderInstallmentsEmpty(t *testing.T) {
	out := RenderInstallments(nil)

	assert.True(t, strings.HasPrefix(out, tableOpen+installmentHeader))
	assert.Contains(t, out, blankInstallmentRow)
	assert.True(t, strings.HasSuffix(out, tableClose))
}

func TestRenderInstallments(t *testing.T) {
	out := RenderInstallments([]danfe.Installment{
		{Number: "1234/001", DueDate: "2025-06-10", Amount: danfe.ParseAmount("32.25")},
		{Number: "77", Amount: danfe.ParseAmount("95")},
	})

	assert.Contains(t, out, "Número")
	assert.Contains(t, out, ">1234/001<")
	assert.Contains(t, out, ">10/06/2025<")
	assert.Contains(t, out, ">R$ 32,25<")
	assert.Contains(t, out, `<td style="text-align:center; width: 33%;">-</td>`)
	assert.NotContains(t, out, "&nbsp;")
	assert.Equal(t, 3, strings.Count(out, "<tr>"))
}

func TestContinuationPage(t *testing.T) {
	rows := RenderItems(makeItems(1), 15)[0]

	page, err := ContinuationPage(PageHeader{IssuerName: "ACME <LTDA>", Number: "1", Series: "2", AccessKey: "KEY"}, rows, 2, 3)
	require.NoError(t, err)

	assert.Contains(t, page, "ACME &lt;LTDA&gt;")
	assert.Contains(t, page, "Folha 2/3")
	assert.Contains(t, page, "Chave de acesso: KEY")
	assert.Contains(t, page, "<th>DESCRIÇÃO</th>")
	assert.Contains(t, page, rows)
}
