package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/compose"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/danfe"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const invoiceXML = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
 <NFe>
  <infNFe Id="NFe35250512345678000195550010000012341000012345" versao="4.00">
   <ide><nNF>1234</nNF><serie>1</serie><dhEmi>2025-05-10T14:30:00-03:00</dhEmi></ide>
   <emit><CNPJ>12345678000195</CNPJ><xNome>ACME LTDA</xNome></emit>
   <det nItem="1">
    <prod><cProd>P1</cProd><xProd>PARAFUSO</xProd><uCom>UN</uCom><qCom>10</qCom><vUnCom>5.00</vUnCom><vProd>50.00</vProd></prod>
    <imposto><ICMS><ICMS40><orig>0</orig><CST>40</CST></ICMS40></ICMS></imposto>
   </det>
   <total><ICMSTot><vProd>50.00</vProd><vNF>50.00</vNF></ICMSTot></total>
  </infNFe>
 </NFe>
 <protNFe><infProt><chNFe>35250512345678000195550010000012341000012345</chNFe><nProt>135250000000001</nProt></infProt></protNFe>
</nfeProc>`

const malformedXML = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe">
 <NFe><ide/></NFe>
 <protNFe><infProt><chNFe>35250512345678000195550010000099991000099999</chNFe></infProt></protNFe>
</nfeProc>`

const templateHTML = `<html><head><style>.danfe-page{position:relative}</style></head>` +
	`<body><div class="danfe-page">[vl_total_prod]<table><tbody>[items]</tbody></table>[duplicates]</div></body></html>`

// fakeRenderer fails the first failures calls with a *pdf.RenderError.
type fakeRenderer struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    []string
}

func (f *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, html)
	if f.err != nil {
		return nil, f.err
	}
	if f.failures > 0 {
		f.failures--
		return nil, &pdf.RenderError{Err: errors.New("page crashed")}
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fixture struct {
	src, out string
	logs     *observer.ObservedLogs
	log      *zap.SugaredLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	core, logs := observer.New(zapcore.DebugLevel)
	return &fixture{
		src:  filepath.Join(dir, "xml"),
		out:  filepath.Join(dir, "pdf"),
		logs: logs,
		log:  zap.New(core).Sugar(),
	}
}

func (f *fixture) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(f.src, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func (f *fixture) converter(t *testing.T, r pdf.Renderer, dryRun bool) *Converter {
	t.Helper()
	tmpl, err := compose.NewTemplate(templateHTML, nil)
	require.NoError(t, err)
	return New(Job{
		Template:  tmpl,
		Renderer:  r,
		Sanitizer: pdf.DefaultSanitizer(),
		OutputDir: f.out,
		DryRun:    dryRun,
	}, f.log)
}

func TestRunWritesPDF(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "nota.xml", invoiceXML)
	r := &fakeRenderer{}

	res := f.converter(t, r, false).Run(context.Background(), path)

	require.True(t, res.Success, res.ErrorMessage())
	assert.Equal(t, filepath.Join(f.out, "nota.pdf"), res.OutputFile)
	assert.Equal(t, "35250512345678000195550010000012341000012345", res.AccessKey)
	assert.Equal(t, "1234", res.Number)
	assert.Equal(t, int64(len(invoiceXML)), res.SizeBytes)
	assert.False(t, res.Sanitized)
	require.Len(t, r.calls, 1)
	assert.Contains(t, r.calls[0], "R$ 50,00")

	data, err := os.ReadFile(res.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestRenderFailureRetriesSanitized(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "nota.xml", invoiceXML)
	r := &fakeRenderer{failures: 1}

	res := f.converter(t, r, false).Run(context.Background(), path)

	require.True(t, res.Success, res.ErrorMessage())
	assert.True(t, res.Sanitized)
	require.Len(t, r.calls, 2)
	assert.Contains(t, r.calls[0], "position:relative")
	assert.NotContains(t, r.calls[1], "position:relative")
	assert.Contains(t, r.calls[1], "visibility: visible !important")
	assert.Equal(t, 1, f.logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestSanitizedRetryFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "nota.xml", invoiceXML)
	r := &fakeRenderer{failures: 2}

	res := f.converter(t, r, false).Run(context.Background(), path)

	assert.False(t, res.Success)
	assert.Empty(t, res.OutputFile)
	assert.Contains(t, res.ErrorMessage(), "render failed after sanitized retry")
	assert.Contains(t, res.ErrorMessage(), "page crashed")
	assert.Equal(t, "1234", res.Number)

	errs := f.logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "nota.xml")
}

func TestOtherRendererErrorsAreNotRetried(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "nota.xml", invoiceXML)
	r := &fakeRenderer{err: errors.New("disk full")}

	res := f.converter(t, r, false).Run(context.Background(), path)

	assert.False(t, res.Success)
	assert.Len(t, r.calls, 1)
	assert.Equal(t, "disk full", res.ErrorMessage())
}

func TestMalformedInvoiceKeepsKey(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "bad.xml", malformedXML)

	res := f.converter(t, &fakeRenderer{}, false).Run(context.Background(), path)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error, danfe.ErrMalformedInvoice)
	assert.Equal(t, "35250512345678000195550010000099991000099999", res.AccessKey)
}

func TestDryRunWritesHTML(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "nota.xml", invoiceXML)

	res := f.converter(t, nil, true).Run(context.Background(), path)

	require.True(t, res.Success, res.ErrorMessage())
	assert.Equal(t, filepath.Join(f.out, "nota.html"), res.OutputFile)
	data, err := os.ReadFile(res.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "R$ 50,00")
}

func TestRunAllContinuesAfterFailures(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a/bad.xml", malformedXML)
	f.write(t, "b/good.XML", invoiceXML)
	f.write(t, "b/readme.txt", "ignored")

	files, err := Discover(f.src, "")
	require.NoError(t, err)
	require.Len(t, files, 2)

	summary := f.converter(t, &fakeRenderer{}, false).RunAll(context.Background(), files)

	require.NotNil(t, summary)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.Cancelled)
	require.Len(t, summary.Failures(), 1)
	assert.True(t, strings.HasSuffix(summary.Failures()[0].FilePath, "bad.xml"))
	assert.Equal(t, int64(len(malformedXML)+len(invoiceXML)), summary.TotalBytes())
}

func TestEventsEndWithFinish(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "nota.xml", invoiceXML)

	var kinds []EventKind
	for ev := range f.converter(t, &fakeRenderer{}, false).Start(context.Background(), []string{path}) {
		kinds = append(kinds, ev.Kind)
	}

	assert.Equal(t, []EventKind{EventMessage, EventProgress, EventFinish}, kinds)
}

func TestCancelledRunStopsBeforeNextFile(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "nota.xml", invoiceXML)
	r := &fakeRenderer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := f.converter(t, r, false).RunAll(ctx, []string{path, path})

	assert.True(t, summary.Cancelled)
	assert.Empty(t, summary.Results)
	assert.Empty(t, r.calls)
}

func TestPreflightErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Discover(filepath.Join(dir, "missing"), "")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = Discover(dir, "")
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = Discover(dir, filepath.Join(dir, "nope.xml"))
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = LoadTemplate(filepath.Join(dir, "danfe.html"), nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}
