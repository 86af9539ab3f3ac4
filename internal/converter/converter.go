// =============================================================================
// NF-e to DANFE Converter - Converter Module
// =============================================================================
//
// This module contains the per-file conversion pipeline. It takes one NF-e
// XML file to a DANFE PDF.
//
// CONVERSION PIPELINE:
//   1. Parse the XML document
//   2. Extract the invoice record
//   3. Compose the DANFE HTML from the run's template
//   4. Render the PDF (a sanitized second pass runs if the first one fails)
//   5. Write the output file
//
// FAILURES:
//   A failing file never aborts the run. The Result carries the error and,
//   when they could be read, the access key and invoice number.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/compose"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/danfe"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/nfe"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/pdf"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the input XML file.
	FilePath string

	// OutputFile is the generated PDF (or HTML in dry-run mode).
	// This is empty if processing failed.
	OutputFile string

	// AccessKey and Number identify the invoice. They are filled for failed
	// files too whenever the XML could be read that far.
	AccessKey string
	Number    string

	// SizeBytes is the size of the input file.
	SizeBytes int64

	// ProcessedAt is when processing of the file started.
	ProcessedAt time.Time

	// Success indicates whether the processing was successful.
	Success bool

	// Sanitized is set when the PDF came from the second render pass.
	Sanitized bool

	// Error contains the error if processing failed.
	Error error

	// Duration is the time taken to process the file.
	Duration time.Duration
}

// ErrorMessage returns the error text, or "" for successful files.
func (r Result) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Error()
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Logger is the logging interface used by the converter.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Job holds everything a run shares across files. It is built once and never
// modified while files are processed.
type Job struct {
	// Template is the loaded and pruned DANFE template.
	Template *compose.Template

	// Renderer prints HTML to PDF. It may be nil in dry-run mode.
	Renderer pdf.Renderer

	// Sanitizer builds the HTML for the second render pass.
	Sanitizer pdf.Sanitizer

	// Barcode draws the access key barcode. Nil leaves it blank.
	Barcode compose.BarcodeEncoder

	// OutputDir receives <stem>.pdf for every input.
	OutputDir string

	// PageCapacity is the number of item rows per page.
	PageCapacity int

	// InfoSeparator joins the additional-information notes.
	InfoSeparator string

	// LogoURL is substituted for [url_logo].
	LogoURL string

	// DryRun writes <stem>.html instead of rendering.
	DryRun bool
}

// Converter processes NF-e files with a fixed Job.
type Converter struct {
	job    Job
	logger Logger
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a Converter.
//
// PARAMETERS:
//   - job: The shared run inputs.
//   - logger: Destination for progress and failure logs. Nil discards them.
func New(job Job, logger Logger) *Converter {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Converter{job: job, logger: logger}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run converts one file.
//
// RETURNS:
//   - A Result describing the outcome. Run does not return errors; failures
//     are reported in Result.Error and logged.
func (c *Converter) Run(ctx context.Context, path string) Result {
	start := time.Now()
	result := Result{FilePath: path, ProcessedAt: start}

	c.logger.Infof("Processing file: %s", path)

	if size, err := utils.GetFileSize(path); err == nil {
		result.SizeBytes = size
	}

	out, err := c.convert(ctx, path, &result)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		c.logger.Errorf("Failed to convert %s: %v", filepath.Base(path), err)
		return result
	}

	result.OutputFile = out
	result.Success = true
	c.logger.Debugf("Wrote %s", out)
	return result
}

func (c *Converter) convert(ctx context.Context, path string, result *Result) (string, error) {
	// =========================================================================
	// STEP 1: PARSE XML
	// =========================================================================

	doc, err := nfe.ParseFile(path)
	if err != nil {
		return "", err
	}

	// =========================================================================
	// STEP 2: EXTRACT INVOICE
	// =========================================================================

	inv, err := danfe.ExtractWith(doc, danfe.Options{InfoSeparator: c.job.InfoSeparator})
	if err != nil {
		result.AccessKey = doc.Protocol().Value("chNFe")
		return "", err
	}
	result.AccessKey = inv.AccessKey
	result.Number = inv.Number

	c.logger.Debugf("Extracted NF %s with %d item(s)", inv.Number, len(inv.Items))

	// =========================================================================
	// STEP 3: COMPOSE HTML
	// =========================================================================

	html, err := compose.Build(c.job.Template, inv, compose.Options{
		PageCapacity: c.job.PageCapacity,
		Barcode:      c.job.Barcode,
		LogoURL:      c.job.LogoURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to compose DANFE: %w", err)
	}

	stem := utils.Stem(path)

	if c.job.DryRun {
		out := filepath.Join(c.job.OutputDir, stem+".html")
		if err := utils.WriteFile(out, []byte(html)); err != nil {
			return "", err
		}
		return out, nil
	}

	// =========================================================================
	// STEP 4: RENDER PDF
	// =========================================================================

	data, sanitized, err := c.render(ctx, path, html)
	if err != nil {
		return "", err
	}
	result.Sanitized = sanitized

	// =========================================================================
	// STEP 5: WRITE OUTPUT
	// =========================================================================

	out := filepath.Join(c.job.OutputDir, stem+".pdf")
	if err := utils.WriteFile(out, data); err != nil {
		return "", err
	}
	return out, nil
}

// ErrNoRenderer is returned when a non dry-run job has no renderer.
var ErrNoRenderer = errors.New("no pdf renderer configured")

// render prints html, retrying once with the sanitized variant when the
// renderer reports a *pdf.RenderError.
func (c *Converter) render(ctx context.Context, path, html string) ([]byte, bool, error) {
	if c.job.Renderer == nil {
		return nil, false, ErrNoRenderer
	}

	data, err := c.job.Renderer.Render(ctx, html)
	if err == nil {
		return data, false, nil
	}

	var renderErr *pdf.RenderError
	if !errors.As(err, &renderErr) {
		return nil, false, err
	}

	c.logger.Warnf("Render failed for %s, retrying with sanitized HTML: %v", filepath.Base(path), err)

	data, err = c.job.Renderer.Render(ctx, c.job.Sanitizer.Sanitize(html))
	if err != nil {
		return nil, false, fmt.Errorf("render failed after sanitized retry: %w", err)
	}
	return data, true, nil
}

// =============================================================================
// DEFAULT LOGGER
// =============================================================================

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
