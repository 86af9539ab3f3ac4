// =============================================================================
// NF-e to DANFE Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which runs the batch conversion.
//
// COMMAND USAGE:
//   danfe convert [flags]
//
// FLAGS:
//   --source        : Directory scanned recursively for *.xml
//   --output        : Directory for PDFs, reports and logs
//   --template      : DANFE HTML template
//   --file          : Convert only this file
//   --page-capacity : Item rows per page
//   --report        : Write the XLSX run report
//   --dry-run       : Write the composed HTML instead of rendering PDFs
//
// PROCESSING PIPELINE:
//   1. Load configuration and apply flag overrides
//   2. Pre-flight: load the template, discover the files
//   3. Start the browser (skipped in dry-run mode)
//   4. Convert the files on one worker, draining its events every 100 ms
//   5. Print the summary and write the report and logs
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/barcode"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/config"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/converter"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/pdf"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/report"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var convertFlags struct {
	source       string
	output       string
	template     string
	file         string
	pageCapacity int
	report       bool
	dryRun       bool
}

// pollInterval is how often the foreground drains worker events.
const pollInterval = 100 * time.Millisecond

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert NF-e XML files to DANFE PDFs",
	Long: `The convert command scans the source directory recursively for NF-e XML
files and prints one DANFE PDF per file into the output directory, named after
the XML file.

Files are converted one at a time. A file that fails is logged and reported;
the run continues with the next file. Only a missing template, a missing source
directory or an empty source directory abort the run before it starts.

On completion:
  - A summary with total, successful and failed files is printed
  - An XLSX report, a summary log and an error log land in the output directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	f := convertCmd.Flags()
	f.StringVar(&convertFlags.source, "source", "", "Directory scanned recursively for NF-e XML files")
	f.StringVar(&convertFlags.output, "output", "", "Directory for the generated PDFs")
	f.StringVar(&convertFlags.template, "template", "", "DANFE HTML template")
	f.StringVar(&convertFlags.file, "file", "", "Convert a single XML file")
	f.IntVar(&convertFlags.pageCapacity, "page-capacity", 0, "Item rows per page")
	f.BoolVar(&convertFlags.report, "report", true, "Write the XLSX run report")
	f.BoolVar(&convertFlags.dryRun, "dry-run", false, "Write the composed HTML instead of rendering PDFs")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	applyConvertFlags(cmd, cfg)

	// =========================================================================
	// STEP 1: PRE-FLIGHT
	// =========================================================================

	fmt.Println("=== NF-e to DANFE Converter ===")
	fmt.Printf("Loading template %s...\n", cfg.TemplatePath)

	tmpl, err := converter.LoadTemplate(cfg.TemplatePath, cfg.Template.RemoveSections)
	if err != nil {
		return err
	}
	log.Debugf("Removed %d fixed section(s) from the template: %s", tmpl.Removed(), strings.Join(tmpl.Sections(), ", "))

	fmt.Println("Discovering input files...")

	files, err := converter.Discover(cfg.SourceDir, convertFlags.file)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d file(s) to process\n", len(files))

	if err := utils.EnsureDir(cfg.OutputDir); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: START THE RENDERER
	// =========================================================================

	ctx := cmd.Context()

	var renderer pdf.Renderer
	if !convertFlags.dryRun {
		chrome, err := pdf.NewChrome(ctx, pdf.ChromeOptions{
			ExecPath: cfg.Renderer.ChromePath,
			Timeout:  cfg.Renderer.Timeout,
		})
		if err != nil {
			return err
		}
		defer chrome.Close()
		renderer = chrome
	}

	// =========================================================================
	// STEP 3: PROCESS FILES
	// =========================================================================

	conv := converter.New(converter.Job{
		Template:      tmpl,
		Renderer:      renderer,
		Sanitizer:     cfg.Renderer.Sanitize,
		Barcode:       barcode.Encoder{},
		OutputDir:     cfg.OutputDir,
		PageCapacity:  cfg.PageCapacity,
		InfoSeparator: cfg.AdditionalInfoSeparator,
		LogoURL:       cfg.LogoURL,
		DryRun:        convertFlags.dryRun,
	}, log)

	fmt.Println("Processing files...")
	summary := drainEvents(ctx, conv.Start(ctx, files))

	// =========================================================================
	// STEP 4: PRINT SUMMARY
	// =========================================================================

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.Total)
	fmt.Printf("Successful:      %d\n", summary.Succeeded)
	fmt.Printf("Errors:          %d\n", summary.Failed)
	fmt.Printf("Time elapsed:    %s\n", summary.Elapsed().Round(time.Millisecond))
	if summary.Cancelled {
		fmt.Printf("Cancelled:       %d file(s) not processed\n", summary.Total-len(summary.Results))
	}

	writeRunReports(cfg, summary, log)
	return nil
}

// applyConvertFlags lets explicit flags win over file and environment values.
func applyConvertFlags(cmd *cobra.Command, cfg *config.Config) {
	if convertFlags.source != "" {
		cfg.SourceDir = convertFlags.source
	}
	if convertFlags.output != "" {
		cfg.OutputDir = convertFlags.output
	}
	if convertFlags.template != "" {
		cfg.TemplatePath = convertFlags.template
	}
	if convertFlags.pageCapacity > 0 {
		cfg.PageCapacity = convertFlags.pageCapacity
	}
	if cmd.Flags().Changed("report") {
		enabled := convertFlags.report
		cfg.Report.Enabled = &enabled
	}
}

// drainEvents prints worker events until the run finishes.
func drainEvents(ctx context.Context, events <-chan converter.Event) *converter.Summary {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var summary *converter.Summary
	interrupted := false

	for range ticker.C {
		if ctx.Err() != nil && !interrupted {
			interrupted = true
			fmt.Println("Interrupt received, stopping after the current file...")
		}

	drain:
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return summary
				}
				switch ev.Kind {
				case converter.EventMessage:
					if verbose {
						fmt.Printf("  %s\n", ev.Message)
					}
				case converter.EventProgress:
					printResult(ev.Result, ev.Done, ev.Total)
				case converter.EventFinish:
					summary = ev.Summary
				}
			default:
				break drain
			}
		}
	}
	return summary
}

func printResult(r *converter.Result, done, total int) {
	name := filepath.Base(r.FilePath)
	if r.Success {
		note := ""
		if r.Sanitized {
			note = " (sanitized)"
		}
		fmt.Printf("  [%d/%d] ✓ %s -> %s%s\n", done, total, name, filepath.Base(r.OutputFile), note)
		return
	}
	fmt.Printf("  [%d/%d] ✗ %s: %v\n", done, total, name, r.Error)
}

// writeRunReports writes the XLSX report and the text logs. Failures here
// are logged and never change the outcome of the run.
func writeRunReports(cfg *config.Config, summary *converter.Summary, log *zap.SugaredLogger) {
	if cfg.ReportEnabled() {
		path, err := report.WriteXLSX(summary, cfg.ReportDir())
		if err != nil {
			log.Errorf("Failed to write report: %v", err)
		} else if path != "" {
			fmt.Printf("\nReport written to %s\n", path)
		}
	}

	if _, err := report.WriteSummaryLog(summary, cfg.OutputDir); err != nil {
		log.Errorf("Failed to write summary log: %v", err)
	}

	if summary.Failed > 0 {
		if _, err := report.WriteErrorLog(summary, cfg.OutputDir); err != nil {
			log.Errorf("Failed to write error log: %v", err)
			return
		}
		fmt.Println("\nErrors have been logged to the output directory.")
	}
}
