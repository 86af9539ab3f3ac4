package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/converter"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/pkg/utils"
)

const rule = "================================================================================\n"

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// WriteSummaryLog writes a plain text summary of the run into outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary *converter.Summary, outputDir string) (string, error) {
	name := fmt.Sprintf("processing_summary_%s.txt", summary.FinishedAt.Format("20060102_150405"))
	return writeText(filepath.Join(outputDir, name), func(w *bufio.Writer) {
		fmt.Fprintf(w, "NF-e to DANFE Converter - Processing Summary\n%s\n", rule)
		fmt.Fprintf(w, "Run Information:\n"+
			"  Run ID:         %s\n"+
			"  Start Time:     %s\n"+
			"  End Time:       %s\n"+
			"  Duration:       %s\n\n",
			summary.RunID,
			summary.StartedAt.Format("2006-01-02 15:04:05"),
			summary.FinishedAt.Format("2006-01-02 15:04:05"),
			summary.Elapsed().String())
		fmt.Fprintf(w, "Statistics:\n"+
			"  Total Files:    %d\n"+
			"  Successful:     %d\n"+
			"  Failed:         %d\n",
			summary.Total, summary.Succeeded, summary.Failed)
		if summary.Cancelled {
			fmt.Fprintf(w, "  Cancelled:      yes (%d file(s) not processed)\n", summary.Total-len(summary.Results))
		}
		w.WriteString("\n")

		var ok, failed []converter.Result
		for _, r := range summary.Results {
			if r.Success {
				ok = append(ok, r)
			} else {
				failed = append(failed, r)
			}
		}

		if len(ok) > 0 {
			w.WriteString("Successful Files:\n")
			w.WriteString(strings.Repeat("-", 80) + "\n")
			for _, r := range ok {
				fmt.Fprintf(w, "  Input:        %s\n", r.FilePath)
				fmt.Fprintf(w, "  Output:       %s\n", r.OutputFile)
				fmt.Fprintf(w, "  Access Key:   %s\n", r.AccessKey)
				fmt.Fprintf(w, "  Process Time: %s\n\n", r.Duration.String())
			}
		}

		if len(failed) > 0 {
			w.WriteString("Failed Files:\n")
			w.WriteString(strings.Repeat("-", 80) + "\n")
			for _, r := range failed {
				fmt.Fprintf(w, "  File:  %s\n", r.FilePath)
				fmt.Fprintf(w, "  Error: %s\n\n", r.ErrorMessage())
			}
		}

		w.WriteString(rule + "End of Summary\n")
	})
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// WriteErrorLog writes one entry per failed file into outputDir.
//
// RETURNS:
//   - The path to the error log, or "" when nothing failed.
//   - An error if writing fails.
func WriteErrorLog(summary *converter.Summary, outputDir string) (string, error) {
	failures := summary.Failures()
	if len(failures) == 0 {
		return "", nil
	}

	name := fmt.Sprintf("error_log_%s.txt", summary.FinishedAt.Format("20060102_150405"))
	return writeText(filepath.Join(outputDir, name), func(w *bufio.Writer) {
		fmt.Fprintf(w, "NF-e to DANFE Converter - Error Log\n"+
			"Generated: %s\n"+
			"Total Errors: %d\n"+
			"%s\n",
			summary.FinishedAt.Format("2006-01-02 15:04:05"),
			len(failures),
			rule)

		for i, r := range failures {
			fmt.Fprintf(w, "Error #%d\n"+
				"  Timestamp:      %s\n"+
				"  File:           %s\n"+
				"  Message:        %s\n",
				i+1,
				r.ProcessedAt.Format("2006-01-02 15:04:05"),
				r.FilePath,
				r.ErrorMessage())
			if r.AccessKey != "" {
				fmt.Fprintf(w, "  Access Key:     %s\n", r.AccessKey)
			}
			if r.Number != "" {
				fmt.Fprintf(w, "  Invoice:        %s\n", r.Number)
			}
			w.WriteString("\n")
		}

		w.WriteString(rule + "End of Error Log\n")
	})
}

func writeText(path string, body func(w *bufio.Writer)) (string, error) {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	body(w)
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
