// =============================================================================
// NF-e to DANFE Converter - Run Report
// =============================================================================
//
// This module writes the per-run spreadsheet report. Sheets:
//
//   | Sheet               | Content                                         |
//   |---------------------|-------------------------------------------------|
//   | Relatório Conversão | One row per processed file                      |
//   | Estatísticas        | Totals, success rate, sizes and throughput      |
//
// Successful rows are filled green, failed rows red. Column widths follow the
// longest value, capped at 60 characters.
//
// =============================================================================

package report

import (
	"fmt"
	"math"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/converter"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/pkg/utils"
	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	ResultsSheet = "Relatório Conversão"
	StatsSheet   = "Estatísticas"
)

// Colors.
const (
	headerColor      = "366092"
	statsHeaderColor = "FF9800"
	successColor     = "D4EDDA"
	failureColor     = "F8D7DA"
	maxColumnWidth   = 60
)

const displayTime = "02/01/2006 15:04:05"

// ResultColumns are the headers of the results sheet, in order.
var ResultColumns = []string{
	"Chave de Acesso",
	"Nota Fiscal",
	"Sucesso de Conversão",
	"Arquivo XML",
	"Data/Hora Processamento",
	"Pasta Origem",
	"Tamanho Arquivo (KB)",
	"Erro Detalhado",
}

// FileName returns the report file name for a run finished at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("Relatorio_Conversao_NFe_%s.xlsx", t.Format("20060102_150405"))
}

// WriteXLSX writes the run report into dir.
//
// RETURNS:
//   - The report path, or "" when the run processed no file.
//   - An error if the workbook cannot be built or saved.
func WriteXLSX(summary *converter.Summary, dir string) (string, error) {
	if summary == nil || len(summary.Results) == 0 {
		return "", nil
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return "", fmt.Errorf("failed to name results sheet: %w", err)
	}
	if err := writeResults(f, summary); err != nil {
		return "", err
	}

	if _, err := f.NewSheet(StatsSheet); err != nil {
		return "", fmt.Errorf("failed to create stats sheet: %w", err)
	}
	if err := writeStats(f, summary); err != nil {
		return "", err
	}

	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(summary.FinishedAt))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return path, nil
}

// =============================================================================
// RESULTS SHEET
// =============================================================================

func writeResults(f *excelize.File, summary *converter.Summary) error {
	header, err := headerStyle(f, headerColor)
	if err != nil {
		return err
	}
	success, err := rowStyle(f, successColor)
	if err != nil {
		return err
	}
	failure, err := rowStyle(f, failureColor)
	if err != nil {
		return err
	}

	widths := make([]int, len(ResultColumns))
	rows := make([][]interface{}, 0, len(summary.Results)+1)

	head := make([]interface{}, len(ResultColumns))
	for i, c := range ResultColumns {
		head[i] = c
	}
	rows = append(rows, head)

	for _, r := range summary.Results {
		rows = append(rows, resultRow(r))
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		for col, v := range row {
			if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[col] {
				widths[col] = n
			}
		}

		style := header
		if i > 0 {
			style = failure
			if summary.Results[i-1].Success {
				style = success
			}
		}
		if err := styleRow(f, ResultsSheet, i+1, len(ResultColumns), style); err != nil {
			return err
		}
	}

	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		width := w + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(ResultsSheet, name, name, float64(width)); err != nil {
			return err
		}
	}
	return nil
}

func resultRow(r converter.Result) []interface{} {
	status := "Não"
	if r.Success {
		status = "Sim"
	}
	return []interface{}{
		r.AccessKey,
		r.Number,
		status,
		filepath.Base(r.FilePath),
		r.ProcessedAt.Format(displayTime),
		filepath.Dir(r.FilePath),
		round2(float64(r.SizeBytes) / 1024),
		r.ErrorMessage(),
	}
}

// =============================================================================
// STATISTICS SHEET
// =============================================================================

func writeStats(f *excelize.File, summary *converter.Summary) error {
	header, err := headerStyle(f, statsHeaderColor)
	if err != nil {
		return err
	}

	total := len(summary.Results)
	elapsed := summary.Elapsed()

	rate := 0.0
	if total > 0 {
		rate = round2(float64(summary.Succeeded) / float64(total) * 100)
	}
	speed := 0.0
	if elapsed > 0 {
		speed = round2(float64(total) / elapsed.Seconds() * 60)
	}

	rows := [][]interface{}{
		{"Estatística", "Valor"},
		{"Total de Arquivos", total},
		{"Conversões Bem-sucedidas", summary.Succeeded},
		{"Conversões com Erro", summary.Failed},
		{"Taxa de Sucesso (%)", rate},
		{"Tamanho Total Processado (MB)", round2(float64(summary.TotalBytes()) / 1024 / 1024)},
		{"Tempo Total de Processamento (min)", round2(elapsed.Minutes())},
		{"Velocidade Média (arquivos/min)", speed},
		{"Data/Hora Início", summary.StartedAt.Format(displayTime)},
		{"Data/Hora Fim", summary.FinishedAt.Format(displayTime)},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(StatsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write stats row %d: %w", i+1, err)
		}
	}

	if err := styleRow(f, StatsSheet, 1, 2, header); err != nil {
		return err
	}
	if err := f.SetColWidth(StatsSheet, "A", "A", 35); err != nil {
		return err
	}
	return f.SetColWidth(StatsSheet, "B", "B", 25)
}

// =============================================================================
// STYLES
// =============================================================================

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

func headerStyle(f *excelize.File, color string) (int, error) {
	id, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	return id, nil
}

func rowStyle(f *excelize.File, color string) (int, error) {
	id, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Border: thinBorder,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create row style: %w", err)
	}
	return id, nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
