// =============================================================================
// NF-e to DANFE Converter - Rename Command
// =============================================================================
//
// This file defines the 'rename' command, which renames invoice files by
// access key.
//
// COMMAND USAGE:
//   danfe rename --dir ./pdf --mapping nomes.xlsx
//   danfe rename --dir ./pdf --keys chaves.txt --names nomes.txt --dry-run
//
// MAPPING SOURCES:
//   --mapping : Two-column CSV or XLSX (key, name). A header row is skipped.
//   --keys    : One access key per line, paired by position with --names.
//
// Every file directly inside --dir whose name contains a key is renamed to
// the paired name, keeping its extension.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/rename"
	"github.com/spf13/cobra"
)

var renameFlags struct {
	dir     string
	mapping string
	keys    string
	names   string
	dryRun  bool
}

var renameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Rename XML and PDF files by access key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRename()
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)

	f := renameCmd.Flags()
	f.StringVar(&renameFlags.dir, "dir", "", "Directory holding the files to rename")
	f.StringVar(&renameFlags.mapping, "mapping", "", "CSV or XLSX file with key and name columns")
	f.StringVar(&renameFlags.keys, "keys", "", "Text file with one access key per line")
	f.StringVar(&renameFlags.names, "names", "", "Text file with one file name per line")
	f.BoolVar(&renameFlags.dryRun, "dry-run", false, "Show the plan without renaming")
	renameCmd.MarkFlagRequired("dir")
}

func runRename() error {
	_, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	entries, err := loadEntries()
	if err != nil {
		return err
	}

	fmt.Println("=== NF-e File Renamer ===")
	fmt.Printf("Entries: %d\n", len(entries))

	items, err := rename.Plan(renameFlags.dir, entries)
	if err != nil {
		return err
	}

	summary := rename.Apply(items, renameFlags.dryRun, log)

	for _, it := range items {
		fmt.Printf("  %-44s  %s\n", it.Key, it.Status)
	}

	title := "=== Rename Complete ==="
	if renameFlags.dryRun {
		title = "=== Rename Plan (dry run) ==="
	}
	fmt.Println("\n" + title)
	fmt.Printf("Renamed:         %d\n", summary.Renamed)
	fmt.Printf("Not found:       %d\n", summary.NotFound)
	fmt.Printf("Invalid keys:    %d\n", summary.Invalid)
	fmt.Printf("Errors:          %d\n", summary.Errors)
	return nil
}

func loadEntries() ([]rename.Entry, error) {
	switch {
	case renameFlags.mapping != "":
		return rename.Load(renameFlags.mapping)
	case renameFlags.keys != "" && renameFlags.names != "":
		keys, err := readLines(renameFlags.keys)
		if err != nil {
			return nil, err
		}
		names, err := readLines(renameFlags.names)
		if err != nil {
			return nil, err
		}
		return rename.FromLists(keys, names)
	}
	return nil, errors.New("provide --mapping, or both --keys and --names")
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), nil
}
