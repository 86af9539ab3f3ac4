// =============================================================================
// NF-e to DANFE Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI.
//
// COBRA CLI STRUCTURE:
//   rootCmd (danfe)
//   ├── convertCmd (danfe convert)
//   ├── renameCmd  (danfe rename)
//   └── versionCmd (danfe version)
//
// The root command owns the global flags (--config, --verbose) and the
// interrupt-aware context every subcommand runs under.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/config"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "danfe",
	Short: "NF-e to DANFE Converter - Print Brazilian electronic invoices as PDF",
	Long: `The NF-e to DANFE converter reads authorized NF-e XML files and prints
their DANFE (the auxiliary document of the electronic invoice) as PDF through an
HTML template and a headless Chrome.

Key Features:
  - Recursive batch conversion with a per-run XLSX report
  - Multi-page item tables with a repeated page header
  - Sanitized second render pass when Chrome fails on a document
  - Access key based renaming of XML and PDF files

Example Usage:
  danfe convert --source ./xml --output ./pdf
  danfe convert --file ./xml/nota.xml --dry-run
  danfe rename --dir ./pdf --mapping nomes.xlsx`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main(). SIGINT and SIGTERM
// cancel the command context; a batch stops before its next file.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (a missing file uses defaults)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// setup loads the configuration and builds the logger for a subcommand.
func setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
