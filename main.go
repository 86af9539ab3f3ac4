// =============================================================================
// NF-e to DANFE Converter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the danfe CLI. It delegates command
// execution to the cmd package.
//
// USAGE:
//   danfe convert       - Convert every NF-e XML in the source directory
//   danfe rename        - Rename XML/PDF files by access key
//   danfe version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : XML access, extraction, composition, rendering
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/cmd"
)

func main() {
	cmd.Execute()
}
