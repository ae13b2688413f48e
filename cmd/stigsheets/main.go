// Package main is the entry point for the stigsheets CLI.
// stigsheets joins NIST 800-53 control definitions and CCI mappings against
// a defense-level tier assignment and generates a multi-sheet reference
// workbook with per-tier detail and summary charts.
package main

import (
	"os"

	"github.com/stigtools/stigsheets/pkg/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}
