package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stigtools/stigsheets/pkg/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func newRootCommand() *cobra.Command {
	var (
		debug     bool
		logFormat string
	)

	root := &cobra.Command{
		Use:   "stigsheets",
		Short: "Generate STIG control level reference sheets with CCI mappings",
		Long: `stigsheets reads NIST 800-53 control definitions and CCI mappings,
joins them against a grouping of controls into defense levels, and emits a
multi-sheet reference report: a summary with charts plus one sheet per level.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.SetupLogger(debug, logFormat)
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")

	root.AddCommand(newGenerateCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stigsheets version %s (built %s)\n", version, buildTime)
		},
	}
}
