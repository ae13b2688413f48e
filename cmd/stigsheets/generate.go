package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stigtools/stigsheets/internal/aggregate"
	"github.com/stigtools/stigsheets/internal/config"
	"github.com/stigtools/stigsheets/internal/loader"
	"github.com/stigtools/stigsheets/internal/models"
	"github.com/stigtools/stigsheets/internal/report"
	"github.com/stigtools/stigsheets/internal/ui"
	"github.com/stigtools/stigsheets/pkg/logger"
	"github.com/stigtools/stigsheets/pkg/pathutil"
)

func newGenerateCommand() *cobra.Command {
	var (
		configFile  string
		tiersPath   string
		controls    string
		cci         string
		output      string
		formatFlag  string
		detailedCCI bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the control level reference report",
		Example: `  # Built-in defense levels, default controls and CCI data
  stigsheets generate

  # Levels from a CSV with one column per level
  stigsheets generate --input levels.csv --output levels.xlsx

  # Per-CCI detail sheets and a JSON dump alongside the workbook
  stigsheets generate --detailed-cci --format xlsx,json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, configFile, &flagValues{
				tiersPath:   tiersPath,
				controls:    controls,
				cci:         cci,
				output:      output,
				formats:     formatFlag,
				detailedCCI: detailedCCI,
			})
			if err != nil {
				return err
			}
			return runGenerate(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "YAML run configuration file")
	cmd.Flags().StringVarP(&tiersPath, "input", "i", "", "Tier assignment source (JSON, CSV, or YAML); embedded defaults when unset")
	cmd.Flags().StringVarP(&controls, "controls", "c", "", "Controls JSON file")
	cmd.Flags().StringVar(&cci, "cci", "", "CCI mappings JSON file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path for the report")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Report format(s): "+strings.Join(report.ListFormats(), ","))
	cmd.Flags().BoolVar(&detailedCCI, "detailed-cci", false, "Add a per-CCI detail view for every tier")

	return cmd
}

// flagValues carries the generate flags so they can override file config.
type flagValues struct {
	tiersPath   string
	controls    string
	cci         string
	output      string
	formats     string
	detailedCCI bool
}

// resolveConfig layers the three configuration sources: defaults, then the
// YAML file, then any flag the user actually set.
func resolveConfig(cmd *cobra.Command, configFile string, flags *flagValues) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if configFile != "" {
		path, err := pathutil.ValidateConfigPath(configFile)
		if err != nil {
			return nil, err
		}
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded run config", "path", path)
	}

	if cmd.Flags().Changed("input") {
		cfg.TiersPath = flags.tiersPath
	}
	if cmd.Flags().Changed("controls") {
		cfg.ControlsPath = flags.controls
	}
	if cmd.Flags().Changed("cci") {
		cfg.CCIPath = flags.cci
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputPath = flags.output
	}
	if cmd.Flags().Changed("format") {
		cfg.Formats = splitFormats(flags.formats)
	}
	if cmd.Flags().Changed("detailed-cci") {
		cfg.DetailedCCI = flags.detailedCCI
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitFormats(raw string) []string {
	parts := strings.Split(raw, ",")
	formats := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			formats = append(formats, p)
		}
	}
	return formats
}

func runGenerate(cmd *cobra.Command, cfg *config.Config) error {
	log := logger.GetGlobalLogger()
	l := loader.New(log)

	controlsPath, err := pathutil.ValidateInputPath(cfg.ControlsPath)
	if err != nil {
		return err
	}
	controls, err := l.LoadControls(controlsPath)
	if err != nil {
		return err
	}

	cciPath, err := pathutil.ValidateInputPath(cfg.CCIPath)
	if err != nil {
		return err
	}
	ccis, err := l.LoadCCIs(cciPath)
	if err != nil {
		return err
	}

	tiers, err := loadTiers(l, cfg)
	if err != nil {
		return err
	}

	summary := aggregate.New(controls, ccis, log).Aggregate(tiers)

	opts := report.Options{DetailedCCI: cfg.DetailedCCI}
	for _, name := range cfg.Formats {
		format, err := report.GetFormat(name, log)
		if err != nil {
			return err
		}

		outputPath, err := outputPathFor(name, cfg.OutputPath)
		if err != nil {
			return err
		}

		if err := format.Generate(summary, opts, outputPath); err != nil {
			return fmt.Errorf("generating %s report: %w", name, err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSummary(summary, l.Warnings(), cfg.OutputPath))
	return nil
}

func loadTiers(l *loader.Loader, cfg *config.Config) (models.TierSet, error) {
	if cfg.TiersPath == "" {
		logger.Info("using embedded default tier assignment")
		return loader.ParseTiersJSON(config.DefaultTierData())
	}

	path, err := pathutil.ValidateInputPath(cfg.TiersPath)
	if err != nil {
		return models.TierSet{}, err
	}
	return l.LoadTiers(path)
}

// outputPathFor adjusts the configured output path per format: the xlsx
// path is used as given, json swaps the extension, and csv drops it to
// name a directory.
func outputPathFor(format, base string) (string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var path string
	switch format {
	case "xlsx":
		path = base
	case "json":
		path = stem + ".json"
	case "csv":
		path = stem
		return path, nil // directory target, parent checked by the generator
	default:
		path = base
	}

	return pathutil.ValidateOutputPath(path)
}
