package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stigtools/stigsheets/internal/aggregate"
	"github.com/stigtools/stigsheets/pkg/logger"
)

// JSONGenerator dumps the full aggregation result as indented JSON, for
// downstream tooling that wants the numbers without the spreadsheet.
type JSONGenerator struct {
	logger logger.Logger
}

// NewJSONGenerator creates a json report generator.
func NewJSONGenerator(log logger.Logger) *JSONGenerator {
	return &JSONGenerator{logger: log}
}

// Name returns the format identifier.
func (g *JSONGenerator) Name() string { return "json" }

// Description returns a human-readable description.
func (g *JSONGenerator) Description() string {
	return "Full aggregation result as indented JSON"
}

// Generate marshals the summary and moves it into place atomically.
func (g *JSONGenerator) Generate(summary *aggregate.Summary, _ Options, outputPath string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, ".stigsheets-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing summary JSON: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("moving summary JSON into place: %w", err)
	}

	g.logger.Info("wrote JSON report", "path", outputPath, "bytes", len(data))
	return nil
}
