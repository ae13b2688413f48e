package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stigtools/stigsheets/internal/aggregate"
	"github.com/stigtools/stigsheets/internal/models"
	"github.com/stigtools/stigsheets/pkg/logger"
	"github.com/stigtools/stigsheets/pkg/pathutil"
)

// CSVGenerator renders the aggregation as a directory of CSV files:
// summary.csv, families.csv, one file per tier, and with detailed mode one
// CCI-detail file per tier.
type CSVGenerator struct {
	logger logger.Logger
}

// NewCSVGenerator creates a csv report generator.
func NewCSVGenerator(log logger.Logger) *CSVGenerator {
	return &CSVGenerator{logger: log}
}

// Name returns the format identifier.
func (g *CSVGenerator) Name() string { return "csv" }

// Description returns a human-readable description.
func (g *CSVGenerator) Description() string {
	return "Directory of CSV files: summary, family matrices, and one file per tier"
}

// Generate writes every CSV into a staging directory, then renames it onto
// outputPath so a failed run leaves nothing behind.
func (g *CSVGenerator) Generate(summary *aggregate.Summary, opts Options, outputPath string) error {
	staging, err := os.MkdirTemp(filepath.Dir(outputPath), ".stigsheets-csv-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := g.writeSummaryCSV(filepath.Join(staging, "summary.csv"), summary); err != nil {
		return err
	}
	if err := g.writeFamiliesCSV(filepath.Join(staging, "families.csv"), summary); err != nil {
		return err
	}

	for i := range summary.Tiers {
		tier := &summary.Tiers[i]
		name := tierFileName(tier.Name)
		if err := g.writeTierCSV(filepath.Join(staging, name+".csv"), tier); err != nil {
			return fmt.Errorf("tier %q: %w", tier.Name, err)
		}
		if opts.DetailedCCI {
			if err := g.writeCCIDetailCSV(filepath.Join(staging, name+"_ccis.csv"), tier); err != nil {
				return fmt.Errorf("tier %q CCI detail: %w", tier.Name, err)
			}
		}
	}

	// Replace a leftover directory from a prior run, then move into place.
	if err := os.RemoveAll(outputPath); err != nil {
		return fmt.Errorf("clearing output directory: %w", err)
	}
	if err := os.Rename(staging, outputPath); err != nil {
		return fmt.Errorf("moving output into place: %w", err)
	}

	g.logger.Info("wrote CSV report", "path", outputPath, "tiers", len(summary.Tiers))
	return nil
}

func (g *CSVGenerator) writeSummaryCSV(path string, summary *aggregate.Summary) error {
	rows := [][]string{{"Level", "Total Controls", "Total CCIs", "Avg CCIs/Control", "Dropped"}}
	for i := range summary.Tiers {
		tier := &summary.Tiers[i]
		rows = append(rows, []string{
			tier.Name,
			strconv.Itoa(tier.TotalControls),
			strconv.Itoa(tier.TotalCCIs),
			strconv.FormatFloat(tier.AvgCCIs(), 'f', 2, 64),
			strconv.Itoa(tier.Dropped()),
		})
	}
	rows = append(rows, []string{
		fmt.Sprintf("TOTAL (%d tiers, %d unique controls)", summary.TotalTiers, summary.UniqueControls),
		"", "", "", "",
	})
	return writeCSVFile(path, rows)
}

func (g *CSVGenerator) writeFamiliesCSV(path string, summary *aggregate.Summary) error {
	header := []string{"Table", "Family", "Family Name"}
	header = append(header, summary.TierNames()...)
	header = append(header, "Total")

	rows := [][]string{header}
	appendMatrix := func(table string, matrix map[string]map[string]int, total func(string) int) {
		for _, family := range summary.Families {
			row := []string{table, family, models.FamilyName(family)}
			for i := range summary.Tiers {
				row = append(row, strconv.Itoa(matrix[family][summary.Tiers[i].Name]))
			}
			row = append(row, strconv.Itoa(total(family)))
			rows = append(rows, row)
		}
	}
	appendMatrix("controls", summary.FamilyMatrix, summary.FamilyTotal)
	appendMatrix("ccis", summary.FamilyCCIMatrix, summary.FamilyCCITotal)

	return writeCSVFile(path, rows)
}

func (g *CSVGenerator) writeTierCSV(path string, tier *aggregate.TierStats) error {
	rows := [][]string{{"Control ID", "Control Name", "Control Text", "CCI Numbers", "CCI Count", "Family"}}
	for i := range tier.Controls {
		rc := &tier.Controls[i]
		ccis := strings.Join(rc.CCINumbers(), ", ")
		if ccis == "" {
			ccis = "N/A"
		}
		rows = append(rows, []string{
			rc.Control.ID,
			orNA(rc.Control.Name),
			truncate(orNA(rc.Control.Text), maxControlText),
			ccis,
			strconv.Itoa(rc.CCICount()),
			rc.Family,
		})
	}
	return writeCSVFile(path, rows)
}

func (g *CSVGenerator) writeCCIDetailCSV(path string, tier *aggregate.TierStats) error {
	rows := [][]string{{"Control ID", "Control Name", "CCI Number", "CCI Description"}}
	for i := range tier.Controls {
		rc := &tier.Controls[i]
		if len(rc.CCIs) == 0 {
			rows = append(rows, []string{rc.Control.ID, orNA(rc.Control.Name), "N/A", "No CCIs mapped"})
			continue
		}
		for _, cci := range rc.CCIs {
			rows = append(rows, []string{rc.Control.ID, orNA(rc.Control.Name), cci.Number, truncate(cci.Description, maxCCIDescText)})
		}
	}
	return writeCSVFile(path, rows)
}

func writeCSVFile(path string, rows [][]string) error {
	f, err := os.Create(path) //nolint:gosec // Path is inside our staging directory
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// tierFileName turns a tier name into a filesystem-friendly file stem.
func tierFileName(name string) string {
	s := pathutil.SafeSheetName(name, 64)
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
