package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/stigtools/stigsheets/internal/aggregate"
	"github.com/stigtools/stigsheets/internal/models"
	"github.com/stigtools/stigsheets/pkg/logger"
	"github.com/stigtools/stigsheets/pkg/pathutil"
)

// Workbook color scheme, carried over from the reference sheets this tool
// replaces so regenerated workbooks look familiar.
const (
	summaryHeaderColor   = "1565C0" // blue
	summarySubheadColor  = "42A5F5" // light blue
	tierHeaderColor      = "2E7D32" // green
	cciDetailHeaderColor = "7B1FA2" // purple

	maxSheetNameLen = 31
	maxControlText  = 1000
	maxCCIDescText  = 500
)

// XLSXGenerator renders the multi-sheet Excel workbook: a summary sheet
// with tables and charts, one sheet per tier, and optionally a per-CCI
// detail sheet per tier.
type XLSXGenerator struct {
	logger logger.Logger
}

// NewXLSXGenerator creates an xlsx report generator.
func NewXLSXGenerator(log logger.Logger) *XLSXGenerator {
	return &XLSXGenerator{logger: log}
}

// Name returns the format identifier.
func (g *XLSXGenerator) Name() string { return "xlsx" }

// Description returns a human-readable description.
func (g *XLSXGenerator) Description() string {
	return "Excel workbook with summary charts, per-tier sheets, and optional CCI detail"
}

// Generate builds the workbook in memory and moves it into place only when
// every sheet rendered cleanly.
func (g *XLSXGenerator) Generate(summary *aggregate.Summary, opts Options, outputPath string) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			g.logger.Warn("closing workbook", "error", err)
		}
	}()

	// The default sheet becomes the summary so it lands first in the tab
	// order without re-indexing.
	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}

	for i := range summary.Tiers {
		tier := &summary.Tiers[i]
		if err := g.writeTierSheet(f, tier); err != nil {
			return fmt.Errorf("tier sheet %q: %w", tier.Name, err)
		}
		if opts.DetailedCCI {
			if err := g.writeCCIDetailSheet(f, tier); err != nil {
				return fmt.Errorf("CCI detail sheet %q: %w", tier.Name, err)
			}
		}
	}

	if err := g.writeSummarySheet(f, summary); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}

	if err := writeAtomically(outputPath, f); err != nil {
		return err
	}

	g.logger.Info("wrote workbook", "path", outputPath, "tiers", len(summary.Tiers), "detailed_cci", opts.DetailedCCI)
	return nil
}

// headerStyle builds the bold-white-on-color header cell style.
func headerStyle(f *excelize.File, color string, size float64, wrap bool) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Size: size},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   wrap,
		},
		Border: thinBorder(),
	})
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Style: 1},
		{Type: "right", Style: 1},
		{Type: "top", Style: 1},
		{Type: "bottom", Style: 1},
	}
}

func (g *XLSXGenerator) writeTierSheet(f *excelize.File, tier *aggregate.TierStats) error {
	sheet := sheetName(tier.Name)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	header, err := headerStyle(f, tierHeaderColor, 11, true)
	if err != nil {
		return err
	}
	body, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return err
	}
	wrapped, err := f.NewStyle(&excelize.Style{
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{WrapText: true},
	})
	if err != nil {
		return err
	}

	headers := []string{"Control ID", "Control Name", "Control Text", "CCI Numbers", "CCI Count", "Family"}
	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "F1", header); err != nil {
		return err
	}

	row := 2
	for i := range tier.Controls {
		rc := &tier.Controls[i]

		ccis := strings.Join(rc.CCINumbers(), ", ")
		if ccis == "" {
			ccis = "N/A"
		}

		values := []any{
			rc.Control.ID,
			orNA(rc.Control.Name),
			truncate(orNA(rc.Control.Text), maxControlText),
			ccis,
			rc.CCICount(),
			rc.Family,
		}
		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}

		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := f.SetCellStyle(sheet, start, end, body); err != nil {
			return err
		}
		for _, col := range []string{"C", "D"} {
			if err := f.SetCellStyle(sheet, col+fmt.Sprint(row), col+fmt.Sprint(row), wrapped); err != nil {
				return err
			}
		}
		row++
	}

	widths := map[string]float64{"A": 15, "B": 40, "C": 60, "D": 50, "E": 12, "F": 10}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}

	return freezeHeaderRow(f, sheet)
}

func (g *XLSXGenerator) writeCCIDetailSheet(f *excelize.File, tier *aggregate.TierStats) error {
	sheet := sheetName(truncate(tier.Name, 25) + " CCIs")
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	header, err := headerStyle(f, cciDetailHeaderColor, 11, false)
	if err != nil {
		return err
	}
	body, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return err
	}
	wrapped, err := f.NewStyle(&excelize.Style{
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{WrapText: true},
	})
	if err != nil {
		return err
	}

	if err := setRow(f, sheet, 1, []string{"Control ID", "Control Name", "CCI Number", "CCI Description"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", header); err != nil {
		return err
	}

	row := 2
	writeDetailRow := func(values []any) error {
		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := f.SetCellStyle(sheet, start, end, body); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "D"+fmt.Sprint(row), "D"+fmt.Sprint(row), wrapped); err != nil {
			return err
		}
		row++
		return nil
	}

	for i := range tier.Controls {
		rc := &tier.Controls[i]
		if len(rc.CCIs) == 0 {
			// Controls with no mappings still show up in the detail view.
			if err := writeDetailRow([]any{rc.Control.ID, orNA(rc.Control.Name), "N/A", "No CCIs mapped"}); err != nil {
				return err
			}
			continue
		}
		for _, cci := range rc.CCIs {
			values := []any{rc.Control.ID, orNA(rc.Control.Name), cci.Number, truncate(cci.Description, maxCCIDescText)}
			if err := writeDetailRow(values); err != nil {
				return err
			}
		}
	}

	widths := map[string]float64{"A": 15, "B": 40, "C": 15, "D": 80}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}

	return freezeHeaderRow(f, sheet)
}

func (g *XLSXGenerator) writeSummarySheet(f *excelize.File, summary *aggregate.Summary) error {
	const sheet = "Summary"

	header, err := headerStyle(f, summaryHeaderColor, 12, false)
	if err != nil {
		return err
	}
	subheader, err := headerStyle(f, summarySubheadColor, 12, false)
	if err != nil {
		return err
	}
	body, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return err
	}
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return err
	}
	sectionTitle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}

	if err := f.SetCellValue(sheet, "A1", "STIG Control Level Summary Report"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", title); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", "G1"); err != nil {
		return err
	}

	// Level Overview table.
	if err := f.SetCellValue(sheet, "A3", "Level Overview"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A3", "A3", sectionTitle); err != nil {
		return err
	}
	if err := setRow(f, sheet, 4, []string{"Level", "Total Controls", "Total CCIs", "Avg CCIs/Control"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A4", "D4", header); err != nil {
		return err
	}

	row := 5
	for i := range summary.Tiers {
		tier := &summary.Tiers[i]
		values := []any{
			truncate(tier.Name, 30),
			tier.TotalControls,
			tier.TotalCCIs,
			math.Round(tier.AvgCCIs()*100) / 100,
		}
		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := f.SetCellStyle(sheet, start, end, body); err != nil {
			return err
		}
		row++
	}
	overviewEnd := row - 1

	if err := g.addControlsChart(f, sheet, overviewEnd); err != nil {
		return err
	}

	// Controls-by-family matrix.
	tierNames := summary.TierNames()
	familyHeaders := make([]string, 0, len(tierNames)+3)
	familyHeaders = append(familyHeaders, "Family", "Family Name")
	for _, name := range tierNames {
		familyHeaders = append(familyHeaders, truncate(name, 15))
	}
	familyHeaders = append(familyHeaders, "Total")

	familyStart := overviewEnd + 2
	cell, _ := excelize.CoordinatesToCellName(1, familyStart)
	if err := f.SetCellValue(sheet, cell, "Controls by Family Across Levels"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cell, cell, sectionTitle); err != nil {
		return err
	}

	matrixHeaderRow := familyStart + 1
	firstDataRow := matrixHeaderRow + 1
	if err := g.writeFamilyMatrix(f, sheet, matrixHeaderRow, familyHeaders, header, body, summary, summary.FamilyMatrix); err != nil {
		return err
	}

	if err := g.addFamilyChart(f, sheet, summary, matrixHeaderRow, familyStart); err != nil {
		return err
	}

	// CCI-count-by-family matrix.
	cciStart := firstDataRow + len(summary.Families) + 2
	cell, _ = excelize.CoordinatesToCellName(1, cciStart)
	if err := f.SetCellValue(sheet, cell, "CCI Count by Family Across Levels"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cell, cell, sectionTitle); err != nil {
		return err
	}
	if err := g.writeFamilyMatrix(f, sheet, cciStart+1, familyHeaders, subheader, body, summary, summary.FamilyCCIMatrix); err != nil {
		return err
	}

	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 45); err != nil {
		return err
	}
	for i := range tierNames {
		col, err := excelize.ColumnNumberToName(i + 3)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, 18); err != nil {
			return err
		}
	}

	return nil
}

// writeFamilyMatrix emits one family × tier table: header row at headerRow,
// one data row per family in sorted order, row totals in the last column.
func (g *XLSXGenerator) writeFamilyMatrix(f *excelize.File, sheet string, headerRow int, headers []string, headerStyleID, bodyStyleID int, summary *aggregate.Summary, matrix map[string]map[string]int) error {
	if err := setRow(f, sheet, headerRow, headers); err != nil {
		return err
	}
	start, _ := excelize.CoordinatesToCellName(1, headerRow)
	end, _ := excelize.CoordinatesToCellName(len(headers), headerRow)
	if err := f.SetCellStyle(sheet, start, end, headerStyleID); err != nil {
		return err
	}

	row := headerRow + 1
	for _, family := range summary.Families {
		values := []any{family, models.FamilyName(family)}
		rowTotal := 0
		for i := range summary.Tiers {
			count := matrix[family][summary.Tiers[i].Name]
			values = append(values, count)
			rowTotal += count
		}
		values = append(values, rowTotal)

		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := f.SetCellStyle(sheet, start, end, bodyStyleID); err != nil {
			return err
		}
		row++
	}

	return nil
}

// addControlsChart places the per-level control count column chart beside
// the overview table.
func (g *XLSXGenerator) addControlsChart(f *excelize.File, sheet string, overviewEnd int) error {
	if overviewEnd < 5 {
		return nil // no tiers, nothing to chart
	}

	return f.AddChart(sheet, "F3", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$4", sheet),
			Categories: fmt.Sprintf("%s!$A$5:$A$%d", sheet, overviewEnd),
			Values:     fmt.Sprintf("%s!$B$5:$B$%d", sheet, overviewEnd),
		}},
		Title: []excelize.RichTextRun{{Text: "Controls per Level"}},
		XAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Level"}}},
		YAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Count"}}},
		Dimension: excelize.ChartDimension{
			Width:  480,
			Height: 320,
		},
	})
}

// addFamilyChart places the stacked family × level chart beside the family
// matrix: one series per family, tiers as categories.
func (g *XLSXGenerator) addFamilyChart(f *excelize.File, sheet string, summary *aggregate.Summary, matrixHeaderRow, anchorRow int) error {
	if len(summary.Families) == 0 || len(summary.Tiers) == 0 {
		return nil
	}

	lastTierCol, err := excelize.ColumnNumberToName(2 + len(summary.Tiers))
	if err != nil {
		return err
	}

	series := make([]excelize.ChartSeries, 0, len(summary.Families))
	for i := range summary.Families {
		dataRow := matrixHeaderRow + 1 + i
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$A$%d", sheet, dataRow),
			Categories: fmt.Sprintf("%s!$C$%d:$%s$%d", sheet, matrixHeaderRow, lastTierCol, matrixHeaderRow),
			Values:     fmt.Sprintf("%s!$C$%d:$%s$%d", sheet, dataRow, lastTierCol, dataRow),
		})
	}

	anchor, err := excelize.CoordinatesToCellName(6, anchorRow)
	if err != nil {
		return err
	}

	return f.AddChart(sheet, anchor, &excelize.Chart{
		Type:   excelize.ColStacked,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: "Control Families by Level"}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Controls"}}},
		Dimension: excelize.ChartDimension{
			Width:  560,
			Height: 380,
		},
	})
}

// setRow writes values left to right starting at column A of the given row.
func setRow[T any](f *excelize.File, sheet string, row int, values []T) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func freezeHeaderRow(f *excelize.File, sheet string) error {
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// sheetName makes a tier name legal as a worksheet title.
func sheetName(name string) string {
	return pathutil.SafeSheetName(name, maxSheetNameLen)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// writeAtomically renders the workbook next to the destination and renames
// it into place, so a failed run never leaves a partial artifact.
func writeAtomically(outputPath string, f *excelize.File) error {
	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, ".stigsheets-*.xlsx")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, outputPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("moving workbook into place: %w", err)
	}
	return nil
}
