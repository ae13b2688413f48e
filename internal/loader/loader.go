// Package loader reads control definitions, CCI mappings, and tier
// assignments from their file sources into the in-memory model.
//
// Load failures come in two flavors: an unreadable or unparseable source is
// fatal and returned as an error; a single malformed record is skipped and
// collected as a Warning so one bad row never sinks the run.
package loader

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/stigtools/stigsheets/internal/models"
	"github.com/stigtools/stigsheets/pkg/logger"
)

// Warning records a skipped record and why it was skipped.
type Warning struct {
	Source string // which input produced it: "controls", "cci", "tiers"
	Record string // identifier or position of the offending record
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: record %s: %s", w.Source, w.Record, w.Reason)
}

// Loader reads the three input sources. Zero value is not usable; use New.
type Loader struct {
	log      logger.Logger
	warnings []Warning
}

// New creates a Loader that reports skipped records through log.
func New(log logger.Logger) *Loader {
	return &Loader{log: log}
}

// Warnings returns every per-record problem collected so far, in order.
func (l *Loader) Warnings() []Warning {
	return l.warnings
}

func (l *Loader) warn(source, record, reason string) {
	l.warnings = append(l.warnings, Warning{Source: source, Record: record, Reason: reason})
	l.log.Warn("skipping record", "source", source, "record", record, "reason", reason)
}

// controlRecord mirrors the field names of the published controls JSON.
type controlRecord struct {
	Identifier string `json:"Control Identifier"`
	Name       string `json:"Control (or Control Enhancement) Name"`
	Text       string `json:"Control Text"`
	Discussion string `json:"Discussion"`
	Related    string `json:"Related Controls"`
}

// cciRecord mirrors the field names of the published CCI mapping JSON.
type cciRecord struct {
	Index       string `json:"Index"`
	Control     string `json:"Control"`
	Number      string `json:"CCI Number"`
	Description string `json:"Description"`
}

// LoadControls reads a controls JSON array and returns a lookup keyed by
// normalized control ID. Records with a missing or unnormalizable
// identifier are skipped with a warning.
func (l *Loader) LoadControls(path string) (map[string]models.Control, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from user flags
	if err != nil {
		return nil, fmt.Errorf("reading controls file: %w", err)
	}

	var records []controlRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing controls JSON %s: %w", path, err)
	}

	controls := make(map[string]models.Control, len(records))
	for i, rec := range records {
		if strings.TrimSpace(rec.Identifier) == "" {
			l.warn("controls", fmt.Sprintf("#%d", i), `missing field "Control Identifier"`)
			continue
		}
		id, err := models.NormalizeControlID(rec.Identifier)
		if err != nil {
			l.warn("controls", rec.Identifier, err.Error())
			continue
		}
		controls[id] = models.Control{
			ID:              id,
			Name:            rec.Name,
			Text:            rec.Text,
			Discussion:      rec.Discussion,
			RelatedControls: splitRelated(rec.Related),
		}
	}

	l.log.Info("loaded controls", "path", path, "count", len(controls))
	return controls, nil
}

// LoadCCIs reads a CCI mapping JSON array and returns a lookup keyed by the
// normalized owning control ID. Mappings whose control reference cannot be
// normalized are skipped with a warning; mappings referencing a control that
// was never loaded stay in the lookup and are simply never joined.
func (l *Loader) LoadCCIs(path string) (map[string][]models.CCIMapping, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from user flags
	if err != nil {
		return nil, fmt.Errorf("reading CCI file: %w", err)
	}

	var records []cciRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing CCI JSON %s: %w", path, err)
	}

	ccis := make(map[string][]models.CCIMapping)
	total := 0
	for i, rec := range records {
		if strings.TrimSpace(rec.Control) == "" {
			l.warn("cci", fmt.Sprintf("#%d", i), `missing field "Control"`)
			continue
		}
		id, err := models.NormalizeControlID(rec.Control)
		if err != nil {
			l.warn("cci", rec.Control, err.Error())
			continue
		}
		ccis[id] = append(ccis[id], models.CCIMapping{
			Number:      rec.Number,
			ControlID:   id,
			Index:       rec.Index,
			Description: rec.Description,
		})
		total++
	}

	l.log.Info("loaded CCI mappings", "path", path, "controls", len(ccis), "mappings", total)
	return ccis, nil
}

// LoadTiers reads a tier assignment source, dispatching on file extension:
// .csv or .xlsx for the tabular form, .yaml/.yml for a YAML map, anything
// else JSON. Control IDs are kept raw; normalization happens at aggregation
// so that warnings can cite the authored spelling.
func (l *Loader) LoadTiers(path string) (models.TierSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from user flags
	if err != nil {
		return models.TierSet{}, fmt.Errorf("reading tier file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ts, err := parseTiersCSV(data)
		if err != nil {
			return models.TierSet{}, fmt.Errorf("parsing tier CSV %s: %w", path, err)
		}
		return ts, nil
	case ".xlsx", ".xls":
		ts, err := parseTiersXLSX(data)
		if err != nil {
			return models.TierSet{}, fmt.Errorf("parsing tier workbook %s: %w", path, err)
		}
		return ts, nil
	case ".yaml", ".yml":
		ts, err := parseTiersYAML(data)
		if err != nil {
			return models.TierSet{}, fmt.Errorf("parsing tier YAML %s: %w", path, err)
		}
		return ts, nil
	default:
		ts, err := ParseTiersJSON(data)
		if err != nil {
			return models.TierSet{}, fmt.Errorf("parsing tier JSON %s: %w", path, err)
		}
		return ts, nil
	}
}

// ParseTiersJSON parses a JSON object of tier name -> control ID list,
// preserving the author's key order. The embedded default assignment goes
// through here too.
func ParseTiersJSON(data []byte) (models.TierSet, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return models.TierSet{}, fmt.Errorf("reading JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return models.TierSet{}, fmt.Errorf("tier JSON must be an object of name -> control list")
	}

	var ts models.TierSet
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return models.TierSet{}, fmt.Errorf("reading tier name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return models.TierSet{}, fmt.Errorf("unexpected tier name token %v", keyTok)
		}

		var ids []string
		if err := dec.Decode(&ids); err != nil {
			return models.TierSet{}, fmt.Errorf("reading controls for tier %q: %w", name, err)
		}
		ts.Tiers = append(ts.Tiers, models.Tier{Name: name, ControlIDs: ids})
	}

	if _, err := dec.Token(); err != nil {
		return models.TierSet{}, fmt.Errorf("reading JSON: %w", err)
	}
	return ts, nil
}

// parseTiersCSV parses the tabular form: column headers are tier names,
// each non-empty cell below a header is a control ID in that tier.
func parseTiersCSV(data []byte) (models.TierSet, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // ragged rows are fine, blanks are skipped anyway

	header, err := r.Read()
	if err != nil {
		return models.TierSet{}, fmt.Errorf("reading header row: %w", err)
	}

	tiers := make([]models.Tier, len(header))
	for i, name := range header {
		tiers[i] = models.Tier{Name: strings.TrimSpace(name)}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.TierSet{}, fmt.Errorf("reading row: %w", err)
		}
		for col, cell := range row {
			if col >= len(tiers) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			tiers[col].ControlIDs = append(tiers[col].ControlIDs, cell)
		}
	}

	return models.TierSet{Tiers: tiers}, nil
}

// parseTiersXLSX parses the tabular form out of the first sheet of a
// workbook, same column layout as the CSV form.
func parseTiersXLSX(data []byte) (models.TierSet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return models.TierSet{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return models.TierSet{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return models.TierSet{}, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return models.TierSet{}, fmt.Errorf("sheet %q has no header row", sheets[0])
	}

	tiers := make([]models.Tier, len(rows[0]))
	for i, name := range rows[0] {
		tiers[i] = models.Tier{Name: strings.TrimSpace(name)}
	}

	for _, row := range rows[1:] {
		for col, cell := range row {
			if col >= len(tiers) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			tiers[col].ControlIDs = append(tiers[col].ControlIDs, cell)
		}
	}

	return models.TierSet{Tiers: tiers}, nil
}

// parseTiersYAML parses a YAML map of tier name -> control ID list,
// preserving document order.
func parseTiersYAML(data []byte) (models.TierSet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return models.TierSet{}, err
	}
	if len(doc.Content) == 0 {
		return models.TierSet{}, fmt.Errorf("empty document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return models.TierSet{}, fmt.Errorf("tier YAML must be a map of name -> control list")
	}

	var ts models.TierSet
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]

		var ids []string
		if err := valNode.Decode(&ids); err != nil {
			return models.TierSet{}, fmt.Errorf("reading controls for tier %q: %w", keyNode.Value, err)
		}
		ts.Tiers = append(ts.Tiers, models.Tier{Name: keyNode.Value, ControlIDs: ids})
	}

	return ts, nil
}

// splitRelated turns the comma-separated "Related Controls" field into a
// slice, dropping empties. References are kept as authored; they do not
// participate in aggregation.
func splitRelated(related string) []string {
	if strings.TrimSpace(related) == "" {
		return nil
	}
	parts := strings.Split(related, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
