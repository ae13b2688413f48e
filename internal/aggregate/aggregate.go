// Package aggregate joins tier assignments against the control and CCI
// lookups and produces the statistics the report formats render.
package aggregate

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stigtools/stigsheets/internal/models"
	"github.com/stigtools/stigsheets/pkg/logger"
)

// ResolvedControl is one row of a tier sheet: a control that survived the
// join, with its CCI mappings attached.
type ResolvedControl struct {
	Control models.Control      `json:"control"`
	CCIs    []models.CCIMapping `json:"ccis,omitempty"`
	Family  string              `json:"family"`
}

// CCICount returns how many CCI mappings this control carries.
func (rc *ResolvedControl) CCICount() int {
	return len(rc.CCIs)
}

// CCINumbers returns the mapping numbers in load order, for rendering.
func (rc *ResolvedControl) CCINumbers() []string {
	nums := make([]string, len(rc.CCIs))
	for i, cci := range rc.CCIs {
		nums[i] = cci.Number
	}
	return nums
}

// TierStats holds one tier's resolved controls and rollups. Controls keep
// the tier's input order; duplicates in the input are counted each time
// they appear.
type TierStats struct {
	Name           string            `json:"name"`
	Controls       []ResolvedControl `json:"controls"`
	DroppedIDs     []string          `json:"dropped_ids,omitempty"`
	TotalControls  int               `json:"total_controls"`
	TotalCCIs      int               `json:"total_ccis"`
	FamilyControls map[string]int    `json:"family_controls"`
	FamilyCCIs     map[string]int    `json:"family_ccis"`
}

// Dropped returns how many tier entries referenced an unknown control,
// one per occurrence.
func (ts *TierStats) Dropped() int {
	return len(ts.DroppedIDs)
}

// AvgCCIs returns the mean CCI count per resolved control, 0 for an
// empty tier.
func (ts *TierStats) AvgCCIs() float64 {
	if ts.TotalControls == 0 {
		return 0
	}
	return float64(ts.TotalCCIs) / float64(ts.TotalControls)
}

// Summary is the full aggregation result for one run.
type Summary struct {
	RunID           string                    `json:"run_id"`
	GeneratedAt     time.Time                 `json:"generated_at"`
	Tiers           []TierStats               `json:"tiers"`
	TotalTiers      int                       `json:"total_tiers"`
	UniqueControls  int                       `json:"unique_controls"`
	Families        []string                  `json:"families"`
	FamilyMatrix    map[string]map[string]int `json:"family_matrix"`     // family -> tier -> control count
	FamilyCCIMatrix map[string]map[string]int `json:"family_cci_matrix"` // family -> tier -> CCI count
}

// TierNames returns the tier names in report order.
func (s *Summary) TierNames() []string {
	names := make([]string, len(s.Tiers))
	for i := range s.Tiers {
		names[i] = s.Tiers[i].Name
	}
	return names
}

// FamilyTotal sums a family's control count across all tiers.
func (s *Summary) FamilyTotal(family string) int {
	total := 0
	for _, count := range s.FamilyMatrix[family] {
		total += count
	}
	return total
}

// FamilyCCITotal sums a family's CCI count across all tiers.
func (s *Summary) FamilyCCITotal(family string) int {
	total := 0
	for _, count := range s.FamilyCCIMatrix[family] {
		total += count
	}
	return total
}

// Aggregator performs the tier/control/CCI join.
type Aggregator struct {
	log      logger.Logger
	controls map[string]models.Control
	ccis     map[string][]models.CCIMapping
}

// New creates an Aggregator over already-loaded lookups.
func New(controls map[string]models.Control, ccis map[string][]models.CCIMapping, log logger.Logger) *Aggregator {
	return &Aggregator{
		log:      log,
		controls: controls,
		ccis:     ccis,
	}
}

// Aggregate joins every tier in the set against the lookups.
//
// Join policy: a tier entry that normalizes to an unknown control ID is
// dropped and counted, once per occurrence. A control listed by several
// tiers counts independently in each tier's statistics but once in the
// global unique-controls figure. Unnormalizable entries are dropped the
// same way unknown ones are.
func (a *Aggregator) Aggregate(tiers models.TierSet) *Summary {
	summary := &Summary{
		RunID:           uuid.NewString(),
		GeneratedAt:     time.Now().UTC(),
		TotalTiers:      len(tiers.Tiers),
		FamilyMatrix:    make(map[string]map[string]int),
		FamilyCCIMatrix: make(map[string]map[string]int),
	}

	unique := make(map[string]struct{})
	familySet := make(map[string]struct{})

	for _, tier := range tiers.Tiers {
		stats := TierStats{
			Name:           tier.Name,
			FamilyControls: make(map[string]int),
			FamilyCCIs:     make(map[string]int),
		}

		for _, raw := range tier.ControlIDs {
			id, err := models.NormalizeControlID(raw)
			if err != nil {
				stats.DroppedIDs = append(stats.DroppedIDs, raw)
				a.log.Warn("dropping tier entry", "tier", tier.Name, "id", raw, "reason", err.Error())
				continue
			}

			control, ok := a.controls[id]
			if !ok {
				stats.DroppedIDs = append(stats.DroppedIDs, raw)
				a.log.Warn("dropping tier entry", "tier", tier.Name, "id", id, "reason", "no matching control")
				continue
			}

			family := models.ControlFamily(id)
			resolved := ResolvedControl{
				Control: control,
				CCIs:    a.ccis[id],
				Family:  family,
			}

			stats.Controls = append(stats.Controls, resolved)
			stats.TotalControls++
			stats.TotalCCIs += resolved.CCICount()
			stats.FamilyControls[family]++
			stats.FamilyCCIs[family] += resolved.CCICount()

			unique[id] = struct{}{}
			familySet[family] = struct{}{}
		}

		for family, count := range stats.FamilyControls {
			if summary.FamilyMatrix[family] == nil {
				summary.FamilyMatrix[family] = make(map[string]int)
			}
			summary.FamilyMatrix[family][tier.Name] = count
		}
		for family, count := range stats.FamilyCCIs {
			if summary.FamilyCCIMatrix[family] == nil {
				summary.FamilyCCIMatrix[family] = make(map[string]int)
			}
			summary.FamilyCCIMatrix[family][tier.Name] = count
		}

		summary.Tiers = append(summary.Tiers, stats)

		a.log.Info("aggregated tier",
			"tier", tier.Name,
			"controls", stats.TotalControls,
			"ccis", stats.TotalCCIs,
			"dropped", stats.Dropped(),
		)
	}

	summary.UniqueControls = len(unique)

	summary.Families = make([]string, 0, len(familySet))
	for family := range familySet {
		summary.Families = append(summary.Families, family)
	}
	sort.Strings(summary.Families)

	return summary
}
