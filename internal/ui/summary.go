// Package ui renders the end-of-run console summary.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stigtools/stigsheets/internal/aggregate"
	"github.com/stigtools/stigsheets/internal/loader"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1565C0")).
			Padding(0, 1)

	tierStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#42A5F5"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB800"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00D26A"))
)

// RenderSummary formats the per-tier rollup, warning counts, and output
// destination for the terminal.
func RenderSummary(summary *aggregate.Summary, warnings []loader.Warning, outputPath string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("STIG Control Level Summary"))
	b.WriteString("\n\n")

	for i := range summary.Tiers {
		tier := &summary.Tiers[i]

		b.WriteString(tierStyle.Render(tier.Name))
		b.WriteString("\n")

		writeStat(&b, "Controls", fmt.Sprintf("%d", tier.TotalControls))
		writeStat(&b, "CCIs", fmt.Sprintf("%d (%.2f avg)", tier.TotalCCIs, tier.AvgCCIs()))
		writeStat(&b, "Families", familyList(tier))
		if tier.Dropped() > 0 {
			writeStat(&b, "Dropped", warnStyle.Render(fmt.Sprintf("%d unknown: %s",
				tier.Dropped(), strings.Join(tier.DroppedIDs, ", "))))
		}
		b.WriteString("\n")
	}

	writeStat(&b, "Tiers", fmt.Sprintf("%d", summary.TotalTiers))
	writeStat(&b, "Unique", fmt.Sprintf("%d controls", summary.UniqueControls))

	if len(warnings) > 0 {
		writeStat(&b, "Warnings", warnStyle.Render(warningCounts(warnings)))
	} else {
		writeStat(&b, "Warnings", okStyle.Render("none"))
	}
	writeStat(&b, "Output", valueStyle.Render(outputPath))

	return b.String()
}

func writeStat(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(label+":"), value)
}

func familyList(tier *aggregate.TierStats) string {
	families := make([]string, 0, len(tier.FamilyControls))
	for family := range tier.FamilyControls {
		families = append(families, family)
	}
	sort.Strings(families)
	if len(families) == 0 {
		return "-"
	}
	return strings.Join(families, ", ")
}

// warningCounts summarizes collected warnings by source, e.g.
// "3 (controls: 1, tiers: 2)".
func warningCounts(warnings []loader.Warning) string {
	bySource := make(map[string]int)
	for _, w := range warnings {
		bySource[w.Source]++
	}

	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	parts := make([]string, len(sources))
	for i, source := range sources {
		parts[i] = fmt.Sprintf("%s: %d", source, bySource[source])
	}
	return fmt.Sprintf("%d (%s)", len(warnings), strings.Join(parts, ", "))
}
