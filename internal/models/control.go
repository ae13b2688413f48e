// Package models contains data structures for NIST 800-53 controls,
// CCI mappings, and defense-level tier assignments.
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Control is a single security control (or control enhancement) from the
// 800-53 catalog. Immutable once loaded.
type Control struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Text            string   `json:"text"`
	Discussion      string   `json:"discussion,omitempty"`
	RelatedControls []string `json:"related_controls,omitempty"`
}

// CCIMapping ties a Control Correlation Identifier to its owning control.
// Many mappings may reference the same control.
type CCIMapping struct {
	Number      string `json:"cci_number"`
	ControlID   string `json:"control_id"`
	Index       string `json:"index,omitempty"`
	Description string `json:"description,omitempty"`
}

// Tier is a user-authored defense level: a named, ordered list of control
// IDs as they appeared in the input, before normalization.
type Tier struct {
	Name       string   `json:"name"`
	ControlIDs []string `json:"control_ids"`
}

// TierSet is an ordered collection of tiers. Order follows the input:
// object order for JSON, column order for CSV, document order for YAML.
type TierSet struct {
	Tiers []Tier `json:"tiers"`
}

// Names returns the tier names in set order.
func (ts *TierSet) Names() []string {
	names := make([]string, len(ts.Tiers))
	for i, tier := range ts.Tiers {
		names[i] = tier.Name
	}
	return names
}

// controlIDPattern accepts the spellings seen in the wild: single- or
// double-digit base numbers, optional parenthesized enhancement.
var controlIDPattern = regexp.MustCompile(`^([A-Z]{2})-(\d+)(?:\((\d+)\))?$`)

// canonicalIDPattern is the normalized form every loaded ID must match.
var canonicalIDPattern = regexp.MustCompile(`^[A-Z]{2}-\d{2}(\(\d{2}\))?$`)

// NormalizeControlID canonicalizes a control identifier: uppercase family
// code, hyphen, base number zero-padded to two digits, and a zero-padded
// parenthesized enhancement when present.
//
//	ac-1      -> AC-01
//	AC-2(1)   -> AC-02(01)
//	AC-02(01) -> AC-02(01)
//
// Input that does not match the family-code + number shape at all returns
// an error; the caller decides whether to skip or abort.
func NormalizeControlID(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if id == "" {
		return "", fmt.Errorf("empty control identifier")
	}

	m := controlIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", fmt.Errorf("malformed control identifier %q", raw)
	}

	base, err := strconv.Atoi(m[2])
	if err != nil {
		return "", fmt.Errorf("malformed control number in %q: %w", raw, err)
	}

	if m[3] == "" {
		return fmt.Sprintf("%s-%02d", m[1], base), nil
	}

	enhancement, err := strconv.Atoi(m[3])
	if err != nil {
		return "", fmt.Errorf("malformed enhancement number in %q: %w", raw, err)
	}

	return fmt.Sprintf("%s-%02d(%02d)", m[1], base, enhancement), nil
}

// IsCanonicalControlID reports whether id is already in normalized form.
func IsCanonicalControlID(id string) bool {
	return canonicalIDPattern.MatchString(id)
}

// ControlFamily extracts the two-letter family code from a normalized
// control ID. Returns "" when the ID has the wrong shape.
func ControlFamily(id string) string {
	if len(id) < 3 || id[2] != '-' {
		return ""
	}
	family := id[:2]
	for _, r := range family {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return family
}
