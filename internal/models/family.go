package models

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// familyNames maps 800-53 family codes to their catalog names.
var familyNames = map[string]string{
	"AC": "Access Control",
	"AT": "Awareness and Training",
	"AU": "Audit and Accountability",
	"CA": "Assessment, Authorization, and Monitoring",
	"CM": "Configuration Management",
	"CP": "Contingency Planning",
	"IA": "Identification and Authentication",
	"IR": "Incident Response",
	"MA": "Maintenance",
	"MP": "Media Protection",
	"PE": "Physical and Environmental Protection",
	"PL": "Planning",
	"PM": "Program Management",
	"PS": "Personnel Security",
	"PT": "Personally Identifiable Information Processing and Transparency",
	"RA": "Risk Assessment",
	"SA": "System and Services Acquisition",
	"SC": "System and Communications Protection",
	"SI": "System and Information Integrity",
	"SR": "Supply Chain Risk Management",
	"AP": "Authorization and Permissions",
}

var titleCaser = cases.Title(language.English)

// FamilyName returns the full catalog name for a family code. Codes not in
// the catalog come back title-cased so they still render reasonably.
func FamilyName(code string) string {
	if name, ok := familyNames[code]; ok {
		return name
	}
	return titleCaser.String(code)
}
