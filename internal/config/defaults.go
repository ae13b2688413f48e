package config

import _ "embed"

// defaultTierData is the built-in defense-level assignment used when no
// tier source is supplied. It ships in the binary and is never mutated;
// callers parse their own copy.
//
//go:embed default_tiers.json
var defaultTierData []byte

// DefaultTierData returns the embedded default tier assignment as JSON.
func DefaultTierData() []byte {
	out := make([]byte, len(defaultTierData))
	copy(out, defaultTierData)
	return out
}
