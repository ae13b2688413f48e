package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/stigtools/stigsheets/internal/config"
	"github.com/stigtools/stigsheets/internal/models"
	"github.com/stigtools/stigsheets/pkg/logger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadControls(t *testing.T) {
	path := writeFile(t, "controls.json", `[
		{
			"Control Identifier": "ac-1",
			"Control (or Control Enhancement) Name": "Policy and Procedures",
			"Control Text": "Develop, document, and disseminate...",
			"Discussion": "Access control policy...",
			"Related Controls": "IA-01, PM-09, PM-24 ,SI-12"
		},
		{
			"Control Identifier": "AC-02(01)",
			"Control (or Control Enhancement) Name": "Automated System Account Management",
			"Control Text": "Support the management of system accounts..."
		}
	]`)

	mock := logger.NewMockLogger()
	l := New(mock)

	controls, err := l.LoadControls(path)
	require.NoError(t, err)
	require.Len(t, controls, 2)
	assert.Empty(t, l.Warnings())

	ac1, ok := controls["AC-01"]
	require.True(t, ok, "identifier must be normalized before keying")
	assert.Equal(t, "Policy and Procedures", ac1.Name)
	assert.Equal(t, []string{"IA-01", "PM-09", "PM-24", "SI-12"}, ac1.RelatedControls)

	ac201, ok := controls["AC-02(01)"]
	require.True(t, ok)
	assert.Nil(t, ac201.RelatedControls)
}

func TestLoadControlsSkipsMalformedRecords(t *testing.T) {
	path := writeFile(t, "controls.json", `[
		{"Control (or Control Enhancement) Name": "No identifier"},
		{"Control Identifier": "garbage id", "Control (or Control Enhancement) Name": "Bad"},
		{"Control Identifier": "AT-02", "Control (or Control Enhancement) Name": "Training"}
	]`)

	mock := logger.NewMockLogger()
	l := New(mock)

	controls, err := l.LoadControls(path)
	require.NoError(t, err, "per-record problems must not abort the load")
	assert.Len(t, controls, 1)
	assert.Contains(t, controls, "AT-02")

	warnings := l.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "controls", warnings[0].Source)
	assert.Contains(t, warnings[0].Reason, "Control Identifier")
	assert.Equal(t, "garbage id", warnings[1].Record)
	assert.True(t, mock.HasMessage("WARN", "skipping record"))
}

func TestLoadControlsFatalErrors(t *testing.T) {
	l := New(logger.NewMockLogger())

	_, err := l.LoadControls(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading controls file")

	bad := writeFile(t, "bad.json", `{"not": "an array"`)
	_, err = l.LoadControls(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing controls JSON")
}

func TestLoadCCIs(t *testing.T) {
	path := writeFile(t, "cci.json", `[
		{"Index": "1", "Control": "ac-1", "CCI Number": "CCI-000001", "Description": "The organization develops..."},
		{"Index": "1.1", "Control": "AC-1", "CCI Number": "CCI-000002", "Description": "..."},
		{"Index": "2", "Control": "ZZ-99", "CCI Number": "CCI-009999", "Description": "orphan"},
		{"Index": "3", "CCI Number": "CCI-000404", "Description": "no control reference"}
	]`)

	l := New(logger.NewMockLogger())

	ccis, err := l.LoadCCIs(path)
	require.NoError(t, err)

	require.Len(t, ccis["AC-01"], 2, "both spellings of AC-1 must land under one key")
	assert.Equal(t, "CCI-000001", ccis["AC-01"][0].Number)
	assert.Equal(t, "AC-01", ccis["AC-01"][0].ControlID)

	// Orphaned mappings load fine; the join drops them later.
	assert.Len(t, ccis["ZZ-99"], 1)

	warnings := l.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "cci", warnings[0].Source)
	assert.Contains(t, warnings[0].Reason, "Control")
}

func TestLoadTiersJSONPreservesOrder(t *testing.T) {
	path := writeFile(t, "tiers.json", `{
		"DL-6 Application": ["AC-01", "ac-2"],
		"DL-1 DODIN": ["AT-01"],
		"DL-4": []
	}`)

	l := New(logger.NewMockLogger())

	ts, err := l.LoadTiers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"DL-6 Application", "DL-1 DODIN", "DL-4"}, ts.Names())
	assert.Equal(t, []string{"AC-01", "ac-2"}, ts.Tiers[0].ControlIDs, "raw spellings are preserved")
}

func TestLoadTiersCSV(t *testing.T) {
	path := writeFile(t, "tiers.csv", "DL-1 DODIN,DL-2 MCEN,DL-4\n"+
		"AT-01,AC-04,PE-02\n"+
		"AT-02,,PE-03\n"+
		",AC-04(01),\n")

	l := New(logger.NewMockLogger())

	ts, err := l.LoadTiers(path)
	require.NoError(t, err)
	require.Len(t, ts.Tiers, 3)

	assert.Equal(t, []string{"DL-1 DODIN", "DL-2 MCEN", "DL-4"}, ts.Names())
	assert.Equal(t, []string{"AT-01", "AT-02"}, ts.Tiers[0].ControlIDs)
	assert.Equal(t, []string{"AC-04", "AC-04(01)"}, ts.Tiers[1].ControlIDs, "blank cells are skipped")
	assert.Equal(t, []string{"PE-02", "PE-03"}, ts.Tiers[2].ControlIDs)
}

func TestLoadTiersCSVRaggedRows(t *testing.T) {
	path := writeFile(t, "tiers.csv", "DL-1,DL-2\n"+
		"AT-01\n"+
		"AT-02,AC-04,EXTRA-CELL\n")

	l := New(logger.NewMockLogger())

	ts, err := l.LoadTiers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AT-01", "AT-02"}, ts.Tiers[0].ControlIDs)
	assert.Equal(t, []string{"AC-04"}, ts.Tiers[1].ControlIDs, "cells past the header are dropped")
}

func TestLoadTiersXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "DL-1 DODIN"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "DL-2 MCEN"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "AT-01"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "AC-04"))
	require.NoError(t, f.SetCellValue("Sheet1", "B3", "AC-04(01)"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	l := New(logger.NewMockLogger())

	ts, err := l.LoadTiers(path)
	require.NoError(t, err)
	require.Len(t, ts.Tiers, 2)
	assert.Equal(t, []string{"DL-1 DODIN", "DL-2 MCEN"}, ts.Names())
	assert.Equal(t, []string{"AT-01"}, ts.Tiers[0].ControlIDs)
	assert.Equal(t, []string{"AC-04", "AC-04(01)"}, ts.Tiers[1].ControlIDs)
}

func TestLoadTiersYAML(t *testing.T) {
	path := writeFile(t, "tiers.yaml", "DL-2 MCEN:\n  - AC-04\n  - ac-4(1)\nDL-1 DODIN:\n  - AT-01\n")

	l := New(logger.NewMockLogger())

	ts, err := l.LoadTiers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"DL-2 MCEN", "DL-1 DODIN"}, ts.Names())
	assert.Equal(t, []string{"AC-04", "ac-4(1)"}, ts.Tiers[0].ControlIDs)
}

func TestLoadTiersFatalErrors(t *testing.T) {
	l := New(logger.NewMockLogger())

	_, err := l.LoadTiers(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	notObject := writeFile(t, "tiers.json", `["DL-1"]`)
	_, err = l.LoadTiers(notObject)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an object")
}

func TestParseTiersJSONDefaultData(t *testing.T) {
	ts, err := ParseTiersJSON(config.DefaultTierData())
	require.NoError(t, err)
	require.Len(t, ts.Tiers, 6)

	assert.Equal(t, "DL-1 DODIN", ts.Tiers[0].Name)
	assert.Equal(t, "DL-6 Application", ts.Tiers[5].Name)
	for _, tier := range ts.Tiers {
		assert.NotEmpty(t, tier.ControlIDs, "tier %s", tier.Name)
		for _, id := range tier.ControlIDs {
			_, err := models.NormalizeControlID(id)
			assert.NoError(t, err, "tier %s id %s", tier.Name, id)
		}
	}
}
