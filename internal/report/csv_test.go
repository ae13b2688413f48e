package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stigtools/stigsheets/pkg/logger"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVGenerator(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report")
	gen := NewCSVGenerator(logger.NewMockLogger())
	require.NoError(t, gen.Generate(testSummary(t), Options{}, out))

	summaryRows := readCSV(t, filepath.Join(out, "summary.csv"))
	require.GreaterOrEqual(t, len(summaryRows), 4)
	assert.Equal(t, []string{"Level", "Total Controls", "Total CCIs", "Avg CCIs/Control", "Dropped"}, summaryRows[0])
	assert.Equal(t, []string{"DL-1 DODIN", "2", "2", "1.00", "1"}, summaryRows[1])
	assert.Equal(t, []string{"DL-5 System HW/SW/OS", "1", "1", "1.00", "0"}, summaryRows[2])
	assert.Contains(t, summaryRows[3][0], "2 tiers")
	assert.Contains(t, summaryRows[3][0], "3 unique controls")

	familyRows := readCSV(t, filepath.Join(out, "families.csv"))
	assert.Equal(t, []string{"Table", "Family", "Family Name", "DL-1 DODIN", "DL-5 System HW/SW/OS", "Total"}, familyRows[0])
	assert.Equal(t, []string{"controls", "AC", "Access Control", "2", "0", "2"}, familyRows[1])
	assert.Equal(t, []string{"controls", "AT", "Awareness and Training", "0", "1", "1"}, familyRows[2])
	assert.Equal(t, []string{"ccis", "AC", "Access Control", "2", "0", "2"}, familyRows[3])
	assert.Equal(t, []string{"ccis", "AT", "Awareness and Training", "0", "1", "1"}, familyRows[4])

	tierRows := readCSV(t, filepath.Join(out, "DL-1_DODIN.csv"))
	require.Len(t, tierRows, 3, "header plus two resolved controls")
	assert.Equal(t, "AC-01", tierRows[1][0])
	assert.Equal(t, "CCI-000001, CCI-000002", tierRows[1][3])
	assert.Equal(t, "N/A", tierRows[2][3])

	// No detail files without detailed mode.
	_, err := os.Stat(filepath.Join(out, "DL-1_DODIN_ccis.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestCSVGeneratorDetailedCCI(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report")
	gen := NewCSVGenerator(logger.NewMockLogger())
	require.NoError(t, gen.Generate(testSummary(t), Options{DetailedCCI: true}, out))

	rows := readCSV(t, filepath.Join(out, "DL-1_DODIN_ccis.csv"))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Control ID", "Control Name", "CCI Number", "CCI Description"}, rows[0])
	assert.Equal(t, "CCI-000001", rows[1][2])
	assert.Equal(t, "CCI-000002", rows[2][2])
	assert.Equal(t, []string{"AC-02", "Account Management", "N/A", "No CCIs mapped"}, rows[3])
}

func TestCSVGeneratorReplacesPreviousRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report")
	gen := NewCSVGenerator(logger.NewMockLogger())

	require.NoError(t, gen.Generate(testSummary(t), Options{DetailedCCI: true}, out))
	require.NoError(t, gen.Generate(testSummary(t), Options{}, out))

	_, err := os.Stat(filepath.Join(out, "summary.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "DL-1_DODIN_ccis.csv"))
	assert.True(t, os.IsNotExist(err), "stale files from the prior run are cleared")
}
