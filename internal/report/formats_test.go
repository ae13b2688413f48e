package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stigtools/stigsheets/internal/aggregate"
	"github.com/stigtools/stigsheets/internal/models"
	"github.com/stigtools/stigsheets/pkg/logger"
)

func TestBuiltinFormatsRegistered(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "xlsx"}, ListFormats())

	for _, name := range ListFormats() {
		format, err := GetFormat(name, logger.NewMockLogger())
		require.NoError(t, err)
		assert.Equal(t, name, format.Name())
		assert.NotEmpty(t, format.Description())
	}
}

func TestGetFormatUnknown(t *testing.T) {
	_, err := GetFormat("docx", logger.NewMockLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report format")
}

func TestRegisterFormatPanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterFormat("broken", nil)
	}, "nil factory must panic")

	assert.Panics(t, func() {
		RegisterFormat("xlsx", func(logger.Logger) (Format, error) {
			return nil, nil
		})
	}, "duplicate registration must panic")
}

// testSummary builds a small but fully populated aggregation result shared
// by the generator tests.
func testSummary(t *testing.T) *aggregate.Summary {
	t.Helper()

	controls := map[string]models.Control{
		"AC-01": {ID: "AC-01", Name: "Policy and Procedures", Text: "Develop, document, and disseminate..."},
		"AC-02": {ID: "AC-02", Name: "Account Management", Text: "Define and document..."},
		"AT-01": {ID: "AT-01", Name: "Training Policy", Text: "Develop training policy..."},
	}
	ccis := map[string][]models.CCIMapping{
		"AC-01": {
			{Number: "CCI-000001", ControlID: "AC-01", Description: "The organization develops an access control policy."},
			{Number: "CCI-000002", ControlID: "AC-01", Description: "The organization disseminates the policy."},
		},
		"AT-01": {
			{Number: "CCI-000100", ControlID: "AT-01", Description: "Training policy exists."},
		},
	}

	agg := aggregate.New(controls, ccis, logger.NewMockLogger())
	return agg.Aggregate(models.TierSet{Tiers: []models.Tier{
		{Name: "DL-1 DODIN", ControlIDs: []string{"ac-1", "AC-02", "AC-99"}},
		{Name: "DL-5 System HW/SW/OS", ControlIDs: []string{"AT-01"}},
	}})
}
