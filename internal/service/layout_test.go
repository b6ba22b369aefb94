package service

import (
	"testing"

	"agenthub/internal/model"
	"agenthub/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSections() []model.Section {
	return []model.Section{
		{ID: "s1", Title: "Basics", Order: 1, Fields: []string{"name", "agent_type"}},
		{ID: "s2", Title: "Details", Order: 2, Fields: []string{"description"}},
	}
}

func TestAddFieldToSection(t *testing.T) {
	out, err := addFieldToSection(sampleSections(), "s2", "vendor_name")
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "vendor_name"}, out[1].Fields)
}

func TestAddFieldToSectionRejectsDuplicateAcrossLayout(t *testing.T) {
	// "name" lives in s1; adding it to s2 must still fail, the constraint
	// is layout-global.
	_, err := addFieldToSection(sampleSections(), "s2", "name")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "already added to this layout")
}

func TestAddFieldToSectionUnknownSection(t *testing.T) {
	_, err := addFieldToSection(sampleSections(), "nope", "vendor_name")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRemoveSectionRenumbers(t *testing.T) {
	sections := append(sampleSections(), model.Section{ID: "s3", Title: "Extra", Order: 3})

	out, err := removeSection(sections, "s1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "s2", out[0].ID)
	assert.Equal(t, 1, out[0].Order)
	assert.Equal(t, "s3", out[1].ID)
	assert.Equal(t, 2, out[1].Order)
}

func TestRemoveSectionNotFound(t *testing.T) {
	_, err := removeSection(sampleSections(), "missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestReorderSections(t *testing.T) {
	out, err := reorderSections(sampleSections(), []string{"s2", "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s2", out[0].ID)
	assert.Equal(t, 1, out[0].Order)
	assert.Equal(t, "s1", out[1].ID)
	assert.Equal(t, 2, out[1].Order)
}

func TestReorderSectionsRejectsBadPermutations(t *testing.T) {
	cases := []struct {
		name string
		ids  []string
	}{
		{"incomplete", []string{"s1"}},
		{"unknown id", []string{"s1", "s9"}},
		{"duplicate id", []string{"s1", "s1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reorderSections(sampleSections(), tc.ids)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		})
	}
}

func TestAddFieldSequenceLeavesLayoutIntactOnRejection(t *testing.T) {
	sections := []model.Section{
		{ID: "s1", Title: "Basics", Order: 1, Fields: []string{"name", "type"}},
	}

	sections, err := addFieldToSection(sections, "s1", "description")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "type", "description"}, sections[0].Fields)

	// the rejected duplicate must not change the layout
	_, err = addFieldToSection(sections, "s1", "name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already added")
	assert.Equal(t, []string{"name", "type", "description"}, sections[0].Fields)
}

func TestValidateSections(t *testing.T) {
	assert.NoError(t, validateSections(sampleSections()))

	dupID := []model.Section{{ID: "s1"}, {ID: "s1"}}
	assert.Error(t, validateSections(dupID))

	dupField := []model.Section{
		{ID: "s1", Fields: []string{"name"}},
		{ID: "s2", Fields: []string{"name"}},
	}
	assert.Error(t, validateSections(dupField))

	missingID := []model.Section{{Title: "No ID"}}
	assert.Error(t, validateSections(missingID))
}
