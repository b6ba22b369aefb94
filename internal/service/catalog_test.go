package service

import (
	"testing"

	"agenthub/internal/model"
	"agenthub/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

func TestValidateFieldDefinition(t *testing.T) {
	ok := model.FieldConfig{Options: []model.Option{{Value: "a"}}}
	assert.NoError(t, validateFieldDefinition("risk_tier", model.FieldTypeSelect, ok))
	assert.NoError(t, validateFieldDefinition("notes", model.FieldTypeTextarea, model.FieldConfig{}))

	err := validateFieldDefinition("notes", "paragraph", model.FieldConfig{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// options on a non option-bearing type
	err = validateFieldDefinition("notes", model.FieldTypeText, ok)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// dependent fields derive their options from the parent branch
	err = validateFieldDefinition("model_name", model.FieldTypeSelect, model.FieldConfig{
		DependsOn: "model_provider",
		Options:   []model.Option{{Value: "stale"}},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	err = validateFieldDefinition("model_provider", model.FieldTypeSelect, model.FieldConfig{
		DependsOn: "model_provider",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestBuiltinFieldsHaveUniqueKeys(t *testing.T) {
	type key struct{ source, name string }
	seen := map[key]bool{}
	for _, f := range BuiltinFields() {
		source, name := f.Key()
		k := key{source, name}
		assert.False(t, seen[k], "duplicate builtin field %s/%s", source, name)
		seen[k] = true
		assert.True(t, model.ValidFieldType(f.FieldType), "builtin %s has bad type", name)
		assert.True(t, f.IsEnabled, "builtin %s must be enabled", name)
	}
	assert.NotEmpty(t, seen)
}
