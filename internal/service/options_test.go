package service

import (
	"testing"

	"agenthub/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestOptionsForStaticField(t *testing.T) {
	field := CatalogField{
		FieldName: "agent_type",
		FieldType: model.FieldTypeSelect,
		Config: model.FieldConfig{
			Options: []model.Option{
				{Value: "chatbot", Label: "Chatbot"},
				{Value: "copilot"},
			},
		},
	}

	res := OptionsFor(field, "")
	assert.False(t, res.AwaitingParent)
	assert.Empty(t, res.ParentField)
	assert.Len(t, res.Options, 2)
	assert.Equal(t, "Chatbot", res.Options[0].Label)
	// missing labels fall back to the value
	assert.Equal(t, "copilot", res.Options[1].Label)
}

func TestOptionsForDependentFieldAwaitsParent(t *testing.T) {
	field := CatalogField{
		FieldName: "model_name",
		FieldType: model.FieldTypeSelect,
		Config: model.FieldConfig{
			DependsOn:      "model_provider",
			DependsOnLabel: "Model Provider",
			DependentOptions: map[string][]model.Option{
				"openai": {{Value: "gpt-4o", Label: "GPT-4o"}},
			},
		},
	}

	res := OptionsFor(field, "")
	assert.True(t, res.AwaitingParent)
	assert.Equal(t, "model_provider", res.ParentField)
	assert.Equal(t, "Model Provider", res.ParentLabel)
	assert.NotNil(t, res.Options)
	assert.Empty(t, res.Options)
}

func TestOptionsForDependentFieldResolvesBranch(t *testing.T) {
	field := CatalogField{
		FieldName: "model_name",
		Config: model.FieldConfig{
			DependsOn: "model_provider",
			DependentOptions: map[string][]model.Option{
				"openai":    {{Value: "gpt-4o"}},
				"anthropic": {{Value: "claude-sonnet", Label: "Claude Sonnet"}},
			},
		},
	}

	res := OptionsFor(field, "anthropic")
	assert.False(t, res.AwaitingParent)
	assert.Len(t, res.Options, 1)
	assert.Equal(t, "Claude Sonnet", res.Options[0].Label)
	// parent label falls back to the parent field name when unset
	assert.Equal(t, "model_provider", res.ParentLabel)
}

func TestOptionsForUnknownBranchFallsBackToFreeText(t *testing.T) {
	field := CatalogField{
		FieldName: "model_name",
		Config: model.FieldConfig{
			DependsOn: "model_provider",
			DependentOptions: map[string][]model.Option{
				"openai": {{Value: "gpt-4o"}},
			},
		},
	}

	// A parent value with no configured branch is not an error; the caller
	// renders free-text entry.
	res := OptionsFor(field, "self_hosted")
	assert.False(t, res.AwaitingParent)
	assert.NotNil(t, res.Options)
	assert.Empty(t, res.Options)
}

func TestNormalizeOptionsNeverNil(t *testing.T) {
	assert.NotNil(t, normalizeOptions(nil))
	out := normalizeOptions([]model.Option{{Value: "a"}})
	assert.Equal(t, "a", out[0].Label)
}
