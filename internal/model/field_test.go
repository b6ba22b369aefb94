package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionUnmarshalString(t *testing.T) {
	var opt Option
	require.NoError(t, json.Unmarshal([]byte(`"chatbot"`), &opt))
	assert.Equal(t, "chatbot", opt.Value)
	assert.Equal(t, "chatbot", opt.Label)
}

func TestOptionUnmarshalObject(t *testing.T) {
	var opt Option
	require.NoError(t, json.Unmarshal([]byte(`{"value":"chatbot","label":"Chatbot"}`), &opt))
	assert.Equal(t, "chatbot", opt.Value)
	assert.Equal(t, "Chatbot", opt.Label)

	// label defaults to the value when absent
	opt = Option{}
	require.NoError(t, json.Unmarshal([]byte(`{"value":"copilot"}`), &opt))
	assert.Equal(t, "copilot", opt.Label)
}

func TestOptionUnmarshalRejectsOtherShapes(t *testing.T) {
	var opt Option
	assert.Error(t, json.Unmarshal([]byte(`42`), &opt))
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &opt))
}

func TestFieldConfigMixedOptionForms(t *testing.T) {
	raw := `{"options":["low",{"value":"high","label":"High"}]}`
	var cfg FieldConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))
	require.Len(t, cfg.Options, 2)
	assert.Equal(t, Option{Value: "low", Label: "low"}, cfg.Options[0])
	assert.Equal(t, Option{Value: "high", Label: "High"}, cfg.Options[1])
}

func TestFieldConfigPreservesUnknownKeys(t *testing.T) {
	raw := `{"depends_on":"model_provider","max_length":80,"ui_hint":"wide"}`
	var cfg FieldConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, "model_provider", cfg.DependsOn)
	require.Len(t, cfg.Extra, 2)

	out, err := json.Marshal(cfg)
	require.NoError(t, err)

	var round map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &round))
	assert.Contains(t, round, "max_length")
	assert.Contains(t, round, "ui_hint")
	assert.Contains(t, round, "depends_on")
}
