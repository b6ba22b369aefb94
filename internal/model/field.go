package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Field sources. A field name may appear under more than one source; the
// composite (source, field_name) is the true identity everywhere that matters.
const (
	FieldSourceAgent     = "agent"
	FieldSourceAgentMeta = "agent_metadata"
	FieldSourceCustom    = "custom" // tenant-defined submission requirement
)

// Field types
const (
	FieldTypeText        = "text"
	FieldTypeTextarea    = "textarea"
	FieldTypeNumber      = "number"
	FieldTypeDate        = "date"
	FieldTypeEmail       = "email"
	FieldTypeURL         = "url"
	FieldTypeSelect      = "select"
	FieldTypeMultiSelect = "multi_select"
	FieldTypeCheckbox    = "checkbox"
	FieldTypeJSON        = "json"
)

// ValidFieldType reports whether t is a supported field type
func ValidFieldType(t string) bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeDate,
		FieldTypeEmail, FieldTypeURL, FieldTypeSelect, FieldTypeMultiSelect,
		FieldTypeCheckbox, FieldTypeJSON:
		return true
	}
	return false
}

// OptionBearing reports whether the field type consumes an option list
func OptionBearing(fieldType string) bool {
	switch fieldType {
	case FieldTypeSelect, FieldTypeMultiSelect, FieldTypeJSON:
		return true
	}
	return false
}

// Option is one selectable value. Persisted configs may store options as
// plain strings or as {value,label} objects; UnmarshalJSON normalizes both.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Value = s
		o.Label = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("option must be a string or {value,label}: %w", err)
	}
	o.Value = obj.Value
	o.Label = obj.Label
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// FieldConfig is the structured payload attached to a field definition.
// Unknown keys are preserved in Extra so configs written by newer builds
// round-trip through older ones.
type FieldConfig struct {
	Options          []Option            `json:"options,omitempty"`
	DependsOn        string              `json:"depends_on,omitempty"`
	DependsOnLabel   string              `json:"depends_on_label,omitempty"`
	DependentOptions map[string][]Option `json:"dependent_options,omitempty"`
	Placeholder      string              `json:"placeholder,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var fieldConfigKnownKeys = map[string]bool{
	"options": true, "depends_on": true, "depends_on_label": true,
	"dependent_options": true, "placeholder": true,
}

func (fc *FieldConfig) UnmarshalJSON(data []byte) error {
	type alias FieldConfig
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if fieldConfigKnownKeys[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*fc = FieldConfig(a)
	return nil
}

func (fc FieldConfig) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	for k, v := range fc.Extra {
		out[k] = v
	}
	if len(fc.Options) > 0 {
		out["options"] = fc.Options
	}
	if fc.DependsOn != "" {
		out["depends_on"] = fc.DependsOn
	}
	if fc.DependsOnLabel != "" {
		out["depends_on_label"] = fc.DependsOnLabel
	}
	if len(fc.DependentOptions) > 0 {
		out["dependent_options"] = fc.DependentOptions
	}
	if fc.Placeholder != "" {
		out["placeholder"] = fc.Placeholder
	}
	return json.Marshal(out)
}

// FieldDefinition is a tenant-defined submission requirement field.
// Built-in agent/agent_metadata fields live in code (see service catalog),
// not in this table.
type FieldDefinition struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_field_name" json:"tenant_id"`
	FieldName   string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_tenant_field_name" json:"field_name"`
	Label       string         `gorm:"type:varchar(255);not null" json:"label"`
	Description string         `gorm:"type:text" json:"description"`
	FieldType   string         `gorm:"type:varchar(30);not null" json:"field_type"`
	IsRequired  bool           `gorm:"default:false" json:"is_required"`
	IsEnabled   bool           `gorm:"default:true" json:"is_enabled"` // Disabled fields drop out of the catalog; historical responses keep referencing them
	Config      datatypes.JSON `gorm:"type:jsonb" json:"config"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// DecodeConfig parses the stored JSONB config payload
func (f *FieldDefinition) DecodeConfig() (FieldConfig, error) {
	var cfg FieldConfig
	if len(f.Config) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(f.Config, &cfg); err != nil {
		return cfg, fmt.Errorf("malformed field config for '%s': %w", f.FieldName, err)
	}
	return cfg, nil
}

// EncodeConfig serializes cfg into the stored JSONB column
func (f *FieldDefinition) EncodeConfig(cfg FieldConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	f.Config = datatypes.JSON(data)
	return nil
}
