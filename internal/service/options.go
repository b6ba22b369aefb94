package service

import "agenthub/internal/model"

// OptionsResult is the dependent-option resolution outcome. When a field
// depends on a parent that has no value yet, Options is empty and
// AwaitingParent tells the caller to render a "select {parent} first"
// placeholder instead of any option list.
type OptionsResult struct {
	Options        []model.Option `json:"options"`
	AwaitingParent bool           `json:"awaiting_parent"`
	ParentField    string         `json:"parent_field,omitempty"`
	ParentLabel    string         `json:"parent_label,omitempty"`
}

// OptionsFor computes the live option set for a field given the current
// value of its parent field (empty string when the parent is unset).
//
// Independent fields return their static options. Dependent fields return
// nothing until the parent has a value; a parent value with no configured
// branch also returns nothing; the caller falls back to free-text entry,
// which is not an error.
func OptionsFor(field CatalogField, parentValue string) OptionsResult {
	cfg := field.Config
	if cfg.DependsOn == "" {
		return OptionsResult{Options: normalizeOptions(cfg.Options)}
	}

	parentLabel := cfg.DependsOnLabel
	if parentLabel == "" {
		parentLabel = cfg.DependsOn
	}

	if parentValue == "" {
		return OptionsResult{
			Options:        []model.Option{},
			AwaitingParent: true,
			ParentField:    cfg.DependsOn,
			ParentLabel:    parentLabel,
		}
	}

	branch, ok := cfg.DependentOptions[parentValue]
	if !ok {
		return OptionsResult{
			Options:     []model.Option{},
			ParentField: cfg.DependsOn,
			ParentLabel: parentLabel,
		}
	}
	return OptionsResult{
		Options:     normalizeOptions(branch),
		ParentField: cfg.DependsOn,
		ParentLabel: parentLabel,
	}
}

// normalizeOptions fills empty labels from values and never returns nil,
// so callers can range and serialize without nil checks.
func normalizeOptions(opts []model.Option) []model.Option {
	out := make([]model.Option, 0, len(opts))
	for _, o := range opts {
		if o.Label == "" {
			o.Label = o.Value
		}
		out = append(out, o)
	}
	return out
}
