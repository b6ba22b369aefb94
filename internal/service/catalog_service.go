package service

import (
	"context"
	"encoding/json"
	"errors"

	"agenthub/internal/model"
	"agenthub/internal/repository"
	"agenthub/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogField is one assignable datum: a built-in agent field, a built-in
// agent metadata field, or a tenant-defined submission requirement.
type CatalogField struct {
	FieldName   string            `json:"field_name"`
	Label       string            `json:"label"`
	Description string            `json:"description,omitempty"`
	FieldType   string            `json:"field_type"`
	IsRequired  bool              `json:"is_required"`
	IsEnabled   bool              `json:"is_enabled"`
	Source      string            `json:"source"`
	Config      model.FieldConfig `json:"config"`
}

// Key returns the composite identity of the field. Names may collide across
// sources; (source, field_name) is what disambiguates.
func (f CatalogField) Key() (source, name string) { return f.Source, f.FieldName }

// --- DTOs ---

type CreateFieldRequest struct {
	FieldName   string            `json:"field_name" binding:"required"`
	Label       string            `json:"label" binding:"required"`
	Description string            `json:"description"`
	FieldType   string            `json:"field_type" binding:"required"`
	IsRequired  bool              `json:"is_required"`
	Config      model.FieldConfig `json:"config"`
}

type UpdateFieldRequest struct {
	Label       string             `json:"label"`
	Description string             `json:"description"`
	FieldType   string             `json:"field_type"`
	IsRequired  *bool              `json:"is_required"`
	IsEnabled   *bool              `json:"is_enabled"`
	Config      *model.FieldConfig `json:"config"`
}

// --- Interface ---

type CatalogService interface {
	ListFields(ctx context.Context, tenantID uuid.UUID) ([]CatalogField, error)
	GetField(ctx context.Context, tenantID uuid.UUID, source, fieldName string) (*CatalogField, error)
	CreateField(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateFieldRequest) (*CatalogField, error)
	UpdateField(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, fieldName string, req UpdateFieldRequest) (*CatalogField, error)
	DeleteField(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, fieldName string) error
}

type catalogService struct {
	fields repository.FieldRepository
	audit  AuditRecorder
}

func NewCatalogService(fields repository.FieldRepository, audit AuditRecorder) CatalogService {
	return &catalogService{fields: fields, audit: audit}
}

// builtinFields enumerates the agent and agent-metadata fields every tenant
// gets. The model provider / model name pair demonstrates option dependency:
// model_name's option set follows the chosen model_provider.
var builtinFields = []CatalogField{
	{
		FieldName: "name", Label: "Agent Name", FieldType: model.FieldTypeText,
		IsRequired: true, IsEnabled: true, Source: model.FieldSourceAgent,
		Config: model.FieldConfig{Placeholder: "e.g. Invoice Copilot"},
	},
	{
		FieldName: "agent_type", Label: "Agent Type", FieldType: model.FieldTypeSelect,
		IsRequired: true, IsEnabled: true, Source: model.FieldSourceAgent,
		Config: model.FieldConfig{Options: []model.Option{
			{Value: model.AgentTypeChatbot, Label: "Chatbot"},
			{Value: model.AgentTypeCopilot, Label: "Copilot"},
			{Value: model.AgentTypeAutomation, Label: "Automation"},
			{Value: model.AgentTypeAnalytics, Label: "Analytics"},
		}},
	},
	{
		FieldName: "vendor_name", Label: "Vendor", FieldType: model.FieldTypeText,
		IsRequired: true, IsEnabled: true, Source: model.FieldSourceAgent,
	},
	{
		FieldName: "description", Label: "Description", FieldType: model.FieldTypeTextarea,
		IsEnabled: true, Source: model.FieldSourceAgent,
	},
	{
		FieldName: "website", Label: "Vendor Website", FieldType: model.FieldTypeURL,
		IsEnabled: true, Source: model.FieldSourceAgent,
	},
	{
		FieldName: "risk_tier", Label: "Risk Tier", FieldType: model.FieldTypeSelect,
		IsEnabled: true, Source: model.FieldSourceAgent,
		Config: model.FieldConfig{Options: []model.Option{
			{Value: "low", Label: "Low"}, {Value: "medium", Label: "Medium"},
			{Value: "high", Label: "High"}, {Value: "critical", Label: "Critical"},
		}},
	},
	{
		FieldName: "model_provider", Label: "Model Provider", FieldType: model.FieldTypeSelect,
		IsEnabled: true, Source: model.FieldSourceAgentMeta,
		Config: model.FieldConfig{Options: []model.Option{
			{Value: "openai", Label: "OpenAI"},
			{Value: "anthropic", Label: "Anthropic"},
			{Value: "google", Label: "Google"},
			{Value: "self_hosted", Label: "Self-hosted"},
		}},
	},
	{
		FieldName: "model_name", Label: "Model", FieldType: model.FieldTypeSelect,
		IsEnabled: true, Source: model.FieldSourceAgentMeta,
		Config: model.FieldConfig{
			DependsOn:      "model_provider",
			DependsOnLabel: "Model Provider",
			DependentOptions: map[string][]model.Option{
				"openai":    {{Value: "gpt-4o", Label: "GPT-4o"}, {Value: "gpt-4.1", Label: "GPT-4.1"}},
				"anthropic": {{Value: "claude-sonnet", Label: "Claude Sonnet"}, {Value: "claude-opus", Label: "Claude Opus"}},
				"google":    {{Value: "gemini-pro", Label: "Gemini Pro"}},
			},
		},
	},
	{
		FieldName: "data_residency", Label: "Data Residency", FieldType: model.FieldTypeSelect,
		IsEnabled: true, Source: model.FieldSourceAgentMeta,
		Config: model.FieldConfig{Options: []model.Option{
			{Value: "us", Label: "United States"}, {Value: "eu", Label: "European Union"},
			{Value: "apac", Label: "Asia-Pacific"},
		}},
	},
	{
		FieldName: "pii_processing", Label: "Processes PII", FieldType: model.FieldTypeCheckbox,
		IsEnabled: true, Source: model.FieldSourceAgentMeta,
	},
	{
		FieldName: "contract_expiry", Label: "Contract Expiry", FieldType: model.FieldTypeDate,
		IsEnabled: true, Source: model.FieldSourceAgentMeta,
	},
	{
		FieldName: "security_contact", Label: "Security Contact", FieldType: model.FieldTypeEmail,
		IsEnabled: true, Source: model.FieldSourceAgentMeta,
	},
}

// BuiltinFields returns a copy of the built-in catalog
func BuiltinFields() []CatalogField {
	out := make([]CatalogField, len(builtinFields))
	copy(out, builtinFields)
	return out
}

// ListFields merges built-in fields with the tenant's enabled custom fields
// into one flat list tagged by source. Within a source names are unique;
// a name colliding across sources yields two entries, deliberately.
func (s *catalogService) ListFields(ctx context.Context, tenantID uuid.UUID) ([]CatalogField, error) {
	out := BuiltinFields()

	custom, err := s.fields.ListFields(ctx, tenantID, true)
	if err != nil {
		return nil, apperr.Transport(err, "failed to list custom fields")
	}
	for i := range custom {
		cf, convErr := toCatalogField(&custom[i])
		if convErr != nil {
			return nil, convErr
		}
		out = append(out, *cf)
	}
	return out, nil
}

// GetField resolves a field by composite (source, field_name). An empty
// source matches the first source carrying the name, built-ins first.
func (s *catalogService) GetField(ctx context.Context, tenantID uuid.UUID, source, fieldName string) (*CatalogField, error) {
	if source == "" || source == model.FieldSourceAgent || source == model.FieldSourceAgentMeta {
		for _, f := range builtinFields {
			if f.FieldName == fieldName && (source == "" || f.Source == source) {
				copy := f
				return &copy, nil
			}
		}
	}
	if source == "" || source == model.FieldSourceCustom {
		field, err := s.fields.FindFieldByName(ctx, tenantID, fieldName)
		if err == nil {
			return toCatalogField(field)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Transport(err, "failed to look up field '%s'", fieldName)
		}
	}
	return nil, apperr.NotFound("field '%s' not found", fieldName)
}

func (s *catalogService) CreateField(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateFieldRequest) (*CatalogField, error) {
	if err := validateFieldDefinition(req.FieldName, req.FieldType, req.Config); err != nil {
		return nil, err
	}

	if _, err := s.fields.FindFieldByName(ctx, tenantID, req.FieldName); err == nil {
		return nil, apperr.Validation("field '%s' already exists", req.FieldName)
	}

	field := &model.FieldDefinition{
		TenantID:    tenantID,
		FieldName:   req.FieldName,
		Label:       req.Label,
		Description: req.Description,
		FieldType:   req.FieldType,
		IsRequired:  req.IsRequired,
		IsEnabled:   true,
	}
	if err := field.EncodeConfig(req.Config); err != nil {
		return nil, apperr.Validation("malformed field config: %v", err)
	}

	if err := s.fields.CreateField(ctx, field); err != nil {
		return nil, apperr.Transport(err, "failed to create field")
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionCreateField, field.ID.String(), field.FieldName, map[string]interface{}{
		"field_type": field.FieldType,
	})

	return toCatalogField(field)
}

func (s *catalogService) UpdateField(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, fieldName string, req UpdateFieldRequest) (*CatalogField, error) {
	field, err := s.fields.FindFieldByName(ctx, tenantID, fieldName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("field '%s' not found", fieldName)
		}
		return nil, apperr.Transport(err, "failed to look up field '%s'", fieldName)
	}

	if req.Label != "" {
		field.Label = req.Label
	}
	if req.Description != "" {
		field.Description = req.Description
	}
	if req.FieldType != "" {
		field.FieldType = req.FieldType
	}
	if req.IsRequired != nil {
		field.IsRequired = *req.IsRequired
	}
	if req.IsEnabled != nil {
		field.IsEnabled = *req.IsEnabled
	}
	cfg, err := field.DecodeConfig()
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if req.Config != nil {
		cfg = *req.Config
		if encErr := field.EncodeConfig(cfg); encErr != nil {
			return nil, apperr.Validation("malformed field config: %v", encErr)
		}
	}
	if err := validateFieldDefinition(field.FieldName, field.FieldType, cfg); err != nil {
		return nil, err
	}

	if err := s.fields.UpdateField(ctx, field); err != nil {
		return nil, apperr.Transport(err, "failed to update field")
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionUpdateField, field.ID.String(), field.FieldName, nil)

	return toCatalogField(field)
}

func (s *catalogService) DeleteField(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, fieldName string) error {
	field, err := s.fields.FindFieldByName(ctx, tenantID, fieldName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("field '%s' not found", fieldName)
		}
		return apperr.Transport(err, "failed to look up field '%s'", fieldName)
	}
	if err := s.fields.DeleteField(ctx, field.ID); err != nil {
		return apperr.Transport(err, "failed to delete field")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionDeleteField, field.ID.String(), field.FieldName, nil)
	return nil
}

// validateFieldDefinition enforces the field invariants: options only on
// option-bearing types, and no static options alongside depends_on.
func validateFieldDefinition(fieldName, fieldType string, cfg model.FieldConfig) error {
	if !model.ValidFieldType(fieldType) {
		return apperr.Validation("unknown field type '%s'", fieldType)
	}
	if len(cfg.Options) > 0 && !model.OptionBearing(fieldType) {
		return apperr.Validation("field '%s' of type '%s' cannot carry options", fieldName, fieldType)
	}
	if cfg.DependsOn != "" && len(cfg.Options) > 0 {
		return apperr.Validation("field '%s' depends on '%s' and must not declare static options", fieldName, cfg.DependsOn)
	}
	if cfg.DependsOn == fieldName {
		return apperr.Validation("field '%s' cannot depend on itself", fieldName)
	}
	return nil
}

func toCatalogField(f *model.FieldDefinition) (*CatalogField, error) {
	cfg, err := f.DecodeConfig()
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	return &CatalogField{
		FieldName:   f.FieldName,
		Label:       f.Label,
		Description: f.Description,
		FieldType:   f.FieldType,
		IsRequired:  f.IsRequired,
		IsEnabled:   f.IsEnabled,
		Source:      model.FieldSourceCustom,
		Config:      cfg,
	}, nil
}

// marshalDetails is a shared helper for audit payloads
func marshalDetails(details map[string]interface{}) string {
	if details == nil {
		return ""
	}
	data, _ := json.Marshal(details)
	return string(data)
}
