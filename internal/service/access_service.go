package service

import (
	"context"
	"errors"

	"agenthub/internal/model"
	"agenthub/internal/repository"
	"agenthub/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FieldAccess is a resolved (role, request type, field) access decision
type FieldAccess struct {
	View        bool            `json:"view"`
	Edit        bool            `json:"edit"`
	FilterRules []model.RuleRef `json:"filter_rules,omitempty"`
}

// --- DTOs ---

type UpsertAccessRuleRequest struct {
	FieldName       string                          `json:"field_name" binding:"required"`
	FieldSource     string                          `json:"field_source" binding:"required"`
	RequestType     string                          `json:"request_type" binding:"required"`
	RolePermissions map[string]model.RolePermission `json:"role_permissions" binding:"required"`
	FilterRules     []model.RuleRef                 `json:"filter_rules"`
}

type AccessRuleResponse struct {
	ID              string                          `json:"id"`
	FieldName       string                          `json:"field_name"`
	FieldSource     string                          `json:"field_source"`
	RequestType     string                          `json:"request_type"`
	RolePermissions map[string]model.RolePermission `json:"role_permissions"`
	FilterRules     []model.RuleRef                 `json:"filter_rules"`
}

// --- Interface ---

type AccessService interface {
	// Resolve answers whether role may view/edit the field on the given
	// surface. No matching rule means deny.
	Resolve(ctx context.Context, tenantID uuid.UUID, role, requestType, fieldSource, fieldName string) (FieldAccess, error)
	ResolveAll(ctx context.Context, tenantID uuid.UUID, role, requestType string) (map[string]FieldAccess, error)
	ListRules(ctx context.Context, tenantID uuid.UUID, requestType string) ([]AccessRuleResponse, error)
	UpsertRule(ctx context.Context, tenantID uuid.UUID, req UpsertAccessRuleRequest) (*AccessRuleResponse, error)
}

type accessService struct {
	fields repository.FieldRepository
}

func NewAccessService(fields repository.FieldRepository) AccessService {
	return &accessService{fields: fields}
}

func (s *accessService) Resolve(ctx context.Context, tenantID uuid.UUID, role, requestType, fieldSource, fieldName string) (FieldAccess, error) {
	rule, err := s.fields.FindAccessRule(ctx, tenantID, fieldSource, fieldName, requestType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Deny-by-default: no rule, no access.
			return FieldAccess{}, nil
		}
		return FieldAccess{}, apperr.Transport(err, "failed to resolve access for '%s'", fieldName)
	}
	return accessFromRule(rule, role)
}

// ResolveAll resolves every rule on a surface at once, keyed by
// "source:field_name". Fields with no rule are simply absent, which callers
// must read as deny.
func (s *accessService) ResolveAll(ctx context.Context, tenantID uuid.UUID, role, requestType string) (map[string]FieldAccess, error) {
	rules, err := s.fields.ListAccessRules(ctx, tenantID, requestType)
	if err != nil {
		return nil, apperr.Transport(err, "failed to list access rules")
	}
	out := make(map[string]FieldAccess, len(rules))
	for i := range rules {
		access, accErr := accessFromRule(&rules[i], role)
		if accErr != nil {
			return nil, accErr
		}
		out[rules[i].FieldSource+":"+rules[i].FieldName] = access
	}
	return out, nil
}

func (s *accessService) ListRules(ctx context.Context, tenantID uuid.UUID, requestType string) ([]AccessRuleResponse, error) {
	rules, err := s.fields.ListAccessRules(ctx, tenantID, requestType)
	if err != nil {
		return nil, apperr.Transport(err, "failed to list access rules")
	}
	out := make([]AccessRuleResponse, 0, len(rules))
	for i := range rules {
		resp, convErr := toAccessRuleResponse(&rules[i])
		if convErr != nil {
			return nil, convErr
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *accessService) UpsertRule(ctx context.Context, tenantID uuid.UUID, req UpsertAccessRuleRequest) (*AccessRuleResponse, error) {
	if !model.ValidRequestType(req.RequestType) {
		return nil, apperr.Validation("unknown request type '%s'", req.RequestType)
	}
	switch req.FieldSource {
	case model.FieldSourceAgent, model.FieldSourceAgentMeta, model.FieldSourceCustom:
	default:
		return nil, apperr.Validation("unknown field source '%s'", req.FieldSource)
	}

	// Enabling edit force-enables view; this is the editing-surface side of
	// the edit-implies-view invariant.
	perms := make(map[string]model.RolePermission, len(req.RolePermissions))
	for role, rp := range req.RolePermissions {
		perms[role] = normalizeRolePermission(rp)
	}

	rule := &model.FieldAccessRule{
		TenantID:    tenantID,
		FieldName:   req.FieldName,
		FieldSource: req.FieldSource,
		RequestType: req.RequestType,
	}
	if err := rule.EncodeRolePermissions(perms); err != nil {
		return nil, apperr.Validation("malformed role permissions: %v", err)
	}
	if len(req.FilterRules) > 0 {
		if err := encodeJSONColumn(&rule.FilterRules, req.FilterRules); err != nil {
			return nil, apperr.Validation("malformed filter rules: %v", err)
		}
	}

	if err := s.fields.UpsertAccessRule(ctx, rule); err != nil {
		return nil, apperr.Transport(err, "failed to save access rule")
	}
	return toAccessRuleResponse(rule)
}

// accessFromRule reads one role's access out of a rule, normalizing the
// invalid edit-without-view state on the way out.
func accessFromRule(rule *model.FieldAccessRule, role string) (FieldAccess, error) {
	perms, err := rule.DecodeRolePermissions()
	if err != nil {
		return FieldAccess{}, apperr.Validation("%v", err)
	}
	rp, ok := perms[role]
	if !ok {
		return FieldAccess{}, nil
	}
	rp = normalizeRolePermission(rp)

	access := FieldAccess{View: rp.View, Edit: rp.Edit}
	if access.View {
		rules, decErr := rule.DecodeFilterRules()
		if decErr != nil {
			return FieldAccess{}, apperr.Validation("%v", decErr)
		}
		access.FilterRules = rules
	}
	return access, nil
}

// normalizeRolePermission enforces edit ⟹ view
func normalizeRolePermission(rp model.RolePermission) model.RolePermission {
	if rp.Edit {
		rp.View = true
	}
	return rp
}

func toAccessRuleResponse(rule *model.FieldAccessRule) (*AccessRuleResponse, error) {
	perms, err := rule.DecodeRolePermissions()
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	for role, rp := range perms {
		perms[role] = normalizeRolePermission(rp)
	}
	filters, err := rule.DecodeFilterRules()
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	return &AccessRuleResponse{
		ID:              rule.ID.String(),
		FieldName:       rule.FieldName,
		FieldSource:     rule.FieldSource,
		RequestType:     rule.RequestType,
		RolePermissions: perms,
		FilterRules:     filters,
	}, nil
}
