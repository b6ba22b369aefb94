package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RolePermission is one role's view/edit pair on a field.
// edit=true implies view=true; normalization happens on read.
type RolePermission struct {
	View bool `json:"view"`
	Edit bool `json:"edit"`
}

// RuleRef points at an attached data-filter rule scoping which records a
// permission or field applies to.
type RuleRef struct {
	ID   string `json:"id"`
	Type string `json:"type"` // business_rule | master_data
}

// FieldAccessRule holds per-role view/edit access for one field on one
// request surface. Absence of a rule means deny for every role.
type FieldAccessRule struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_access_rule" json:"tenant_id"`
	FieldName       string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_access_rule" json:"field_name"`
	FieldSource     string         `gorm:"type:varchar(30);not null;uniqueIndex:idx_access_rule" json:"field_source"`
	RequestType     string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_access_rule" json:"request_type"`
	RolePermissions datatypes.JSON `gorm:"type:jsonb;not null" json:"role_permissions"` // {role: {view,edit}}
	FilterRules     datatypes.JSON `gorm:"type:jsonb" json:"filter_rules"`              // [RuleRef]
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DecodeRolePermissions parses the per-role access map
func (r *FieldAccessRule) DecodeRolePermissions() (map[string]RolePermission, error) {
	perms := map[string]RolePermission{}
	if len(r.RolePermissions) == 0 {
		return perms, nil
	}
	if err := json.Unmarshal(r.RolePermissions, &perms); err != nil {
		return nil, fmt.Errorf("malformed role permissions for field '%s': %w", r.FieldName, err)
	}
	return perms, nil
}

// EncodeRolePermissions serializes the per-role access map
func (r *FieldAccessRule) EncodeRolePermissions(perms map[string]RolePermission) error {
	data, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	r.RolePermissions = datatypes.JSON(data)
	return nil
}

// DecodeFilterRules parses attached data-filter rule references
func (r *FieldAccessRule) DecodeFilterRules() ([]RuleRef, error) {
	var rules []RuleRef
	if len(r.FilterRules) == 0 {
		return rules, nil
	}
	if err := json.Unmarshal(r.FilterRules, &rules); err != nil {
		return nil, fmt.Errorf("malformed filter rules for field '%s': %w", r.FieldName, err)
	}
	return rules, nil
}
