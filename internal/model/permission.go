package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Standard action tokens a permission key may end with. view/view_all
// collapse into the grouped "view" column; the rest into "edit".
const (
	ActionView      = "view"
	ActionViewAll   = "view_all"
	ActionEdit      = "edit"
	ActionCreate    = "create"
	ActionDelete    = "delete"
	ActionApprove   = "approve"
	ActionReject    = "reject"
	ActionManageAll = "manage_all"
)

// Permission categories
const (
	CategoryAgentManagement = "agent_management"
	CategoryAssessment      = "assessment"
	CategoryWorkflow        = "workflow"
	CategorySecurity        = "security"
	CategoryAdministration  = "administration"
	CategoryNavigation      = "navigation"
)

// Data-filter rule types
const (
	FilterRuleBusiness   = "business_rule"
	FilterRuleMasterData = "master_data"
)

// PermissionRecord is one atomic (role, permission_key) capability row.
// Grouped view/edit toggles are recomputed from these on every read; there
// is no persisted group entity.
type PermissionRecord struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID              uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_perm_role_key" json:"tenant_id"`
	Role                  string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_perm_role_key" json:"role"`
	PermissionKey         string         `gorm:"type:varchar(150);not null;uniqueIndex:idx_perm_role_key" json:"permission_key"`
	PermissionLabel       string         `gorm:"type:varchar(255);not null" json:"permission_label"`
	PermissionDescription string         `gorm:"type:text" json:"permission_description"`
	Category              string         `gorm:"type:varchar(50);not null;index" json:"category"`
	IsEnabled             bool           `gorm:"default:false" json:"is_enabled"`
	FilterRules           datatypes.JSON `gorm:"type:jsonb" json:"filter_rules"` // [RuleRef]
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// DecodeFilterRules parses attached data-filter rule references
func (p *PermissionRecord) DecodeFilterRules() ([]RuleRef, error) {
	var rules []RuleRef
	if len(p.FilterRules) == 0 {
		return rules, nil
	}
	if err := json.Unmarshal(p.FilterRules, &rules); err != nil {
		return nil, fmt.Errorf("malformed filter rules for permission '%s': %w", p.PermissionKey, err)
	}
	return rules, nil
}

// RoleDataFilter attaches data-filter rules at the role level, layered on
// top of the per-permission view/edit booleans.
type RoleDataFilter struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_role_filter" json:"tenant_id"`
	Role        string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_role_filter" json:"role"`
	FilterRules datatypes.JSON `gorm:"type:jsonb;not null" json:"filter_rules"` // [RuleRef]
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SplitPermissionKey splits a dot-separated permission key into its base key
// and trailing action token. Keys that do not end in a standard action token
// are standalone: base is the whole key and action is empty.
func SplitPermissionKey(key string) (base, action string) {
	idx := strings.LastIndex(key, ".")
	if idx < 0 {
		return key, ""
	}
	leaf := key[idx+1:]
	switch leaf {
	case ActionView, ActionViewAll, ActionEdit, ActionCreate, ActionDelete,
		ActionApprove, ActionReject, ActionManageAll:
		return key[:idx], leaf
	}
	return key, ""
}

// ViewAction reports whether the action token maps to the "view" column
func ViewAction(action string) bool {
	return action == ActionView || action == ActionViewAll
}
