package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"agenthub/internal/model"
	"agenthub/internal/repository"
	"agenthub/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- Grouping ---

// GroupToggle is one role's collapsed view/edit pair within a permission
// group. A column is enabled only when every record feeding it is enabled;
// RecordIDs carries the underlying records so the editor can toggle them
// together.
type GroupToggle struct {
	ViewPresent bool        `json:"view_present"`
	ViewEnabled bool        `json:"view_enabled"`
	ViewIDs     []uuid.UUID `json:"view_ids,omitempty"`
	EditPresent bool        `json:"edit_present"`
	EditEnabled bool        `json:"edit_enabled"`
	EditIDs     []uuid.UUID `json:"edit_ids,omitempty"`
}

// PermissionGroup is the derived grouping of permission records sharing a
// category and base key. It is recomputed from the flat record set on every
// read; nothing here is persisted.
type PermissionGroup struct {
	Category   string                 `json:"category"`
	BaseKey    string                 `json:"base_key"`
	Label      string                 `json:"label"`
	Standalone bool                   `json:"standalone"` // non-standard leaf, view column only
	Roles      map[string]GroupToggle `json:"roles"`
}

// ComputeGroups derives permission groups from flat records. view/view_all
// collapse into the view column; edit/manage_all/create/delete/approve/
// reject into the edit column. Keys without a standard action token become
// standalone groups mapped to the view column only.
func ComputeGroups(records []model.PermissionRecord) []PermissionGroup {
	type groupKey struct{ category, base string }
	grouped := map[groupKey]*PermissionGroup{}
	order := []groupKey{}

	for i := range records {
		rec := &records[i]
		base, action := model.SplitPermissionKey(rec.PermissionKey)
		key := groupKey{rec.Category, base}

		g, ok := grouped[key]
		if !ok {
			g = &PermissionGroup{
				Category:   rec.Category,
				BaseKey:    base,
				Label:      rec.PermissionLabel,
				Standalone: action == "",
				Roles:      map[string]GroupToggle{},
			}
			grouped[key] = g
			order = append(order, key)
		}

		toggle := g.Roles[rec.Role]
		if action == "" || model.ViewAction(action) {
			if toggle.ViewPresent {
				toggle.ViewEnabled = toggle.ViewEnabled && rec.IsEnabled
			} else {
				toggle.ViewPresent = true
				toggle.ViewEnabled = rec.IsEnabled
			}
			toggle.ViewIDs = append(toggle.ViewIDs, rec.ID)
		} else {
			if toggle.EditPresent {
				toggle.EditEnabled = toggle.EditEnabled && rec.IsEnabled
			} else {
				toggle.EditPresent = true
				toggle.EditEnabled = rec.IsEnabled
			}
			toggle.EditIDs = append(toggle.EditIDs, rec.ID)
		}
		g.Roles[rec.Role] = toggle
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].category != order[j].category {
			return order[i].category < order[j].category
		}
		return order[i].base < order[j].base
	})
	out := make([]PermissionGroup, 0, len(order))
	for _, key := range order {
		out = append(out, *grouped[key])
	}
	return out
}

// --- Pending changes ---

// PendingChange is one staged, not-yet-persisted permission edit. Nil
// fields are untouched on save.
type PendingChange struct {
	IsEnabled   *bool           `json:"is_enabled,omitempty"`
	FilterRules []model.RuleRef `json:"filter_rules,omitempty"`
}

// merge overlays next onto the receiver; the last staged value per field wins
func (c PendingChange) merge(next PendingChange) PendingChange {
	if next.IsEnabled != nil {
		c.IsEnabled = next.IsEnabled
	}
	if next.FilterRules != nil {
		c.FilterRules = next.FilterRules
	}
	return c
}

// SaveResult reports the outcome of one independent update within a batch save
type SaveResult struct {
	Target string `json:"target"` // permission id or "role:<name>"
	Err    error  `json:"-"`
	Error  string `json:"error,omitempty"`
}

// PendingChangeSet accumulates staged permission and role-filter edits for
// one editing session. The last staged change for a given target wins.
// Saving flushes each change as an independent update: succeeded targets
// leave the set, failed targets stay pending with their error surfaced.
type PendingChangeSet struct {
	mu          sync.Mutex
	permissions map[uuid.UUID]PendingChange
	roleFilters map[string][]model.RuleRef
}

func NewPendingChangeSet() *PendingChangeSet {
	return &PendingChangeSet{
		permissions: map[uuid.UUID]PendingChange{},
		roleFilters: map[string][]model.RuleRef{},
	}
}

// StagePermission stages an edit for one permission record
func (s *PendingChangeSet) StagePermission(id uuid.UUID, change PendingChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[id] = s.permissions[id].merge(change)
}

// StageRoleFilter stages a role-level data-filter attachment
func (s *PendingChangeSet) StageRoleFilter(role string, rules []model.RuleRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleFilters[role] = rules
}

// Len reports how many targets have unsaved edits
func (s *PendingChangeSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.permissions) + len(s.roleFilters)
}

// Pending returns a snapshot of the staged permission edits
func (s *PendingChangeSet) Pending() map[uuid.UUID]PendingChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]PendingChange, len(s.permissions))
	for id, c := range s.permissions {
		out[id] = c
	}
	return out
}

// Save flushes every staged change through the supplied appliers, each call
// independent. There is no batch rollback: what succeeded stays applied and
// leaves the set; what failed stays staged so the work is not lost.
func (s *PendingChangeSet) Save(
	ctx context.Context,
	applyPermission func(ctx context.Context, id uuid.UUID, change PendingChange) error,
	applyRoleFilter func(ctx context.Context, role string, rules []model.RuleRef) error,
) []SaveResult {
	s.mu.Lock()
	permIDs := make([]uuid.UUID, 0, len(s.permissions))
	for id := range s.permissions {
		permIDs = append(permIDs, id)
	}
	roles := make([]string, 0, len(s.roleFilters))
	for role := range s.roleFilters {
		roles = append(roles, role)
	}
	s.mu.Unlock()

	sort.Slice(permIDs, func(i, j int) bool { return permIDs[i].String() < permIDs[j].String() })
	sort.Strings(roles)

	results := make([]SaveResult, 0, len(permIDs)+len(roles))
	for _, id := range permIDs {
		s.mu.Lock()
		change := s.permissions[id]
		s.mu.Unlock()

		res := SaveResult{Target: id.String()}
		if err := applyPermission(ctx, id, change); err != nil {
			res.Err = err
			res.Error = err.Error()
		} else {
			s.mu.Lock()
			delete(s.permissions, id)
			s.mu.Unlock()
		}
		results = append(results, res)
	}
	for _, role := range roles {
		s.mu.Lock()
		rules := s.roleFilters[role]
		s.mu.Unlock()

		res := SaveResult{Target: "role:" + role}
		if err := applyRoleFilter(ctx, role, rules); err != nil {
			res.Err = err
			res.Error = err.Error()
		} else {
			s.mu.Lock()
			delete(s.roleFilters, role)
			s.mu.Unlock()
		}
		results = append(results, res)
	}
	return results
}

// --- DTOs ---

type PermissionChangeItem struct {
	PermissionID string          `json:"permission_id" binding:"required"`
	IsEnabled    *bool           `json:"is_enabled"`
	FilterRules  []model.RuleRef `json:"filter_rules"`
}

type RoleFilterItem struct {
	Role        string          `json:"role" binding:"required"`
	FilterRules []model.RuleRef `json:"filter_rules" binding:"required"`
}

type SavePermissionsRequest struct {
	Changes     []PermissionChangeItem `json:"changes"`
	RoleFilters []RoleFilterItem       `json:"role_filters"`
}

type BulkToggleRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required,min=1"`
	Enabled       bool     `json:"enabled"`
}

// --- Interface ---

type PermissionService interface {
	// GetByCategory returns records grouped category -> role -> records.
	// An empty role returns every role.
	GetByCategory(ctx context.Context, tenantID uuid.UUID, role string) (map[string]map[string][]model.PermissionRecord, error)
	ComputeGroups(ctx context.Context, tenantID uuid.UUID, category string) ([]PermissionGroup, error)
	SaveChanges(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req SavePermissionsRequest) ([]SaveResult, error)
	BulkToggle(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req BulkToggleRequest) (int64, error)
	SeedDefaults(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID) (created int, updated int, err error)
	EnabledKeys(ctx context.Context, tenantID uuid.UUID, role string) ([]string, error)
	RoleFilter(ctx context.Context, tenantID uuid.UUID, role string) ([]model.RuleRef, error)
}

type permissionService struct {
	repo  repository.PermissionRepository
	audit AuditRecorder
}

func NewPermissionService(repo repository.PermissionRepository, audit AuditRecorder) PermissionService {
	return &permissionService{repo: repo, audit: audit}
}

func (s *permissionService) GetByCategory(ctx context.Context, tenantID uuid.UUID, role string) (map[string]map[string][]model.PermissionRecord, error) {
	records, err := s.repo.List(ctx, tenantID, role)
	if err != nil {
		return nil, apperr.Transport(err, "failed to list permissions")
	}
	out := map[string]map[string][]model.PermissionRecord{}
	for _, rec := range records {
		byRole, ok := out[rec.Category]
		if !ok {
			byRole = map[string][]model.PermissionRecord{}
			out[rec.Category] = byRole
		}
		byRole[rec.Role] = append(byRole[rec.Role], rec)
	}
	return out, nil
}

func (s *permissionService) ComputeGroups(ctx context.Context, tenantID uuid.UUID, category string) ([]PermissionGroup, error) {
	records, err := s.repo.ListByCategory(ctx, tenantID, category)
	if err != nil {
		return nil, apperr.Transport(err, "failed to list permissions")
	}
	return ComputeGroups(records), nil
}

// SaveChanges flushes a batch of staged edits as independent updates,
// best-effort. The response carries per-item outcomes; callers keep failed
// items staged on their side.
func (s *permissionService) SaveChanges(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req SavePermissionsRequest) ([]SaveResult, error) {
	set := NewPendingChangeSet()
	for _, item := range req.Changes {
		id, err := uuid.Parse(item.PermissionID)
		if err != nil {
			return nil, apperr.Validation("invalid permission id '%s': %v", item.PermissionID, err)
		}
		set.StagePermission(id, PendingChange{IsEnabled: item.IsEnabled, FilterRules: item.FilterRules})
	}
	for _, item := range req.RoleFilters {
		if !model.ValidRole(item.Role) {
			return nil, apperr.Validation("unknown role '%s'", item.Role)
		}
		set.StageRoleFilter(item.Role, item.FilterRules)
	}

	results := set.Save(ctx,
		func(ctx context.Context, id uuid.UUID, change PendingChange) error {
			return s.applyPermissionChange(ctx, tenantID, id, change)
		},
		func(ctx context.Context, role string, rules []model.RuleRef) error {
			var payload datatypes.JSON
			if err := encodeJSONColumn(&payload, rules); err != nil {
				return apperr.Validation("malformed filter rules: %v", err)
			}
			if err := s.repo.UpsertRoleFilter(ctx, tenantID, role, payload); err != nil {
				return apperr.Transport(err, "failed to save role filter")
			}
			return nil
		},
	)

	s.audit.Record(ctx, tenantID, actorID, model.ActionSavePermissions, "", "", map[string]interface{}{
		"changes": len(req.Changes), "role_filters": len(req.RoleFilters),
	})
	return results, nil
}

func (s *permissionService) applyPermissionChange(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, change PendingChange) error {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("permission no longer exists")
		}
		return apperr.Transport(err, "failed to load permission")
	}
	if rec.TenantID != tenantID {
		return apperr.NotFound("permission no longer exists")
	}

	fields := map[string]interface{}{}
	if change.IsEnabled != nil {
		fields["is_enabled"] = *change.IsEnabled
	}
	if change.FilterRules != nil {
		var payload datatypes.JSON
		if err := encodeJSONColumn(&payload, change.FilterRules); err != nil {
			return apperr.Validation("malformed filter rules: %v", err)
		}
		fields["filter_rules"] = payload
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.repo.UpdateOne(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("permission no longer exists")
		}
		return apperr.Transport(err, "failed to update permission")
	}
	return nil
}

// BulkToggle applies immediately, bypassing the pending-change staging.
// It exists for category-wide and role-wide enable/disable-all actions.
func (s *permissionService) BulkToggle(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req BulkToggleRequest) (int64, error) {
	ids := make([]uuid.UUID, 0, len(req.PermissionIDs))
	for _, raw := range req.PermissionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return 0, apperr.Validation("invalid permission id '%s': %v", raw, err)
		}
		ids = append(ids, id)
	}

	affected, err := s.repo.BulkSetEnabled(ctx, tenantID, ids, req.Enabled)
	if err != nil {
		return 0, apperr.Transport(err, "failed to bulk toggle permissions")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionBulkTogglePerms, "", "", map[string]interface{}{
		"count": affected, "enabled": req.Enabled,
	})
	return affected, nil
}

func (s *permissionService) EnabledKeys(ctx context.Context, tenantID uuid.UUID, role string) ([]string, error) {
	keys, err := s.repo.EnabledKeysForRole(ctx, tenantID, role)
	if err != nil {
		return nil, apperr.Transport(err, "failed to load permission keys")
	}
	return keys, nil
}

// RoleFilter returns the data-filter rule refs attached at the role level.
// A role without a filter record has no restrictions.
func (s *permissionService) RoleFilter(ctx context.Context, tenantID uuid.UUID, role string) ([]model.RuleRef, error) {
	if !model.ValidRole(role) {
		return nil, apperr.Validation("unknown role '%s'", role)
	}
	filter, err := s.repo.FindRoleFilter(ctx, tenantID, role)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []model.RuleRef{}, nil
		}
		return nil, apperr.Transport(err, "failed to load role filter")
	}
	var rules []model.RuleRef
	if len(filter.FilterRules) > 0 {
		if err := json.Unmarshal(filter.FilterRules, &rules); err != nil {
			return nil, apperr.Validation("stored role filter is malformed: %v", err)
		}
	}
	if rules == nil {
		rules = []model.RuleRef{}
	}
	return rules, nil
}
