package service

import (
	"context"

	"agenthub/internal/model"
	"agenthub/pkg/apperr"

	"github.com/google/uuid"
)

// seedEntry is one default permission record. Enabled lists the roles the
// permission ships enabled for; other roles get a disabled record so the
// matrix shows every cell.
type seedEntry struct {
	Key      string
	Label    string
	Category string
	Enabled  []string
}

var seedRoles = []string{
	model.RoleAdmin, model.RoleApprover, model.RoleReviewer, model.RoleVendor, model.RoleEndUser,
}

var defaultPermissions = []seedEntry{
	{"agents.view", "View agents", model.CategoryAgentManagement, []string{model.RoleAdmin, model.RoleApprover, model.RoleReviewer, model.RoleVendor, model.RoleEndUser}},
	{"agents.view_all", "View all agents", model.CategoryAgentManagement, []string{model.RoleAdmin, model.RoleApprover, model.RoleReviewer}},
	{"agents.create", "Register agents", model.CategoryAgentManagement, []string{model.RoleAdmin, model.RoleVendor}},
	{"agents.edit", "Edit agents", model.CategoryAgentManagement, []string{model.RoleAdmin, model.RoleVendor}},
	{"agents.delete", "Delete agents", model.CategoryAgentManagement, []string{model.RoleAdmin}},
	{"agents.approve", "Approve agents", model.CategoryAgentManagement, []string{model.RoleAdmin, model.RoleApprover}},
	{"agents.reject", "Reject agents", model.CategoryAgentManagement, []string{model.RoleAdmin, model.RoleApprover}},

	{"assessments.view", "View assessments", model.CategoryAssessment, []string{model.RoleAdmin, model.RoleApprover, model.RoleReviewer, model.RoleVendor}},
	{"assessments.edit", "Review assessments", model.CategoryAssessment, []string{model.RoleAdmin, model.RoleReviewer}},
	{"assessments.create", "Submit assessment responses", model.CategoryAssessment, []string{model.RoleVendor}},

	{"workflows.view", "View workflows", model.CategoryWorkflow, []string{model.RoleAdmin, model.RoleApprover, model.RoleReviewer}},
	{"workflows.manage_all", "Manage workflows", model.CategoryWorkflow, []string{model.RoleAdmin}},

	{"incidents.view", "View security incidents", model.CategorySecurity, []string{model.RoleAdmin, model.RoleApprover, model.RoleReviewer}},
	{"incidents.edit", "Manage security incidents", model.CategorySecurity, []string{model.RoleAdmin, model.RoleReviewer}},

	{"fields.view", "View field catalog", model.CategoryAdministration, []string{model.RoleAdmin}},
	{"fields.manage_all", "Manage field catalog", model.CategoryAdministration, []string{model.RoleAdmin}},
	{"layouts.manage_all", "Manage form layouts", model.CategoryAdministration, []string{model.RoleAdmin}},
	{"permissions.manage_all", "Manage permissions", model.CategoryAdministration, []string{model.RoleAdmin}},
	{"users.view", "View users", model.CategoryAdministration, []string{model.RoleAdmin, model.RoleApprover}},
	{"users.manage_all", "Manage users", model.CategoryAdministration, []string{model.RoleAdmin}},
	{"audit_logs.view", "View audit logs", model.CategoryAdministration, []string{model.RoleAdmin}},

	{"nav.dashboard", "Dashboard", model.CategoryNavigation, []string{model.RoleAdmin, model.RoleApprover, model.RoleReviewer, model.RoleVendor, model.RoleEndUser}},
	{"nav.reports", "Reports", model.CategoryNavigation, []string{model.RoleAdmin, model.RoleApprover}},
}

// seedPlan is what a seeding run will do, computed without touching the
// database so it can be tested directly.
type seedPlan struct {
	Create []model.PermissionRecord
	// Update pairs an existing record id with refreshed metadata. is_enabled
	// is deliberately absent, preserving what operators have customized.
	Update []seedUpdate
}

type seedUpdate struct {
	ID     uuid.UUID
	Fields map[string]interface{}
}

// planSeed diffs the default catalog against existing records. Missing
// (role, key) cells are created with the default enabled flag; existing
// cells only have label and category refreshed when stale.
func planSeed(tenantID uuid.UUID, defaults []seedEntry, roles []string, existing []model.PermissionRecord) seedPlan {
	type cell struct{ role, key string }
	byCell := make(map[cell]*model.PermissionRecord, len(existing))
	for i := range existing {
		byCell[cell{existing[i].Role, existing[i].PermissionKey}] = &existing[i]
	}

	var plan seedPlan
	for _, entry := range defaults {
		enabled := map[string]bool{}
		for _, role := range entry.Enabled {
			enabled[role] = true
		}
		for _, role := range roles {
			rec, ok := byCell[cell{role, entry.Key}]
			if !ok {
				plan.Create = append(plan.Create, model.PermissionRecord{
					TenantID:        tenantID,
					Role:            role,
					PermissionKey:   entry.Key,
					PermissionLabel: entry.Label,
					Category:        entry.Category,
					IsEnabled:       enabled[role],
				})
				continue
			}
			fields := map[string]interface{}{}
			if rec.PermissionLabel != entry.Label {
				fields["permission_label"] = entry.Label
			}
			if rec.Category != entry.Category {
				fields["category"] = entry.Category
			}
			if len(fields) > 0 {
				plan.Update = append(plan.Update, seedUpdate{ID: rec.ID, Fields: fields})
			}
		}
	}
	return plan
}

// SeedDefaults makes the tenant's permission matrix match the default
// catalog. Safe to run on every startup: re-running against an already
// seeded tenant is a no-op, and customized is_enabled flags survive.
func (s *permissionService) SeedDefaults(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID) (int, int, error) {
	existing, err := s.repo.List(ctx, tenantID, "")
	if err != nil {
		return 0, 0, apperr.Transport(err, "failed to load permissions")
	}

	plan := planSeed(tenantID, defaultPermissions, seedRoles, existing)
	for i := range plan.Create {
		if err := s.repo.Create(ctx, &plan.Create[i]); err != nil {
			return 0, 0, apperr.Transport(err, "failed to seed permission %s/%s", plan.Create[i].Role, plan.Create[i].PermissionKey)
		}
	}
	for _, upd := range plan.Update {
		if err := s.repo.UpdateOne(ctx, upd.ID, upd.Fields); err != nil {
			return 0, 0, apperr.Transport(err, "failed to refresh permission metadata")
		}
	}

	if len(plan.Create) > 0 || len(plan.Update) > 0 {
		s.audit.Record(ctx, tenantID, actorID, model.ActionSeedPermissions, "", "", map[string]interface{}{
			"created": len(plan.Create), "updated": len(plan.Update),
		})
	}
	return len(plan.Create), len(plan.Update), nil
}
