package service

import (
	"context"
	"errors"
	"testing"

	"agenthub/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func permRecord(role, key, category string, enabled bool) model.PermissionRecord {
	return model.PermissionRecord{
		ID:              uuid.New(),
		Role:            role,
		PermissionKey:   key,
		PermissionLabel: key,
		Category:        category,
		IsEnabled:       enabled,
	}
}

func TestComputeGroupsCollapsesActionColumns(t *testing.T) {
	records := []model.PermissionRecord{
		permRecord(model.RoleReviewer, "agents.view", "agents", true),
		permRecord(model.RoleReviewer, "agents.view_all", "agents", true),
		permRecord(model.RoleReviewer, "agents.edit", "agents", true),
		permRecord(model.RoleReviewer, "agents.delete", "agents", false),
	}

	groups := ComputeGroups(records)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "agents", g.BaseKey)
	assert.False(t, g.Standalone)

	toggle := g.Roles[model.RoleReviewer]
	assert.True(t, toggle.ViewPresent)
	assert.True(t, toggle.ViewEnabled)
	assert.Len(t, toggle.ViewIDs, 2)
	assert.True(t, toggle.EditPresent)
	// delete is disabled, so the collapsed edit column is off
	assert.False(t, toggle.EditEnabled)
	assert.Len(t, toggle.EditIDs, 2)
}

func TestComputeGroupsColumnRequiresAllRecordsEnabled(t *testing.T) {
	records := []model.PermissionRecord{
		permRecord(model.RoleVendor, "agents.view", "agents", true),
		permRecord(model.RoleVendor, "agents.view_all", "agents", false),
	}

	groups := ComputeGroups(records)
	require.Len(t, groups, 1)
	toggle := groups[0].Roles[model.RoleVendor]
	assert.True(t, toggle.ViewPresent)
	assert.False(t, toggle.ViewEnabled)
}

func TestComputeGroupsStandaloneKey(t *testing.T) {
	records := []model.PermissionRecord{
		permRecord(model.RoleEndUser, "nav.dashboard", "navigation", true),
	}

	groups := ComputeGroups(records)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.True(t, g.Standalone)
	assert.Equal(t, "nav.dashboard", g.BaseKey)

	toggle := g.Roles[model.RoleEndUser]
	assert.True(t, toggle.ViewPresent)
	assert.True(t, toggle.ViewEnabled)
	assert.False(t, toggle.EditPresent)
}

func TestComputeGroupsDeterministicOrder(t *testing.T) {
	records := []model.PermissionRecord{
		permRecord(model.RoleAdmin, "workflows.view", "workflows", true),
		permRecord(model.RoleAdmin, "agents.view", "agents", true),
		permRecord(model.RoleAdmin, "assessments.view", "agents", true),
	}

	groups := ComputeGroups(records)
	require.Len(t, groups, 3)
	assert.Equal(t, "agents", groups[0].BaseKey)
	assert.Equal(t, "assessments", groups[1].BaseKey)
	assert.Equal(t, "workflows", groups[2].BaseKey)
}

func TestPendingChangeSetLastStagedWins(t *testing.T) {
	set := NewPendingChangeSet()
	id := uuid.New()

	set.StagePermission(id, PendingChange{IsEnabled: boolPtr(true)})
	set.StagePermission(id, PendingChange{FilterRules: []model.RuleRef{{ID: "r1", Type: "business_rule"}}})
	set.StagePermission(id, PendingChange{IsEnabled: boolPtr(false)})

	assert.Equal(t, 1, set.Len())
	pending := set.Pending()[id]
	// the flag holds the latest staged value, earlier filter rules survive
	require.NotNil(t, pending.IsEnabled)
	assert.False(t, *pending.IsEnabled)
	require.Len(t, pending.FilterRules, 1)
	assert.Equal(t, "r1", pending.FilterRules[0].ID)
}

func TestPendingChangeSetSavePartialFailure(t *testing.T) {
	set := NewPendingChangeSet()
	goodID := uuid.New()
	badID := uuid.New()
	set.StagePermission(goodID, PendingChange{IsEnabled: boolPtr(true)})
	set.StagePermission(badID, PendingChange{IsEnabled: boolPtr(true)})
	set.StageRoleFilter(model.RoleVendor, []model.RuleRef{{ID: "r2", Type: "master_data"}})

	boom := errors.New("record gone")
	results := set.Save(context.Background(),
		func(_ context.Context, id uuid.UUID, _ PendingChange) error {
			if id == badID {
				return boom
			}
			return nil
		},
		func(_ context.Context, _ string, _ []model.RuleRef) error { return nil },
	)

	require.Len(t, results, 3)
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			assert.Equal(t, badID.String(), res.Target)
			assert.Equal(t, "record gone", res.Error)
		}
	}
	assert.Equal(t, 1, failed)

	// the failed edit stays staged, everything that succeeded left the set
	assert.Equal(t, 1, set.Len())
	_, stillPending := set.Pending()[badID]
	assert.True(t, stillPending)
	_, gone := set.Pending()[goodID]
	assert.False(t, gone)
}

func TestPendingChangeSetSaveRetry(t *testing.T) {
	set := NewPendingChangeSet()
	id := uuid.New()
	set.StagePermission(id, PendingChange{IsEnabled: boolPtr(true)})

	fail := func(context.Context, uuid.UUID, PendingChange) error { return errors.New("down") }
	ok := func(context.Context, uuid.UUID, PendingChange) error { return nil }
	noFilters := func(context.Context, string, []model.RuleRef) error { return nil }

	set.Save(context.Background(), fail, noFilters)
	assert.Equal(t, 1, set.Len())

	results := set.Save(context.Background(), ok, noFilters)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 0, set.Len())
}

func TestPlanSeedCreatesMissingCells(t *testing.T) {
	tenantID := uuid.New()
	defaults := []seedEntry{
		{Key: "agents.view", Label: "View agents", Category: "agents", Enabled: []string{model.RoleAdmin, model.RoleReviewer}},
	}
	roles := []string{model.RoleAdmin, model.RoleReviewer, model.RoleVendor}

	plan := planSeed(tenantID, defaults, roles, nil)
	require.Len(t, plan.Create, 3)
	assert.Empty(t, plan.Update)

	enabledByRole := map[string]bool{}
	for _, rec := range plan.Create {
		assert.Equal(t, tenantID, rec.TenantID)
		assert.Equal(t, "agents.view", rec.PermissionKey)
		enabledByRole[rec.Role] = rec.IsEnabled
	}
	assert.True(t, enabledByRole[model.RoleAdmin])
	assert.True(t, enabledByRole[model.RoleReviewer])
	assert.False(t, enabledByRole[model.RoleVendor])
}

func TestPlanSeedIsIdempotent(t *testing.T) {
	tenantID := uuid.New()
	first := planSeed(tenantID, defaultPermissions, seedRoles, nil)
	require.NotEmpty(t, first.Create)

	seeded := make([]model.PermissionRecord, len(first.Create))
	copy(seeded, first.Create)
	for i := range seeded {
		seeded[i].ID = uuid.New()
	}

	second := planSeed(tenantID, defaultPermissions, seedRoles, seeded)
	assert.Empty(t, second.Create)
	assert.Empty(t, second.Update)
}

func TestPlanSeedRefreshesMetadataButNotEnabled(t *testing.T) {
	tenantID := uuid.New()
	defaults := []seedEntry{
		{Key: "agents.view", Label: "View agents", Category: "agents", Enabled: []string{model.RoleAdmin}},
	}
	existing := []model.PermissionRecord{{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Role:            model.RoleAdmin,
		PermissionKey:   "agents.view",
		PermissionLabel: "Old label",
		Category:        "legacy",
		IsEnabled:       false, // operator turned it off; seeding must not flip it back
	}}

	plan := planSeed(tenantID, defaults, []string{model.RoleAdmin}, existing)
	assert.Empty(t, plan.Create)
	require.Len(t, plan.Update, 1)
	assert.Equal(t, existing[0].ID, plan.Update[0].ID)
	assert.Equal(t, "View agents", plan.Update[0].Fields["permission_label"])
	assert.Equal(t, "agents", plan.Update[0].Fields["category"])
	_, touchesEnabled := plan.Update[0].Fields["is_enabled"]
	assert.False(t, touchesEnabled)
}
