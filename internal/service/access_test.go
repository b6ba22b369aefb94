package service

import (
	"context"
	"testing"

	"agenthub/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeFieldRepo backs access resolution tests with an in-memory rule set
type fakeFieldRepo struct {
	rules []model.FieldAccessRule
}

func (f *fakeFieldRepo) CreateField(context.Context, *model.FieldDefinition) error { return nil }
func (f *fakeFieldRepo) UpdateField(context.Context, *model.FieldDefinition) error { return nil }
func (f *fakeFieldRepo) DeleteField(context.Context, uuid.UUID) error              { return nil }
func (f *fakeFieldRepo) FindFieldByName(context.Context, uuid.UUID, string) (*model.FieldDefinition, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeFieldRepo) ListFields(context.Context, uuid.UUID, bool) ([]model.FieldDefinition, error) {
	return nil, nil
}
func (f *fakeFieldRepo) FindAccessRule(_ context.Context, _ uuid.UUID, fieldSource, fieldName, requestType string) (*model.FieldAccessRule, error) {
	for i := range f.rules {
		r := &f.rules[i]
		if r.FieldSource == fieldSource && r.FieldName == fieldName && r.RequestType == requestType {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeFieldRepo) ListAccessRules(context.Context, uuid.UUID, string) ([]model.FieldAccessRule, error) {
	return f.rules, nil
}
func (f *fakeFieldRepo) UpsertAccessRule(_ context.Context, rule *model.FieldAccessRule) error {
	f.rules = append(f.rules, *rule)
	return nil
}

func accessRule(t *testing.T, source, name, requestType string, perms map[string]model.RolePermission) model.FieldAccessRule {
	t.Helper()
	rule := model.FieldAccessRule{
		FieldSource: source,
		FieldName:   name,
		RequestType: requestType,
	}
	require.NoError(t, rule.EncodeRolePermissions(perms))
	return rule
}

func TestResolveDenyByDefault(t *testing.T) {
	svc := NewAccessService(&fakeFieldRepo{})

	// no rule at all
	access, err := svc.Resolve(context.Background(), uuid.New(), model.RoleVendor, model.RequestTypeVendor, model.FieldSourceAgent, "name")
	require.NoError(t, err)
	assert.False(t, access.View)
	assert.False(t, access.Edit)
}

func TestResolveRoleAbsentFromRuleIsDenied(t *testing.T) {
	repo := &fakeFieldRepo{rules: []model.FieldAccessRule{
		accessRule(t, model.FieldSourceAgent, "name", model.RequestTypeVendor, map[string]model.RolePermission{
			model.RoleApprover: {View: true},
		}),
	}}
	svc := NewAccessService(repo)

	access, err := svc.Resolve(context.Background(), uuid.New(), model.RoleVendor, model.RequestTypeVendor, model.FieldSourceAgent, "name")
	require.NoError(t, err)
	assert.False(t, access.View)
	assert.False(t, access.Edit)
}

func TestResolveEditImpliesView(t *testing.T) {
	// stored rule says edit without view; resolution repairs it
	repo := &fakeFieldRepo{rules: []model.FieldAccessRule{
		accessRule(t, model.FieldSourceAgent, "name", model.RequestTypeVendor, map[string]model.RolePermission{
			model.RoleVendor: {Edit: true},
		}),
	}}
	svc := NewAccessService(repo)

	access, err := svc.Resolve(context.Background(), uuid.New(), model.RoleVendor, model.RequestTypeVendor, model.FieldSourceAgent, "name")
	require.NoError(t, err)
	assert.True(t, access.View)
	assert.True(t, access.Edit)
}

func TestResolveAllKeysBySourceAndName(t *testing.T) {
	repo := &fakeFieldRepo{rules: []model.FieldAccessRule{
		accessRule(t, model.FieldSourceAgent, "name", model.RequestTypeVendor, map[string]model.RolePermission{
			model.RoleVendor: {View: true},
		}),
		accessRule(t, model.FieldSourceCustom, "soc2_report", model.RequestTypeVendor, map[string]model.RolePermission{
			model.RoleVendor: {View: true, Edit: true},
		}),
	}}
	svc := NewAccessService(repo)

	all, err := svc.ResolveAll(context.Background(), uuid.New(), model.RoleVendor, model.RequestTypeVendor)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all["agent:name"].View)
	assert.False(t, all["agent:name"].Edit)
	assert.True(t, all["custom:soc2_report"].Edit)
}

func TestNormalizeRolePermissionEditImpliesView(t *testing.T) {
	out := normalizeRolePermission(model.RolePermission{Edit: true})
	assert.True(t, out.View)
	assert.True(t, out.Edit)

	out = normalizeRolePermission(model.RolePermission{View: true})
	assert.True(t, out.View)
	assert.False(t, out.Edit)

	out = normalizeRolePermission(model.RolePermission{})
	assert.False(t, out.View)
	assert.False(t, out.Edit)
}
