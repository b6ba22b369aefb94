package repository

import (
	"context"

	"agenthub/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PermissionRepository persists the flat permission record set plus
// role-level data-filter attachments.
type PermissionRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, role string) ([]model.PermissionRecord, error)
	ListByCategory(ctx context.Context, tenantID uuid.UUID, category string) ([]model.PermissionRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.PermissionRecord, error)
	Create(ctx context.Context, rec *model.PermissionRecord) error
	UpdateOne(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	BulkSetEnabled(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, enabled bool) (int64, error)
	EnabledKeysForRole(ctx context.Context, tenantID uuid.UUID, role string) ([]string, error)

	UpsertRoleFilter(ctx context.Context, tenantID uuid.UUID, role string, rules datatypes.JSON) error
	FindRoleFilter(ctx context.Context, tenantID uuid.UUID, role string) (*model.RoleDataFilter, error)
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) List(ctx context.Context, tenantID uuid.UUID, role string) ([]model.PermissionRecord, error) {
	var recs []model.PermissionRecord
	q := GetDB(ctx, r.db).Where("tenant_id = ?", tenantID)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Order("category asc, permission_key asc, role asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *permissionRepository) ListByCategory(ctx context.Context, tenantID uuid.UUID, category string) ([]model.PermissionRecord, error) {
	var recs []model.PermissionRecord
	err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND category = ?", tenantID, category).
		Order("permission_key asc, role asc").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *permissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PermissionRecord, error) {
	var rec model.PermissionRecord
	if err := GetDB(ctx, r.db).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *permissionRepository) Create(ctx context.Context, rec *model.PermissionRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

// UpdateOne applies a single independent record update. Batch saves call
// this once per pending change so a failure never poisons its siblings.
func (r *permissionRepository) UpdateOne(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.PermissionRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *permissionRepository) BulkSetEnabled(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, enabled bool) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.PermissionRecord{}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Update("is_enabled", enabled)
	return res.RowsAffected, res.Error
}

func (r *permissionRepository) EnabledKeysForRole(ctx context.Context, tenantID uuid.UUID, role string) ([]string, error) {
	var keys []string
	err := GetDB(ctx, r.db).Model(&model.PermissionRecord{}).
		Where("tenant_id = ? AND role = ? AND is_enabled = true", tenantID, role).
		Pluck("permission_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *permissionRepository) UpsertRoleFilter(ctx context.Context, tenantID uuid.UUID, role string, rules datatypes.JSON) error {
	db := GetDB(ctx, r.db)
	var existing model.RoleDataFilter
	err := db.Where("tenant_id = ? AND role = ?", tenantID, role).First(&existing).Error
	if err == nil {
		existing.FilterRules = rules
		return db.Save(&existing).Error
	}
	return db.Create(&model.RoleDataFilter{TenantID: tenantID, Role: role, FilterRules: rules}).Error
}

func (r *permissionRepository) FindRoleFilter(ctx context.Context, tenantID uuid.UUID, role string) (*model.RoleDataFilter, error) {
	var filter model.RoleDataFilter
	err := GetDB(ctx, r.db).Where("tenant_id = ? AND role = ?", tenantID, role).First(&filter).Error
	if err != nil {
		return nil, err
	}
	return &filter, nil
}
