package repository

import (
	"context"

	"agenthub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FieldRepository covers tenant-custom field definitions and field access rules
type FieldRepository interface {
	CreateField(ctx context.Context, field *model.FieldDefinition) error
	UpdateField(ctx context.Context, field *model.FieldDefinition) error
	DeleteField(ctx context.Context, id uuid.UUID) error
	FindFieldByName(ctx context.Context, tenantID uuid.UUID, fieldName string) (*model.FieldDefinition, error)
	ListFields(ctx context.Context, tenantID uuid.UUID, enabledOnly bool) ([]model.FieldDefinition, error)

	FindAccessRule(ctx context.Context, tenantID uuid.UUID, fieldSource, fieldName, requestType string) (*model.FieldAccessRule, error)
	ListAccessRules(ctx context.Context, tenantID uuid.UUID, requestType string) ([]model.FieldAccessRule, error)
	UpsertAccessRule(ctx context.Context, rule *model.FieldAccessRule) error
}

type fieldRepository struct {
	db *gorm.DB
}

func NewFieldRepository(db *gorm.DB) FieldRepository {
	return &fieldRepository{db: db}
}

func (r *fieldRepository) CreateField(ctx context.Context, field *model.FieldDefinition) error {
	return GetDB(ctx, r.db).Create(field).Error
}

func (r *fieldRepository) UpdateField(ctx context.Context, field *model.FieldDefinition) error {
	return GetDB(ctx, r.db).Save(field).Error
}

func (r *fieldRepository) DeleteField(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.FieldDefinition{}).Error
}

func (r *fieldRepository) FindFieldByName(ctx context.Context, tenantID uuid.UUID, fieldName string) (*model.FieldDefinition, error) {
	var field model.FieldDefinition
	err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND field_name = ?", tenantID, fieldName).
		First(&field).Error
	if err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *fieldRepository) ListFields(ctx context.Context, tenantID uuid.UUID, enabledOnly bool) ([]model.FieldDefinition, error) {
	var fields []model.FieldDefinition
	q := GetDB(ctx, r.db).Where("tenant_id = ?", tenantID)
	if enabledOnly {
		q = q.Where("is_enabled = true")
	}
	if err := q.Order("field_name asc").Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *fieldRepository) FindAccessRule(ctx context.Context, tenantID uuid.UUID, fieldSource, fieldName, requestType string) (*model.FieldAccessRule, error) {
	var rule model.FieldAccessRule
	err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND field_source = ? AND field_name = ? AND request_type = ?",
			tenantID, fieldSource, fieldName, requestType).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *fieldRepository) ListAccessRules(ctx context.Context, tenantID uuid.UUID, requestType string) ([]model.FieldAccessRule, error) {
	var rules []model.FieldAccessRule
	q := GetDB(ctx, r.db).Where("tenant_id = ?", tenantID)
	if requestType != "" {
		q = q.Where("request_type = ?", requestType)
	}
	if err := q.Order("field_name asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *fieldRepository) UpsertAccessRule(ctx context.Context, rule *model.FieldAccessRule) error {
	db := GetDB(ctx, r.db)
	var existing model.FieldAccessRule
	err := db.Where("tenant_id = ? AND field_source = ? AND field_name = ? AND request_type = ?",
		rule.TenantID, rule.FieldSource, rule.FieldName, rule.RequestType).
		First(&existing).Error
	if err == nil {
		rule.ID = existing.ID
		rule.CreatedAt = existing.CreatedAt
		return db.Save(rule).Error
	}
	return db.Create(rule).Error
}
