package repository

import (
	"context"

	"agenthub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowRepository persists workflow templates as whole ordered step lists.
// Step edits always travel as the final full list, never partial patches.
type WorkflowRepository interface {
	CreateTemplate(ctx context.Context, tpl *model.WorkflowTemplate) error
	FindTemplate(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error)
	ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]model.WorkflowTemplate, error)
	UpdateTemplateMeta(ctx context.Context, tpl *model.WorkflowTemplate) error
	ReplaceSteps(ctx context.Context, templateID uuid.UUID, steps []model.WorkflowStep) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	CreateGroup(ctx context.Context, group *model.ApproverGroup) error
	FindGroup(ctx context.Context, id uuid.UUID) (*model.ApproverGroup, error)
	ListGroups(ctx context.Context, tenantID uuid.UUID) ([]model.ApproverGroup, error)
	ReplaceGroupMembers(ctx context.Context, groupID uuid.UUID, memberIDs []uuid.UUID) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error
}

type workflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) CreateTemplate(ctx context.Context, tpl *model.WorkflowTemplate) error {
	return GetDB(ctx, r.db).Create(tpl).Error
}

func (r *workflowRepository) FindTemplate(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error) {
	var tpl model.WorkflowTemplate
	err := GetDB(ctx, r.db).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number asc") }).
		First(&tpl, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *workflowRepository) ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]model.WorkflowTemplate, error) {
	var tpls []model.WorkflowTemplate
	err := GetDB(ctx, r.db).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number asc") }).
		Where("tenant_id = ?", tenantID).
		Order("created_at asc").Find(&tpls).Error
	if err != nil {
		return nil, err
	}
	return tpls, nil
}

func (r *workflowRepository) UpdateTemplateMeta(ctx context.Context, tpl *model.WorkflowTemplate) error {
	return GetDB(ctx, r.db).Model(&model.WorkflowTemplate{}).
		Where("id = ?", tpl.ID).
		Updates(map[string]interface{}{
			"name":        tpl.Name,
			"description": tpl.Description,
			"agent_type":  tpl.AgentType,
			"is_active":   tpl.IsActive,
		}).Error
}

// ReplaceSteps swaps the template's step list atomically
func (r *workflowRepository) ReplaceSteps(ctx context.Context, templateID uuid.UUID, steps []model.WorkflowStep) error {
	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", templateID).Delete(&model.WorkflowStep{}).Error; err != nil {
			return err
		}
		for i := range steps {
			steps[i].TemplateID = templateID
		}
		if len(steps) == 0 {
			return nil
		}
		return tx.Create(&steps).Error
	})
}

func (r *workflowRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).Delete(&model.WorkflowStep{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.WorkflowTemplate{}).Error
	})
}

func (r *workflowRepository) CreateGroup(ctx context.Context, group *model.ApproverGroup) error {
	return GetDB(ctx, r.db).Create(group).Error
}

func (r *workflowRepository) FindGroup(ctx context.Context, id uuid.UUID) (*model.ApproverGroup, error) {
	var group model.ApproverGroup
	if err := GetDB(ctx, r.db).Preload("Members").First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *workflowRepository) ListGroups(ctx context.Context, tenantID uuid.UUID) ([]model.ApproverGroup, error) {
	var groups []model.ApproverGroup
	err := GetDB(ctx, r.db).Preload("Members").
		Where("tenant_id = ?", tenantID).
		Order("name asc").Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *workflowRepository) ReplaceGroupMembers(ctx context.Context, groupID uuid.UUID, memberIDs []uuid.UUID) error {
	db := GetDB(ctx, r.db)
	var group model.ApproverGroup
	if err := db.First(&group, "id = ?", groupID).Error; err != nil {
		return err
	}
	var members []model.User
	if len(memberIDs) > 0 {
		if err := db.Where("id IN ?", memberIDs).Find(&members).Error; err != nil {
			return err
		}
	}
	return db.Model(&group).Association("Members").Replace(members)
}

func (r *workflowRepository) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	var group model.ApproverGroup
	if err := db.First(&group, "id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Model(&group).Association("Members").Clear(); err != nil {
		return err
	}
	return db.Delete(&group).Error
}
