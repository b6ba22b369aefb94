package repository

import (
	"context"

	"agenthub/internal/model"
	"agenthub/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AgentFilter narrows agent listing. Zero values mean no filter.
type AgentFilter struct {
	Status    string
	AgentType string
	OwnerID   *uuid.UUID
	Search    string // matches name or vendor_name, case-insensitive
}

type AgentRepository interface {
	Create(ctx context.Context, agent *model.Agent) error
	Update(ctx context.Context, agent *model.Agent) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Agent, error)
	List(ctx context.Context, tenantID uuid.UUID, filter AgentFilter, p pagination.Params) ([]model.Agent, int64, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error)
	CountByType(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error)
}

type agentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) Create(ctx context.Context, agent *model.Agent) error {
	return GetDB(ctx, r.db).Create(agent).Error
}

func (r *agentRepository) Update(ctx context.Context, agent *model.Agent) error {
	return GetDB(ctx, r.db).Save(agent).Error
}

func (r *agentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Agent{}).Error
}

func (r *agentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Agent, error) {
	var agent model.Agent
	err := GetDB(ctx, r.db).Preload("Owner").First(&agent, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) List(ctx context.Context, tenantID uuid.UUID, filter AgentFilter, p pagination.Params) ([]model.Agent, int64, error) {
	q := GetDB(ctx, r.db).Model(&model.Agent{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.AgentType != "" {
		q = q.Where("agent_type = ?", filter.AgentType)
	}
	if filter.OwnerID != nil {
		q = q.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("name ILIKE ? OR vendor_name ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var agents []model.Agent
	err := q.Preload("Owner").
		Order("created_at desc").
		Offset(p.Offset).Limit(p.Limit).
		Find(&agents).Error
	if err != nil {
		return nil, 0, err
	}
	return agents, total, nil
}

func (r *agentRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	return r.countBy(ctx, tenantID, "status")
}

func (r *agentRepository) CountByType(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	return r.countBy(ctx, tenantID, "agent_type")
}

func (r *agentRepository) countBy(ctx context.Context, tenantID uuid.UUID, column string) (map[string]int64, error) {
	type row struct {
		Key   string
		Count int64
	}
	var rows []row
	err := GetDB(ctx, r.db).Model(&model.Agent{}).
		Select(column+" as key, count(*) as count").
		Where("tenant_id = ?", tenantID).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}
