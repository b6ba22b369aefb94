package repository

import (
	"context"

	"agenthub/internal/model"
	"agenthub/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IncidentFilter narrows incident listing. Zero values mean no filter.
type IncidentFilter struct {
	AgentID  *uuid.UUID
	Status   string
	Severity string
	CveID    string
}

type IncidentRepository interface {
	Create(ctx context.Context, inc *model.SecurityIncident) error
	Update(ctx context.Context, inc *model.SecurityIncident) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SecurityIncident, error)
	List(ctx context.Context, tenantID uuid.UUID, filter IncidentFilter, p pagination.Params) ([]model.SecurityIncident, int64, error)
	CountBySeverity(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error)
	CountOpen(ctx context.Context, tenantID uuid.UUID) (int64, error)
	AverageCvss(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}

type incidentRepository struct {
	db *gorm.DB
}

func NewIncidentRepository(db *gorm.DB) IncidentRepository {
	return &incidentRepository{db: db}
}

func (r *incidentRepository) Create(ctx context.Context, inc *model.SecurityIncident) error {
	return GetDB(ctx, r.db).Create(inc).Error
}

func (r *incidentRepository) Update(ctx context.Context, inc *model.SecurityIncident) error {
	return GetDB(ctx, r.db).Save(inc).Error
}

func (r *incidentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SecurityIncident, error) {
	var inc model.SecurityIncident
	err := GetDB(ctx, r.db).Preload("Agent").First(&inc, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

func (r *incidentRepository) List(ctx context.Context, tenantID uuid.UUID, filter IncidentFilter, p pagination.Params) ([]model.SecurityIncident, int64, error) {
	q := GetDB(ctx, r.db).Model(&model.SecurityIncident{}).Where("tenant_id = ?", tenantID)
	if filter.AgentID != nil {
		q = q.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Severity != "" {
		q = q.Where("severity = ?", filter.Severity)
	}
	if filter.CveID != "" {
		q = q.Where("cve_id = ?", filter.CveID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.SecurityIncident
	err := q.Preload("Agent").
		Order("reported_at desc").
		Offset(p.Offset).Limit(p.Limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *incidentRepository) CountBySeverity(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	type row struct {
		Severity string
		Count    int64
	}
	var rows []row
	err := GetDB(ctx, r.db).Model(&model.SecurityIncident{}).
		Select("severity, count(*) as count").
		Where("tenant_id = ?", tenantID).
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Severity] = r.Count
	}
	return out, nil
}

func (r *incidentRepository) CountOpen(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SecurityIncident{}).
		Where("tenant_id = ? AND status = ?", tenantID, model.IncidentOpen).
		Count(&count).Error
	return count, err
}

func (r *incidentRepository) AverageCvss(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var avg decimal.NullDecimal
	err := GetDB(ctx, r.db).Model(&model.SecurityIncident{}).
		Select("avg(cvss_score)").
		Where("tenant_id = ? AND cvss_score > 0", tenantID).
		Scan(&avg).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !avg.Valid {
		return decimal.Zero, nil
	}
	return avg.Decimal, nil
}
