package service

import (
	"context"

	"agenthub/internal/repository"
	"agenthub/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardStats is the aggregate snapshot behind the landing dashboard
type DashboardStats struct {
	AgentsByStatus      map[string]int64 `json:"agents_by_status"`
	AgentsByType        map[string]int64 `json:"agents_by_type"`
	AssignmentsByStatus map[string]int64 `json:"assignments_by_status"`
	IncidentsBySeverity map[string]int64 `json:"incidents_by_severity"`
	OpenIncidents       int64            `json:"open_incidents"`
	AverageCvss         decimal.Decimal  `json:"average_cvss"`
}

type StatisticsService interface {
	Dashboard(ctx context.Context, tenantID uuid.UUID) (*DashboardStats, error)
}

type statisticsService struct {
	agents      repository.AgentRepository
	assessments repository.AssessmentRepository
	incidents   repository.IncidentRepository
}

func NewStatisticsService(agents repository.AgentRepository, assessments repository.AssessmentRepository, incidents repository.IncidentRepository) StatisticsService {
	return &statisticsService{agents: agents, assessments: assessments, incidents: incidents}
}

func (s *statisticsService) Dashboard(ctx context.Context, tenantID uuid.UUID) (*DashboardStats, error) {
	byStatus, err := s.agents.CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to count agents by status")
	}
	byType, err := s.agents.CountByType(ctx, tenantID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to count agents by type")
	}
	assignments, err := s.assessments.CountAssignmentsByStatus(ctx, tenantID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to count assignments")
	}
	severities, err := s.incidents.CountBySeverity(ctx, tenantID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to count incidents")
	}
	open, err := s.incidents.CountOpen(ctx, tenantID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to count open incidents")
	}
	avg, err := s.incidents.AverageCvss(ctx, tenantID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to compute average cvss")
	}

	return &DashboardStats{
		AgentsByStatus:      byStatus,
		AgentsByType:        byType,
		AssignmentsByStatus: assignments,
		IncidentsBySeverity: severities,
		OpenIncidents:       open,
		AverageCvss:         avg.Round(1),
	}, nil
}
