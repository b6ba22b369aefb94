package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"agenthub/internal/model"
	"agenthub/internal/repository"
	"agenthub/pkg/apperr"
	"agenthub/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var cveIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

type CreateIncidentRequest struct {
	AgentID     string                 `json:"agent_id" binding:"required"`
	CveID       string                 `json:"cve_id"`
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	CvssScore   *decimal.Decimal       `json:"cvss_score"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type UpdateIncidentRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	CvssScore   *decimal.Decimal `json:"cvss_score"`
	Status      *string          `json:"status"`
}

type IncidentService interface {
	Create(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateIncidentRequest) (*model.SecurityIncident, error)
	Get(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.SecurityIncident, error)
	List(ctx context.Context, tenantID uuid.UUID, filter repository.IncidentFilter, p pagination.Params) ([]model.SecurityIncident, int64, error)
	Update(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, req UpdateIncidentRequest) (*model.SecurityIncident, error)
}

type incidentService struct {
	repo   repository.IncidentRepository
	agents repository.AgentRepository
	audit  AuditRecorder
	events EventPublisher
}

func NewIncidentService(repo repository.IncidentRepository, agents repository.AgentRepository, audit AuditRecorder, events EventPublisher) IncidentService {
	return &incidentService{repo: repo, agents: agents, audit: audit, events: events}
}

// Realtime event names for the incident feed
const (
	EventIncidentReported = "incident.reported"
	EventIncidentUpdated  = "incident.updated"
)

func (s *incidentService) Create(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateIncidentRequest) (*model.SecurityIncident, error) {
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		return nil, apperr.Validation("invalid agent id: %v", err)
	}
	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("agent not found")
		}
		return nil, apperr.Transport(err, "failed to load agent")
	}
	if agent.TenantID != tenantID {
		return nil, apperr.NotFound("agent not found")
	}
	if req.CveID != "" && !cveIDPattern.MatchString(req.CveID) {
		return nil, apperr.Validation("malformed CVE id '%s'", req.CveID)
	}

	score := decimal.Zero
	if req.CvssScore != nil {
		score = *req.CvssScore
		if err := validateCvss(score); err != nil {
			return nil, err
		}
	}

	inc := &model.SecurityIncident{
		TenantID:    tenantID,
		AgentID:     agentID,
		CveID:       req.CveID,
		Title:       req.Title,
		Description: req.Description,
		CvssScore:   score,
		Severity:    model.SeverityForScore(score),
		Status:      model.IncidentOpen,
		ReportedBy:  actorID,
		ReportedAt:  time.Now(),
	}
	if req.Metadata != nil {
		if err := encodeJSONColumn(&inc.Metadata, req.Metadata); err != nil {
			return nil, apperr.Validation("malformed metadata: %v", err)
		}
	}

	if err := s.repo.Create(ctx, inc); err != nil {
		return nil, apperr.Transport(err, "failed to create incident")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionCreateIncident, inc.ID.String(), inc.Title, map[string]interface{}{
		"agent_id": agentID.String(), "severity": inc.Severity,
	})
	s.events.Publish(EventIncidentReported, inc)
	return inc, nil
}

func validateCvss(score decimal.Decimal) error {
	if score.IsNegative() || score.GreaterThan(decimal.NewFromInt(10)) {
		return apperr.Validation("cvss score must be between 0.0 and 10.0")
	}
	return nil
}

func (s *incidentService) Get(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.SecurityIncident, error) {
	return s.load(ctx, tenantID, id)
}

func (s *incidentService) List(ctx context.Context, tenantID uuid.UUID, filter repository.IncidentFilter, p pagination.Params) ([]model.SecurityIncident, int64, error) {
	list, total, err := s.repo.List(ctx, tenantID, filter, p)
	if err != nil {
		return nil, 0, apperr.Transport(err, "failed to list incidents")
	}
	return list, total, nil
}

// Update edits an incident. A score change re-derives severity; moving to
// RESOLVED stamps resolved_at, and reopening clears it.
func (s *incidentService) Update(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, req UpdateIncidentRequest) (*model.SecurityIncident, error) {
	inc, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		inc.Title = *req.Title
	}
	if req.Description != nil {
		inc.Description = *req.Description
	}
	if req.CvssScore != nil {
		if err := validateCvss(*req.CvssScore); err != nil {
			return nil, err
		}
		inc.CvssScore = *req.CvssScore
		inc.Severity = model.SeverityForScore(inc.CvssScore)
	}
	if req.Status != nil {
		switch *req.Status {
		case model.IncidentOpen, model.IncidentMitigated, model.IncidentResolved:
		default:
			return nil, apperr.Validation("unknown incident status '%s'", *req.Status)
		}
		inc.Status = *req.Status
		if inc.Status == model.IncidentResolved {
			now := time.Now()
			inc.ResolvedAt = &now
		} else {
			inc.ResolvedAt = nil
		}
	}

	if err := s.repo.Update(ctx, inc); err != nil {
		return nil, apperr.Transport(err, "failed to update incident")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionUpdateIncident, inc.ID.String(), inc.Title, map[string]interface{}{
		"status": inc.Status, "severity": inc.Severity,
	})
	s.events.Publish(EventIncidentUpdated, inc)
	return inc, nil
}

func (s *incidentService) load(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.SecurityIncident, error) {
	inc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("incident not found")
		}
		return nil, apperr.Transport(err, "failed to load incident")
	}
	if inc.TenantID != tenantID {
		return nil, apperr.NotFound("incident not found")
	}
	return inc, nil
}
