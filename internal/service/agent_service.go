package service

import (
	"context"
	"errors"

	"agenthub/internal/model"
	"agenthub/internal/repository"
	"agenthub/pkg/apperr"
	"agenthub/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateAgentRequest struct {
	Name        string                 `json:"name" binding:"required"`
	AgentType   string                 `json:"agent_type" binding:"required"`
	VendorName  string                 `json:"vendor_name" binding:"required"`
	Description string                 `json:"description"`
	Website     string                 `json:"website"`
	RiskTier    string                 `json:"risk_tier"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type UpdateAgentRequest struct {
	Name        *string                `json:"name"`
	VendorName  *string                `json:"vendor_name"`
	Description *string                `json:"description"`
	Website     *string                `json:"website"`
	RiskTier    *string                `json:"risk_tier"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type AgentService interface {
	Create(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateAgentRequest) (*model.Agent, error)
	Get(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.Agent, error)
	List(ctx context.Context, tenantID uuid.UUID, filter repository.AgentFilter, p pagination.Params) ([]model.Agent, int64, error)
	Update(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, req UpdateAgentRequest) (*model.Agent, error)
	Delete(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) error
	Submit(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) (*model.Agent, error)
	Suspend(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) (*model.Agent, error)
}

type agentService struct {
	repo    repository.AgentRepository
	catalog CatalogService
	audit   AuditRecorder
}

func NewAgentService(repo repository.AgentRepository, catalog CatalogService, audit AuditRecorder) AgentService {
	return &agentService{repo: repo, catalog: catalog, audit: audit}
}

func (s *agentService) Create(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateAgentRequest) (*model.Agent, error) {
	if !model.ValidAgentType(req.AgentType) {
		return nil, apperr.Validation("unknown agent type '%s'", req.AgentType)
	}
	if err := s.validateMetadata(ctx, tenantID, req.Metadata); err != nil {
		return nil, err
	}

	agent := &model.Agent{
		TenantID:    tenantID,
		Name:        req.Name,
		AgentType:   req.AgentType,
		VendorName:  req.VendorName,
		Description: req.Description,
		Website:     req.Website,
		RiskTier:    req.RiskTier,
		Status:      model.AgentStatusDraft,
		OwnerID:     actorID,
	}
	if req.Metadata != nil {
		if err := encodeJSONColumn(&agent.Metadata, req.Metadata); err != nil {
			return nil, apperr.Validation("malformed metadata: %v", err)
		}
	}

	if err := s.repo.Create(ctx, agent); err != nil {
		return nil, apperr.Transport(err, "failed to create agent")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionCreateAgent, agent.ID.String(), agent.Name, nil)
	return agent, nil
}

// validateMetadata rejects custom-field values the catalog has no enabled
// definition for. Defense against clients writing stale field names after
// an admin removed the field.
func (s *agentService) validateMetadata(ctx context.Context, tenantID uuid.UUID, metadata map[string]interface{}) error {
	if len(metadata) == 0 {
		return nil
	}
	fields, err := s.catalog.ListFields(ctx, tenantID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.FieldName] = true
	}
	for name := range metadata {
		if !known[name] {
			return apperr.Validation("unknown field '%s' in metadata", name)
		}
	}
	return nil
}

func (s *agentService) Get(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.Agent, error) {
	return s.load(ctx, tenantID, id)
}

func (s *agentService) List(ctx context.Context, tenantID uuid.UUID, filter repository.AgentFilter, p pagination.Params) ([]model.Agent, int64, error) {
	agents, total, err := s.repo.List(ctx, tenantID, filter, p)
	if err != nil {
		return nil, 0, apperr.Transport(err, "failed to list agents")
	}
	return agents, total, nil
}

func (s *agentService) Update(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, req UpdateAgentRequest) (*model.Agent, error) {
	agent, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if agent.Status == model.AgentStatusApproved || agent.Status == model.AgentStatusSuspended {
		return nil, apperr.Conflict("agent in status %s cannot be edited", agent.Status)
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.VendorName != nil {
		agent.VendorName = *req.VendorName
	}
	if req.Description != nil {
		agent.Description = *req.Description
	}
	if req.Website != nil {
		agent.Website = *req.Website
	}
	if req.RiskTier != nil {
		agent.RiskTier = *req.RiskTier
	}
	if req.Metadata != nil {
		if err := s.validateMetadata(ctx, tenantID, req.Metadata); err != nil {
			return nil, err
		}
		if err := encodeJSONColumn(&agent.Metadata, req.Metadata); err != nil {
			return nil, apperr.Validation("malformed metadata: %v", err)
		}
	}

	if err := s.repo.Update(ctx, agent); err != nil {
		return nil, apperr.Transport(err, "failed to update agent")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionUpdateAgent, agent.ID.String(), agent.Name, nil)
	return agent, nil
}

func (s *agentService) Delete(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) error {
	agent, err := s.load(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if agent.Status == model.AgentStatusInReview {
		return apperr.Conflict("agent is under assessment; cancel the assessment first")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Transport(err, "failed to delete agent")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionDeleteAgent, id.String(), agent.Name, nil)
	return nil
}

// Submit moves a draft into the review pipeline
func (s *agentService) Submit(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) (*model.Agent, error) {
	return s.transition(ctx, tenantID, actorID, id, model.AgentStatusSubmitted, model.AgentStatusDraft)
}

// Suspend takes an approved agent out of service
func (s *agentService) Suspend(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) (*model.Agent, error) {
	return s.transition(ctx, tenantID, actorID, id, model.AgentStatusSuspended, model.AgentStatusApproved)
}

func (s *agentService) transition(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, to string, from ...string) (*model.Agent, error) {
	agent, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, f := range from {
		if agent.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperr.Conflict("agent in status %s cannot move to %s", agent.Status, to)
	}
	agent.Status = to
	if err := s.repo.Update(ctx, agent); err != nil {
		return nil, apperr.Transport(err, "failed to update agent status")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionUpdateAgent, agent.ID.String(), agent.Name, map[string]interface{}{
		"status": to,
	})
	return agent, nil
}

func (s *agentService) load(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.Agent, error) {
	agent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("agent not found")
		}
		return nil, apperr.Transport(err, "failed to load agent")
	}
	if agent.TenantID != tenantID {
		return nil, apperr.NotFound("agent not found")
	}
	return agent, nil
}
