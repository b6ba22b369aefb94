package service

import (
	"context"
	"errors"

	"agenthub/internal/model"
	"agenthub/internal/repository"
	"agenthub/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type StepInput struct {
	StepName       string `json:"step_name" binding:"required"`
	StepType       string `json:"step_type" binding:"required,oneof=review approval notification"`
	AssignmentType string `json:"assignment_type" binding:"required,oneof=role user group round_robin"`
	// AssignmentValue carries the rule target: a role name for role and
	// round_robin rules, a user id for user rules, a group id for group rules.
	AssignmentValue string `json:"assignment_value"`
	Required        *bool  `json:"required"`
	CanSkip         bool   `json:"can_skip"`
	IsFirstStep     bool   `json:"is_first_step"`
}

type CreateWorkflowRequest struct {
	Name        string      `json:"name" binding:"required"`
	Description string      `json:"description"`
	AgentType   *string     `json:"agent_type"`
	Steps       []StepInput `json:"steps" binding:"required,min=1"`
}

type UpdateWorkflowRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	AgentType   *string `json:"agent_type"`
	IsActive    *bool   `json:"is_active"`
}

type ReorderStepRequest struct {
	FromPosition int `json:"from_position" binding:"required,min=1"`
	ToPosition   int `json:"to_position" binding:"required,min=1"`
}

type SetFirstStepRequest struct {
	StepNumber int `json:"step_number" binding:"required,min=1"`
}

type CreateGroupRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids"`
}

// Assignee is one concrete candidate actor for a step
type Assignee struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// StepAssignment is the resolved actor or candidate pool for a step. A user
// rule yields exactly one candidate; every other rule yields a pool. For
// round_robin the pool is the rotation's candidate set; picking the next
// candidate is the execution system's job, not this resolver's.
type StepAssignment struct {
	StepNumber     int        `json:"step_number"`
	AssignmentType string     `json:"assignment_type"`
	Candidates     []Assignee `json:"candidates"`
}

// --- Interface ---

type WorkflowService interface {
	CreateWorkflow(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateWorkflowRequest) (*model.WorkflowTemplate, error)
	GetWorkflow(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.WorkflowTemplate, error)
	ListWorkflows(ctx context.Context, tenantID uuid.UUID) ([]model.WorkflowTemplate, error)
	UpdateWorkflow(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, req UpdateWorkflowRequest) (*model.WorkflowTemplate, error)
	DeleteWorkflow(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) error

	ReorderStep(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, templateID uuid.UUID, req ReorderStepRequest) (*model.WorkflowTemplate, error)
	UpdateStep(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, templateID uuid.UUID, stepNumber int, req StepInput) (*model.WorkflowTemplate, error)
	SetFirstStep(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, templateID uuid.UUID, req SetFirstStepRequest) (*model.WorkflowTemplate, error)

	ResolveAssignee(ctx context.Context, tenantID uuid.UUID, step *model.WorkflowStep) (*StepAssignment, error)

	CreateGroup(ctx context.Context, tenantID uuid.UUID, req CreateGroupRequest) (*model.ApproverGroup, error)
	ListGroups(ctx context.Context, tenantID uuid.UUID) ([]model.ApproverGroup, error)
	DeleteGroup(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) error
}

type workflowService struct {
	repo  repository.WorkflowRepository
	users repository.UserRepository
	audit AuditRecorder
}

func NewWorkflowService(repo repository.WorkflowRepository, users repository.UserRepository, audit AuditRecorder) WorkflowService {
	return &workflowService{repo: repo, users: users, audit: audit}
}

// --- Pure step operations ---

// renumberSteps rewrites step numbers to 1..N by array position
func renumberSteps(steps []model.WorkflowStep) []model.WorkflowStep {
	for i := range steps {
		steps[i].StepNumber = i + 1
	}
	return steps
}

// moveStep performs a remove-then-insert list move, then renumbers every
// step. Positions are 1-based.
func moveStep(steps []model.WorkflowStep, from, to int) ([]model.WorkflowStep, error) {
	n := len(steps)
	if from < 1 || from > n {
		return nil, apperr.Validation("step position %d out of range 1..%d", from, n)
	}
	if to < 1 || to > n {
		return nil, apperr.Validation("step position %d out of range 1..%d", to, n)
	}
	if from == to {
		return steps, nil
	}
	moved := steps[from-1]
	rest := append(append([]model.WorkflowStep{}, steps[:from-1]...), steps[from:]...)
	out := append(append(append([]model.WorkflowStep{}, rest[:to-1]...), moved), rest[to-1:]...)
	return renumberSteps(out), nil
}

// setFirstStep flips is_first_step exclusively to the step at stepNumber.
// Ordering and numbering never change.
func setFirstStep(steps []model.WorkflowStep, stepNumber int) ([]model.WorkflowStep, error) {
	found := false
	for i := range steps {
		if steps[i].StepNumber == stepNumber {
			found = true
		}
	}
	if !found {
		return nil, apperr.NotFound("step %d not found", stepNumber)
	}
	for i := range steps {
		steps[i].IsFirstStep = steps[i].StepNumber == stepNumber
	}
	return steps, nil
}

// applyAssignmentRule writes the rule onto the step, clearing every assignee
// field the new rule type does not use. round_robin pools rotate within a
// role, so it targets AssignedRole like role rules do.
func applyAssignmentRule(step *model.WorkflowStep, ruleType, value string) error {
	if !model.ValidAssignType(ruleType) {
		return apperr.Validation("unknown assignment rule type '%s'", ruleType)
	}
	step.AssignmentType = ruleType
	step.AssignedRole = ""
	step.AssignedUserID = nil
	step.ApproverGroupID = nil

	switch ruleType {
	case model.AssignTypeRole, model.AssignTypeRoundRobin:
		if !model.ValidRole(value) {
			return apperr.Validation("unknown role '%s' for %s assignment", value, ruleType)
		}
		step.AssignedRole = value
	case model.AssignTypeUser:
		id, err := uuid.Parse(value)
		if err != nil {
			return apperr.Validation("invalid user id for user assignment: %v", err)
		}
		step.AssignedUserID = &id
	case model.AssignTypeGroup:
		id, err := uuid.Parse(value)
		if err != nil {
			return apperr.Validation("invalid group id for group assignment: %v", err)
		}
		step.ApproverGroupID = &id
	}
	return nil
}

// normalizeFirstStep guarantees exactly one first step, defaulting to step 1
// when none (or several) are flagged.
func normalizeFirstStep(steps []model.WorkflowStep) []model.WorkflowStep {
	count := 0
	for i := range steps {
		if steps[i].IsFirstStep {
			count++
		}
	}
	if count == 1 {
		return steps
	}
	for i := range steps {
		steps[i].IsFirstStep = i == 0
	}
	return steps
}

func buildSteps(inputs []StepInput) ([]model.WorkflowStep, error) {
	steps := make([]model.WorkflowStep, 0, len(inputs))
	for _, in := range inputs {
		step := model.WorkflowStep{
			StepName:    in.StepName,
			StepType:    in.StepType,
			Required:    true,
			CanSkip:     in.CanSkip,
			IsFirstStep: in.IsFirstStep,
		}
		if !model.ValidStepType(in.StepType) {
			return nil, apperr.Validation("unknown step type '%s'", in.StepType)
		}
		if in.Required != nil {
			step.Required = *in.Required
		}
		if err := applyAssignmentRule(&step, in.AssignmentType, in.AssignmentValue); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return normalizeFirstStep(renumberSteps(steps)), nil
}

// --- Implementation ---

func (s *workflowService) CreateWorkflow(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateWorkflowRequest) (*model.WorkflowTemplate, error) {
	steps, err := buildSteps(req.Steps)
	if err != nil {
		return nil, err
	}

	tpl := &model.WorkflowTemplate{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		AgentType:   req.AgentType,
		IsActive:    true,
		Steps:       steps,
	}
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return nil, apperr.Transport(err, "failed to create workflow")
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionCreateWorkflow, tpl.ID.String(), tpl.Name, map[string]interface{}{
		"steps": len(steps),
	})
	return tpl, nil
}

func (s *workflowService) GetWorkflow(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.WorkflowTemplate, error) {
	tpl, err := s.repo.FindTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("workflow not found")
		}
		return nil, apperr.Transport(err, "failed to load workflow")
	}
	if tpl.TenantID != tenantID {
		return nil, apperr.NotFound("workflow not found")
	}
	return tpl, nil
}

func (s *workflowService) ListWorkflows(ctx context.Context, tenantID uuid.UUID) ([]model.WorkflowTemplate, error) {
	tpls, err := s.repo.ListTemplates(ctx, tenantID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to list workflows")
	}
	return tpls, nil
}

func (s *workflowService) UpdateWorkflow(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, req UpdateWorkflowRequest) (*model.WorkflowTemplate, error) {
	tpl, err := s.GetWorkflow(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		tpl.Name = req.Name
	}
	if req.Description != "" {
		tpl.Description = req.Description
	}
	if req.AgentType != nil {
		tpl.AgentType = req.AgentType
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateTemplateMeta(ctx, tpl); err != nil {
		return nil, apperr.Transport(err, "failed to update workflow")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionUpdateWorkflow, tpl.ID.String(), tpl.Name, nil)
	return s.GetWorkflow(ctx, tenantID, id)
}

func (s *workflowService) DeleteWorkflow(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) error {
	tpl, err := s.GetWorkflow(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return apperr.Transport(err, "failed to delete workflow")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionDeleteWorkflow, id.String(), tpl.Name, nil)
	return nil
}

// mutateSteps loads the template's ordered step list, applies fn, and hands
// the whole resulting list back for persistence. No partial step patches.
func (s *workflowService) mutateSteps(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, templateID uuid.UUID, action string, fn func([]model.WorkflowStep) ([]model.WorkflowStep, error)) (*model.WorkflowTemplate, error) {
	tpl, err := s.GetWorkflow(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	steps, err := fn(tpl.Steps)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceSteps(ctx, templateID, steps); err != nil {
		return nil, apperr.Transport(err, "failed to save workflow steps")
	}
	s.audit.Record(ctx, tenantID, actorID, action, templateID.String(), tpl.Name, nil)
	return s.GetWorkflow(ctx, tenantID, templateID)
}

func (s *workflowService) ReorderStep(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, templateID uuid.UUID, req ReorderStepRequest) (*model.WorkflowTemplate, error) {
	return s.mutateSteps(ctx, tenantID, actorID, templateID, model.ActionReorderWorkflow, func(steps []model.WorkflowStep) ([]model.WorkflowStep, error) {
		return moveStep(steps, req.FromPosition, req.ToPosition)
	})
}

func (s *workflowService) UpdateStep(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, templateID uuid.UUID, stepNumber int, req StepInput) (*model.WorkflowTemplate, error) {
	return s.mutateSteps(ctx, tenantID, actorID, templateID, model.ActionUpdateWorkflow, func(steps []model.WorkflowStep) ([]model.WorkflowStep, error) {
		for i := range steps {
			if steps[i].StepNumber != stepNumber {
				continue
			}
			if req.StepName != "" {
				steps[i].StepName = req.StepName
			}
			if req.StepType != "" {
				if !model.ValidStepType(req.StepType) {
					return nil, apperr.Validation("unknown step type '%s'", req.StepType)
				}
				steps[i].StepType = req.StepType
			}
			if req.Required != nil {
				steps[i].Required = *req.Required
			}
			steps[i].CanSkip = req.CanSkip
			if req.AssignmentType != "" {
				if err := applyAssignmentRule(&steps[i], req.AssignmentType, req.AssignmentValue); err != nil {
					return nil, err
				}
			}
			return steps, nil
		}
		return nil, apperr.NotFound("step %d not found", stepNumber)
	})
}

func (s *workflowService) SetFirstStep(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, templateID uuid.UUID, req SetFirstStepRequest) (*model.WorkflowTemplate, error) {
	return s.mutateSteps(ctx, tenantID, actorID, templateID, model.ActionUpdateWorkflow, func(steps []model.WorkflowStep) ([]model.WorkflowStep, error) {
		return setFirstStep(steps, req.StepNumber)
	})
}

// ResolveAssignee turns a step's assignment rule into concrete candidates
// against the live user/group directory.
func (s *workflowService) ResolveAssignee(ctx context.Context, tenantID uuid.UUID, step *model.WorkflowStep) (*StepAssignment, error) {
	assignment := &StepAssignment{
		StepNumber:     step.StepNumber,
		AssignmentType: step.AssignmentType,
	}

	switch step.AssignmentType {
	case model.AssignTypeRole, model.AssignTypeRoundRobin:
		users, err := s.users.ListActiveByRole(ctx, tenantID, step.AssignedRole)
		if err != nil {
			return nil, apperr.Transport(err, "failed to resolve role pool '%s'", step.AssignedRole)
		}
		assignment.Candidates = toAssignees(users)
	case model.AssignTypeUser:
		if step.AssignedUserID == nil {
			return nil, apperr.Validation("user assignment on step %d has no user", step.StepNumber)
		}
		user, err := s.users.GetByID(ctx, step.AssignedUserID.String())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("assigned user for step %d no longer exists", step.StepNumber)
			}
			return nil, apperr.Transport(err, "failed to resolve assigned user")
		}
		if !user.IsActive {
			return nil, apperr.NotFound("assigned user '%s' has been deactivated", user.Username)
		}
		assignment.Candidates = toAssignees([]model.User{*user})
	case model.AssignTypeGroup:
		if step.ApproverGroupID == nil {
			return nil, apperr.Validation("group assignment on step %d has no group", step.StepNumber)
		}
		members, err := s.users.GroupMembers(ctx, *step.ApproverGroupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("approver group for step %d no longer exists", step.StepNumber)
			}
			return nil, apperr.Transport(err, "failed to resolve approver group")
		}
		assignment.Candidates = toAssignees(members)
	default:
		return nil, apperr.Validation("unknown assignment rule type '%s'", step.AssignmentType)
	}
	return assignment, nil
}

func (s *workflowService) CreateGroup(ctx context.Context, tenantID uuid.UUID, req CreateGroupRequest) (*model.ApproverGroup, error) {
	group := &model.ApproverGroup{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, apperr.Transport(err, "failed to create approver group")
	}
	if len(req.MemberIDs) > 0 {
		memberIDs := make([]uuid.UUID, 0, len(req.MemberIDs))
		for _, raw := range req.MemberIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, apperr.Validation("invalid member id '%s': %v", raw, err)
			}
			memberIDs = append(memberIDs, id)
		}
		if err := s.repo.ReplaceGroupMembers(ctx, group.ID, memberIDs); err != nil {
			return nil, apperr.Transport(err, "failed to set group members")
		}
	}
	created, err := s.repo.FindGroup(ctx, group.ID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to reload approver group")
	}
	return created, nil
}

func (s *workflowService) ListGroups(ctx context.Context, tenantID uuid.UUID) ([]model.ApproverGroup, error) {
	groups, err := s.repo.ListGroups(ctx, tenantID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to list approver groups")
	}
	return groups, nil
}

func (s *workflowService) DeleteGroup(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) error {
	group, err := s.repo.FindGroup(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("approver group not found")
		}
		return apperr.Transport(err, "failed to load approver group")
	}
	if group.TenantID != tenantID {
		return apperr.NotFound("approver group not found")
	}
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return apperr.Transport(err, "failed to delete approver group")
	}
	return nil
}

func toAssignees(users []model.User) []Assignee {
	out := make([]Assignee, 0, len(users))
	for _, u := range users {
		out = append(out, Assignee{
			ID:       u.ID.String(),
			Username: u.Username,
			Email:    u.Email,
			FullName: u.FullName,
			Role:     u.Role,
		})
	}
	return out
}
