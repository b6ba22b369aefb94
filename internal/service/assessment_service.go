package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"agenthub/internal/model"
	"agenthub/internal/repository"
	"agenthub/pkg/apperr"
	"agenthub/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventPublisher pushes realtime events to connected clients. Publishing is
// fire-and-forget; services never block on it.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

// Realtime event names
const (
	EventAssignmentCreated = "assignment.created"
	EventAssignmentUpdated = "assignment.updated"
	EventQuestionReviewed  = "question.reviewed"
	EventResponseSubmitted = "response.submitted"
)

// --- DTOs ---

type StartAssessmentRequest struct {
	AgentID    string  `json:"agent_id" binding:"required"`
	TemplateID *string `json:"template_id"`
}

type SubmitResponseRequest struct {
	Value     interface{}          `json:"value"`
	Comment   string               `json:"comment"`
	Documents []model.DocumentMeta `json:"documents"`
}

type CreateQuestionRequest struct {
	Title        string         `json:"title" binding:"required"`
	Description  string         `json:"description"`
	ResponseType string         `json:"response_type" binding:"required,oneof=text textarea select multi_select checkbox file"`
	IsRequired   bool           `json:"is_required"`
	Category     string         `json:"category" binding:"required"`
	Options      []model.Option `json:"options"`
	SortOrder    int            `json:"sort_order"`
}

type UpdateQuestionRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	IsRequired  *bool           `json:"is_required"`
	Category    string          `json:"category"`
	Options     *[]model.Option `json:"options"`
	SortOrder   *int            `json:"sort_order"`
	IsActive    *bool           `json:"is_active"`
}

type ReviewQuestionRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

type DecisionRequest struct {
	Note string `json:"note"`
}

// AssignmentDetail bundles an assignment with its response and review state
type AssignmentDetail struct {
	Assignment *model.AgentAssignment     `json:"assignment"`
	Responses  []model.AssessmentResponse `json:"responses"`
	Reviews    []model.QuestionReview     `json:"reviews"`
}

// --- Pure review transition rules ---

// reviewStatuses a reviewer may move a question into
func validReviewStatus(status string) bool {
	switch status {
	case model.ReviewPass, model.ReviewFail, model.ReviewInProgress, model.ReviewPending:
		return true
	}
	return false
}

// validateReviewTransition enforces the per-question review rules: fail and
// in_progress both demand a non-blank reviewer comment explaining what is
// wrong or what else is needed. pass carries no comment requirement.
func validateReviewTransition(next, comment string) error {
	if !validReviewStatus(next) {
		return apperr.Validation("unknown review status '%s'", next)
	}
	switch next {
	case model.ReviewFail, model.ReviewInProgress:
		if strings.TrimSpace(comment) == "" {
			return apperr.Validation("a reviewer comment is required when marking a question as %s", next)
		}
	}
	return nil
}

// firstStepNumber picks the run's entry step: the flagged first step when
// one exists, otherwise step 1.
func firstStepNumber(steps []model.WorkflowStep) int {
	for _, step := range steps {
		if step.IsFirstStep {
			return step.StepNumber
		}
	}
	return 1
}

// responseProvided reports whether a stored JSON value counts as answered
func responseProvided(value []byte) bool {
	trimmed := bytes.TrimSpace(value)
	switch {
	case len(trimmed) == 0:
		return false
	case bytes.Equal(trimmed, []byte("null")):
		return false
	case bytes.Equal(trimmed, []byte(`""`)):
		return false
	case bytes.Equal(trimmed, []byte("[]")):
		return false
	}
	return true
}

// --- Interface ---

type AssessmentService interface {
	StartAssessment(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req StartAssessmentRequest) (*model.AgentAssignment, error)
	GetAssignment(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*AssignmentDetail, error)
	ListAssignments(ctx context.Context, tenantID uuid.UUID, status string, p pagination.Params) ([]model.AgentAssignment, int64, error)

	ListQuestions(ctx context.Context, tenantID uuid.UUID, category string) ([]model.AssessmentQuestion, error)
	CreateQuestion(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateQuestionRequest) (*model.AssessmentQuestion, error)
	UpdateQuestion(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, questionID uuid.UUID, req UpdateQuestionRequest) (*model.AssessmentQuestion, error)
	SubmitResponse(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID, questionID uuid.UUID, req SubmitResponseRequest) (*model.AssessmentResponse, error)
	ReviewQuestion(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID, questionID uuid.UUID, req ReviewQuestionRequest) (*model.QuestionReview, error)

	AdvanceStep(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID uuid.UUID) (*model.AgentAssignment, error)
	Approve(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID uuid.UUID, req DecisionRequest) (*model.AgentAssignment, error)
	Reject(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID uuid.UUID, req DecisionRequest) (*model.AgentAssignment, error)
	Cancel(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID uuid.UUID) (*model.AgentAssignment, error)
}

type assessmentService struct {
	db        *gorm.DB
	repo      repository.AssessmentRepository
	agents    repository.AgentRepository
	workflows repository.WorkflowRepository
	audit     AuditRecorder
	events    EventPublisher
}

func NewAssessmentService(
	db *gorm.DB,
	repo repository.AssessmentRepository,
	agents repository.AgentRepository,
	workflows repository.WorkflowRepository,
	audit AuditRecorder,
	events EventPublisher,
) AssessmentService {
	return &assessmentService{db: db, repo: repo, agents: agents, workflows: workflows, audit: audit, events: events}
}

// StartAssessment opens a workflow run for the agent and moves the agent
// into review. When no template is named, the tenant's active template for
// the agent's type is used.
func (s *assessmentService) StartAssessment(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req StartAssessmentRequest) (*model.AgentAssignment, error) {
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
	if agent.Status != model.AgentStatusDraft && agent.Status != model.AgentStatusSubmitted {
		return nil, apperr.Conflict("agent in status %s cannot enter assessment", agent.Status)
	}

	existing, err := s.repo.ListAssignmentsByAgent(ctx, agentID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to check existing assignments")
	}
	for _, a := range existing {
		if a.Status == model.AssignmentPending || a.Status == model.AssignmentInReview || a.Status == model.AssignmentCompleted {
			return nil, apperr.Conflict("agent already has an active assessment")
		}
	}

	template, err := s.pickTemplate(ctx, tenantID, agent.AgentType, req.TemplateID)
	if err != nil {
		return nil, err
	}

	assignment := &model.AgentAssignment{
		TenantID:    tenantID,
		AgentID:     agentID,
		Status:      model.AssignmentPending,
		CurrentStep: 1,
		RequestedBy: actorID,
	}
	if template != nil {
		assignment.TemplateID = &template.ID
		assignment.CurrentStep = firstStepNumber(template.Steps)
	}

	tm := repository.NewTransactionManager(s.db)
	err = tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateAssignment(txCtx, assignment); err != nil {
			return err
		}
		agent.Status = model.AgentStatusInReview
		return s.agents.Update(txCtx, agent)
	})
	if err != nil {
		return nil, apperr.Transport(err, "failed to start assessment")
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionCreateAssignment, assignment.ID.String(), agent.Name, map[string]interface{}{
		"agent_id": agentID.String(),
	})
	s.events.Publish(EventAssignmentCreated, assignment)
	return assignment, nil
}

func (s *assessmentService) pickTemplate(ctx context.Context, tenantID uuid.UUID, agentType string, templateID *string) (*model.WorkflowTemplate, error) {
	if templateID != nil {
		id, err := uuid.Parse(*templateID)
		if err != nil {
			return nil, apperr.Validation("invalid template id: %v", err)
		}
		tpl, err := s.workflows.FindTemplate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("workflow template not found")
			}
			return nil, apperr.Transport(err, "failed to load workflow template")
		}
		if tpl.TenantID != tenantID {
			return nil, apperr.NotFound("workflow template not found")
		}
		return tpl, nil
	}

	// Type-specific active template first, then the generic fallback. A
	// tenant with no templates at all still gets a bare single-step run.
	templates, err := s.workflows.ListTemplates(ctx, tenantID)
	if err != nil {
		return nil, apperr.Transport(err, "failed to list workflow templates")
	}
	var fallback *model.WorkflowTemplate
	for i := range templates {
		tpl := &templates[i]
		if !tpl.IsActive {
			continue
		}
		if tpl.AgentType != nil && *tpl.AgentType == agentType {
			return tpl, nil
		}
		if tpl.AgentType == nil && fallback == nil {
			fallback = tpl
		}
	}
	return fallback, nil
}

func (s *assessmentService) GetAssignment(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*AssignmentDetail, error) {
	assignment, err := s.loadAssignment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	responses, err := s.repo.ListResponses(ctx, id)
	if err != nil {
		return nil, apperr.Transport(err, "failed to load responses")
	}
	reviews, err := s.repo.ListReviews(ctx, id)
	if err != nil {
		return nil, apperr.Transport(err, "failed to load reviews")
	}
	return &AssignmentDetail{Assignment: assignment, Responses: responses, Reviews: reviews}, nil
}

func (s *assessmentService) ListAssignments(ctx context.Context, tenantID uuid.UUID, status string, p pagination.Params) ([]model.AgentAssignment, int64, error) {
	list, total, err := s.repo.ListAssignments(ctx, tenantID, status, p)
	if err != nil {
		return nil, 0, apperr.Transport(err, "failed to list assignments")
	}
	return list, total, nil
}

func (s *assessmentService) ListQuestions(ctx context.Context, tenantID uuid.UUID, category string) ([]model.AssessmentQuestion, error) {
	questions, err := s.repo.ListQuestions(ctx, tenantID, category)
	if err != nil {
		return nil, apperr.Transport(err, "failed to list questions")
	}
	return questions, nil
}

// CreateQuestion adds an entry to the tenant's assessment question catalog
func (s *assessmentService) CreateQuestion(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateQuestionRequest) (*model.AssessmentQuestion, error) {
	question := &model.AssessmentQuestion{
		TenantID:     tenantID,
		Title:        req.Title,
		Description:  req.Description,
		ResponseType: req.ResponseType,
		IsRequired:   req.IsRequired,
		Category:     req.Category,
		SortOrder:    req.SortOrder,
		IsActive:     true,
	}
	if len(req.Options) > 0 {
		if err := encodeJSONColumn(&question.Options, req.Options); err != nil {
			return nil, apperr.Validation("malformed options: %v", err)
		}
	}
	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		return nil, apperr.Transport(err, "failed to create question")
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionCreateQuestion, question.ID.String(), question.Title, nil)
	return question, nil
}

// UpdateQuestion edits catalog metadata. Deactivating a question hides it
// from new assessments; existing responses keep referencing it.
func (s *assessmentService) UpdateQuestion(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, questionID uuid.UUID, req UpdateQuestionRequest) (*model.AssessmentQuestion, error) {
	question, err := s.repo.FindQuestionByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("question not found")
		}
		return nil, apperr.Transport(err, "failed to load question")
	}
	if question.TenantID != tenantID {
		return nil, apperr.NotFound("question not found")
	}

	if req.Title != "" {
		question.Title = req.Title
	}
	if req.Description != "" {
		question.Description = req.Description
	}
	if req.Category != "" {
		question.Category = req.Category
	}
	if req.IsRequired != nil {
		question.IsRequired = *req.IsRequired
	}
	if req.SortOrder != nil {
		question.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		question.IsActive = *req.IsActive
	}
	if req.Options != nil {
		if err := encodeJSONColumn(&question.Options, *req.Options); err != nil {
			return nil, apperr.Validation("malformed options: %v", err)
		}
	}

	if err := s.repo.UpdateQuestion(ctx, question); err != nil {
		return nil, apperr.Transport(err, "failed to update question")
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionUpdateQuestion, question.ID.String(), question.Title, nil)
	return question, nil
}

// SubmitResponse creates or overwrites the vendor's answer for one question.
// Responses stay editable only while the run is PENDING or IN_REVIEW.
func (s *assessmentService) SubmitResponse(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID, questionID uuid.UUID, req SubmitResponseRequest) (*model.AssessmentResponse, error) {
	assignment, err := s.loadAssignment(ctx, tenantID, assignmentID)
	if err != nil {
		return nil, err
	}
	if !assignment.ResponseEditable() {
		return nil, apperr.Conflict("responses are locked once the assessment reaches %s", assignment.Status)
	}

	question, err := s.repo.FindQuestionByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("question not found")
		}
		return nil, apperr.Transport(err, "failed to load question")
	}
	if question.TenantID != tenantID {
		return nil, apperr.NotFound("question not found")
	}

	resp := &model.AssessmentResponse{AssignmentID: assignmentID, QuestionID: questionID}
	if existing, err := s.repo.FindResponse(ctx, assignmentID, questionID); err == nil {
		resp = existing
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Transport(err, "failed to load response")
	}

	if err := encodeJSONColumn(&resp.Value, req.Value); err != nil {
		return nil, apperr.Validation("malformed response value: %v", err)
	}
	if question.IsRequired && !responseProvided(resp.Value) {
		return nil, apperr.Validation("question '%s' requires an answer", question.Title)
	}
	if req.Documents != nil {
		if err := encodeJSONColumn(&resp.Documents, req.Documents); err != nil {
			return nil, apperr.Validation("malformed document metadata: %v", err)
		}
	}
	resp.Comment = req.Comment
	resp.UpdatedBy = actorID

	if err := s.repo.SaveResponse(ctx, resp); err != nil {
		return nil, apperr.Transport(err, "failed to save response")
	}

	// A fresh answer to a question flagged in_progress resets its review so
	// the reviewer sees it back in their queue.
	if review, err := s.repo.FindReview(ctx, assignmentID, questionID); err == nil && review.Status == model.ReviewInProgress {
		review.Status = model.ReviewPending
		review.VendorComment = req.Comment
		if err := s.repo.SaveReview(ctx, review); err != nil {
			return nil, apperr.Transport(err, "failed to reset question review")
		}
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionSubmitResponse, assignmentID.String(), question.Title, nil)
	s.events.Publish(EventResponseSubmitted, resp)
	return resp, nil
}

// ReviewQuestion records the reviewer's verdict for one question. Review is
// locked on terminal assignments and on COMPLETED runs awaiting decision.
func (s *assessmentService) ReviewQuestion(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID, questionID uuid.UUID, req ReviewQuestionRequest) (*model.QuestionReview, error) {
	assignment, err := s.loadAssignment(ctx, tenantID, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.ReviewLocked() {
		return nil, apperr.Conflict("assessment in status %s is read-only", assignment.Status)
	}
	if err := validateReviewTransition(req.Status, req.Comment); err != nil {
		return nil, err
	}

	review := &model.QuestionReview{AssignmentID: assignmentID, QuestionID: questionID}
	if existing, err := s.repo.FindReview(ctx, assignmentID, questionID); err == nil {
		review = existing
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Transport(err, "failed to load review")
	}

	review.Status = req.Status
	review.ReviewerComment = req.Comment
	review.ReviewedBy = actorID
	if err := s.repo.SaveReview(ctx, review); err != nil {
		return nil, apperr.Transport(err, "failed to save review")
	}

	// First review action on a pending run moves it into IN_REVIEW
	if assignment.Status == model.AssignmentPending {
		assignment.Status = model.AssignmentInReview
		if err := s.repo.UpdateAssignment(ctx, assignment); err != nil {
			return nil, apperr.Transport(err, "failed to update assignment status")
		}
		s.events.Publish(EventAssignmentUpdated, assignment)
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionReviewQuestion, assignmentID.String(), "", map[string]interface{}{
		"question_id": questionID.String(), "status": req.Status,
	})
	s.events.Publish(EventQuestionReviewed, review)
	return review, nil
}

// AdvanceStep moves the run to the next workflow step, or to COMPLETED when
// the current step was the last one.
func (s *assessmentService) AdvanceStep(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID uuid.UUID) (*model.AgentAssignment, error) {
	assignment, err := s.loadAssignment(ctx, tenantID, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Status != model.AssignmentPending && assignment.Status != model.AssignmentInReview {
		return nil, apperr.Conflict("assessment in status %s cannot advance", assignment.Status)
	}

	totalSteps := 1
	if assignment.TemplateID != nil {
		tpl, err := s.workflows.FindTemplate(ctx, *assignment.TemplateID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Transport(err, "failed to load workflow template")
		}
		if err == nil {
			totalSteps = len(tpl.Steps)
		}
	}

	if assignment.CurrentStep >= totalSteps {
		assignment.Status = model.AssignmentCompleted
	} else {
		assignment.CurrentStep++
		assignment.Status = model.AssignmentInReview
	}
	if err := s.repo.UpdateAssignment(ctx, assignment); err != nil {
		return nil, apperr.Transport(err, "failed to advance assignment")
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionAdvanceStep, assignmentID.String(), "", map[string]interface{}{
		"current_step": assignment.CurrentStep, "status": assignment.Status,
	})
	s.events.Publish(EventAssignmentUpdated, assignment)
	return assignment, nil
}

func (s *assessmentService) Approve(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID uuid.UUID, req DecisionRequest) (*model.AgentAssignment, error) {
	return s.decide(ctx, tenantID, actorID, assignmentID, model.AssignmentApproved, model.AgentStatusApproved, model.ActionApproveAgent, req.Note, false)
}

// Reject demands a note: a vendor is always told why their agent was turned down
func (s *assessmentService) Reject(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID uuid.UUID, req DecisionRequest) (*model.AgentAssignment, error) {
	if strings.TrimSpace(req.Note) == "" {
		return nil, apperr.Validation("a rejection reason is required")
	}
	return s.decide(ctx, tenantID, actorID, assignmentID, model.AssignmentRejected, model.AgentStatusRejected, model.ActionRejectAgent, req.Note, false)
}

func (s *assessmentService) Cancel(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID uuid.UUID) (*model.AgentAssignment, error) {
	return s.decide(ctx, tenantID, actorID, assignmentID, model.AssignmentCancelled, model.AgentStatusDraft, model.ActionCancelAssignment, "", true)
}

// decide closes out a run and syncs the agent's status in one transaction.
// Cancel is allowed from any non-terminal status; approve and reject need
// the run to have been worked (IN_REVIEW or COMPLETED).
func (s *assessmentService) decide(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, assignmentID uuid.UUID, assignmentStatus, agentStatus, action, note string, allowAnyOpen bool) (*model.AgentAssignment, error) {
	assignment, err := s.loadAssignment(ctx, tenantID, assignmentID)
	if err != nil {
		return nil, err
	}
	switch assignment.Status {
	case model.AssignmentApproved, model.AssignmentRejected, model.AssignmentCancelled:
		return nil, apperr.Conflict("assessment is already %s", assignment.Status)
	case model.AssignmentPending:
		if !allowAnyOpen {
			return nil, apperr.Conflict("assessment has not been reviewed yet")
		}
	}

	now := time.Now()
	assignment.Status = assignmentStatus
	assignment.DecidedBy = actorID
	assignment.DecidedAt = &now
	assignment.DecisionNote = note

	tm := repository.NewTransactionManager(s.db)
	err = tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateAssignment(txCtx, assignment); err != nil {
			return err
		}
		agent, err := s.agents.FindByID(txCtx, assignment.AgentID)
		if err != nil {
			return err
		}
		agent.Status = agentStatus
		return s.agents.Update(txCtx, agent)
	})
	if err != nil {
		return nil, apperr.Transport(err, "failed to record decision")
	}

	s.audit.Record(ctx, tenantID, actorID, action, assignmentID.String(), "", map[string]interface{}{
		"agent_id": assignment.AgentID.String(), "note": note,
	})
	s.events.Publish(EventAssignmentUpdated, assignment)
	return assignment, nil
}

func (s *assessmentService) loadAssignment(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.AgentAssignment, error) {
	assignment, err := s.repo.FindAssignmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("assessment not found")
		}
		return nil, apperr.Transport(err, "failed to load assessment")
	}
	if assignment.TenantID != tenantID {
		return nil, apperr.NotFound("assessment not found")
	}
	return assignment, nil
}
