package repository

import (
	"context"

	"agenthub/internal/model"
	"agenthub/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssessmentRepository interface {
	CreateAssignment(ctx context.Context, a *model.AgentAssignment) error
	UpdateAssignment(ctx context.Context, a *model.AgentAssignment) error
	FindAssignmentByID(ctx context.Context, id uuid.UUID) (*model.AgentAssignment, error)
	ListAssignments(ctx context.Context, tenantID uuid.UUID, status string, p pagination.Params) ([]model.AgentAssignment, int64, error)
	ListAssignmentsByAgent(ctx context.Context, agentID uuid.UUID) ([]model.AgentAssignment, error)
	CountAssignmentsByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error)

	ListQuestions(ctx context.Context, tenantID uuid.UUID, category string) ([]model.AssessmentQuestion, error)
	FindQuestionByID(ctx context.Context, id uuid.UUID) (*model.AssessmentQuestion, error)
	CreateQuestion(ctx context.Context, q *model.AssessmentQuestion) error
	UpdateQuestion(ctx context.Context, q *model.AssessmentQuestion) error

	FindResponse(ctx context.Context, assignmentID, questionID uuid.UUID) (*model.AssessmentResponse, error)
	ListResponses(ctx context.Context, assignmentID uuid.UUID) ([]model.AssessmentResponse, error)
	SaveResponse(ctx context.Context, resp *model.AssessmentResponse) error

	FindReview(ctx context.Context, assignmentID, questionID uuid.UUID) (*model.QuestionReview, error)
	ListReviews(ctx context.Context, assignmentID uuid.UUID) ([]model.QuestionReview, error)
	SaveReview(ctx context.Context, review *model.QuestionReview) error
}

type assessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) CreateAssignment(ctx context.Context, a *model.AgentAssignment) error {
	return GetDB(ctx, r.db).Create(a).Error
}

func (r *assessmentRepository) UpdateAssignment(ctx context.Context, a *model.AgentAssignment) error {
	return GetDB(ctx, r.db).Save(a).Error
}

func (r *assessmentRepository) FindAssignmentByID(ctx context.Context, id uuid.UUID) (*model.AgentAssignment, error) {
	var a model.AgentAssignment
	err := GetDB(ctx, r.db).
		Preload("Agent").
		Preload("Requester").
		Preload("Decider").
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepository) ListAssignments(ctx context.Context, tenantID uuid.UUID, status string, p pagination.Params) ([]model.AgentAssignment, int64, error) {
	q := GetDB(ctx, r.db).Model(&model.AgentAssignment{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.AgentAssignment
	err := q.Preload("Agent").
		Order("created_at desc").
		Offset(p.Offset).Limit(p.Limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *assessmentRepository) ListAssignmentsByAgent(ctx context.Context, agentID uuid.UUID) ([]model.AgentAssignment, error) {
	var list []model.AgentAssignment
	err := GetDB(ctx, r.db).
		Where("agent_id = ?", agentID).
		Order("created_at desc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *assessmentRepository) CountAssignmentsByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := GetDB(ctx, r.db).Model(&model.AgentAssignment{}).
		Select("status, count(*) as count").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func (r *assessmentRepository) ListQuestions(ctx context.Context, tenantID uuid.UUID, category string) ([]model.AssessmentQuestion, error) {
	q := GetDB(ctx, r.db).Where("tenant_id = ? AND is_active = true", tenantID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var questions []model.AssessmentQuestion
	if err := q.Order("category asc, sort_order asc").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *assessmentRepository) FindQuestionByID(ctx context.Context, id uuid.UUID) (*model.AssessmentQuestion, error) {
	var q model.AssessmentQuestion
	if err := GetDB(ctx, r.db).First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *assessmentRepository) CreateQuestion(ctx context.Context, q *model.AssessmentQuestion) error {
	return GetDB(ctx, r.db).Create(q).Error
}

func (r *assessmentRepository) UpdateQuestion(ctx context.Context, q *model.AssessmentQuestion) error {
	return GetDB(ctx, r.db).Save(q).Error
}

func (r *assessmentRepository) FindResponse(ctx context.Context, assignmentID, questionID uuid.UUID) (*model.AssessmentResponse, error) {
	var resp model.AssessmentResponse
	err := GetDB(ctx, r.db).
		Where("assignment_id = ? AND question_id = ?", assignmentID, questionID).
		First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *assessmentRepository) ListResponses(ctx context.Context, assignmentID uuid.UUID) ([]model.AssessmentResponse, error) {
	var list []model.AssessmentResponse
	err := GetDB(ctx, r.db).
		Where("assignment_id = ?", assignmentID).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *assessmentRepository) SaveResponse(ctx context.Context, resp *model.AssessmentResponse) error {
	return GetDB(ctx, r.db).Save(resp).Error
}

func (r *assessmentRepository) FindReview(ctx context.Context, assignmentID, questionID uuid.UUID) (*model.QuestionReview, error) {
	var review model.QuestionReview
	err := GetDB(ctx, r.db).
		Where("assignment_id = ? AND question_id = ?", assignmentID, questionID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *assessmentRepository) ListReviews(ctx context.Context, assignmentID uuid.UUID) ([]model.QuestionReview, error) {
	var list []model.QuestionReview
	err := GetDB(ctx, r.db).
		Where("assignment_id = ?", assignmentID).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *assessmentRepository) SaveReview(ctx context.Context, review *model.QuestionReview) error {
	return GetDB(ctx, r.db).Save(review).Error
}
