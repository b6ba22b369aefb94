package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Assignment (workflow run) statuses
const (
	AssignmentPending   = "PENDING"
	AssignmentInReview  = "IN_REVIEW"
	AssignmentCompleted = "COMPLETED" // All steps done, awaiting final decision, read-only for reviews
	AssignmentApproved  = "APPROVED"
	AssignmentRejected  = "REJECTED"
	AssignmentCancelled = "CANCELLED"
)

// Question review statuses
const (
	ReviewPending    = "pending"
	ReviewPass       = "pass"
	ReviewFail       = "fail"
	ReviewInProgress = "in_progress" // more info requested from vendor
)

// AgentAssignment is one run of an assessment workflow for an agent. The
// step pointer walks the template's step_number order.
type AgentAssignment struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AgentID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"agent_id"`
	Agent        *Agent     `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	TemplateID   *uuid.UUID `gorm:"type:uuid;index" json:"template_id"`
	Status       string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CurrentStep  int        `gorm:"default:1" json:"current_step"`
	RequestedBy  *uuid.UUID `gorm:"type:uuid;index" json:"requested_by"`
	Requester    *User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	DecidedBy    *uuid.UUID `gorm:"type:uuid" json:"decided_by"`
	Decider      *User      `gorm:"foreignKey:DecidedBy" json:"decider,omitempty"`
	DecidedAt    *time.Time `json:"decided_at"`
	DecisionNote string     `gorm:"type:text" json:"decision_note"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ReviewLocked reports whether question-level review mutations are gated.
// COMPLETED is read-only in the review sense even though a final decision
// is still outstanding.
func (a *AgentAssignment) ReviewLocked() bool {
	switch a.Status {
	case AssignmentApproved, AssignmentRejected, AssignmentCancelled, AssignmentCompleted:
		return true
	}
	return false
}

// ResponseEditable reports whether vendor users may still create or update
// responses on this assignment.
func (a *AgentAssignment) ResponseEditable() bool {
	return a.Status == AssignmentPending || a.Status == AssignmentInReview
}

// AssessmentQuestion is one entry of the question catalog
type AssessmentQuestion struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Title        string         `gorm:"type:varchar(500);not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	ResponseType string         `gorm:"type:varchar(30);not null" json:"response_type"` // text, textarea, select, multi_select, checkbox, file
	IsRequired   bool           `gorm:"default:false" json:"is_required"`
	Category     string         `gorm:"type:varchar(100);not null;index" json:"category"`
	Options      datatypes.JSON `gorm:"type:jsonb" json:"options"`
	SortOrder    int            `gorm:"default:0" json:"sort_order"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// DocumentMeta is stored metadata for an uploaded evidence document.
// The storage collaborator keeps the bytes; only the path travels here.
type DocumentMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// AssessmentResponse is a vendor's answer to one question on one assignment
type AssessmentResponse struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssignmentID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_response_question" json:"assignment_id"`
	QuestionID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_response_question" json:"question_id"`
	Value        datatypes.JSON `gorm:"type:jsonb" json:"value"`
	Comment      string         `gorm:"type:text" json:"comment"`
	Documents    datatypes.JSON `gorm:"type:jsonb" json:"documents"` // [DocumentMeta]
	UpdatedBy    *uuid.UUID     `gorm:"type:uuid" json:"updated_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// DecodeDocuments parses the stored document metadata list
func (r *AssessmentResponse) DecodeDocuments() ([]DocumentMeta, error) {
	var docs []DocumentMeta
	if len(r.Documents) == 0 {
		return docs, nil
	}
	if err := json.Unmarshal(r.Documents, &docs); err != nil {
		return nil, fmt.Errorf("malformed documents on response %s: %w", r.ID, err)
	}
	return docs, nil
}

// QuestionReview is the reviewer's accept / deny / more-info state per question
type QuestionReview struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssignmentID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_review_question" json:"assignment_id"`
	QuestionID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_review_question" json:"question_id"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ReviewerComment string     `gorm:"type:text" json:"reviewer_comment"`
	VendorComment   string     `gorm:"type:text" json:"vendor_comment"`
	ReviewedBy      *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
